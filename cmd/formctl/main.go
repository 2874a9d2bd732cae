// Command formctl inspects and fills PDF forms and previews pagination offline,
// using the same code paths as the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jorellortega/covionpartners-sub001/model"
	"github.com/jorellortega/covionpartners-sub001/pager"
	"github.com/jorellortega/covionpartners-sub001/pdfform"
	"github.com/jorellortega/covionpartners-sub001/pkg/logger"
	"github.com/jorellortega/covionpartners-sub001/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "formctl",
		Short:         "Inspect and fill contract PDF forms",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(&logger.Config{Level: logLevel, Format: "text", Output: cmd.ErrOrStderr()})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newFieldsCmd(), newFillCmd(), newPagesCmd())
	return root
}

func newFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields <pdf>",
		Short: "List the fillable fields of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			descriptors, err := pdfform.NewIntrospector().Introspect(cmd.Context(), data)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), descriptors)
		},
	}
}

func newFillCmd() *cobra.Command {
	var valuesPath, outPath string
	cmd := &cobra.Command{
		Use:   "fill <pdf>",
		Short: "Fill a PDF with values from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readValues(valuesPath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result, err := fill(cmd.Context(), data, raw)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, result.PDF, 0o644); err != nil {
				return err
			}
			logger.Info(cmd.Context(), "filled pdf written", "out", outPath, "applied", len(result.Applied), "skipped", len(result.Skipped))
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&valuesPath, "values", "", "JSON or YAML file mapping field names to values")
	cmd.Flags().StringVar(&outPath, "out", "", "output PDF path")
	_ = cmd.MarkFlagRequired("values")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func fill(ctx context.Context, data []byte, raw map[string]string) (*pdfform.FillResult, error) {
	descriptors, err := pdfform.NewIntrospector().Introspect(ctx, data)
	if err != nil {
		return nil, err
	}
	values := model.DecodeValues(raw, service.ValueHints(nil, descriptors))
	return pdfform.NewFiller().Fill(ctx, data, values)
}

// readValues loads a flat name to value map. YAML scalars of any type are
// accepted and kept as their string form.
func readValues(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var node map[string]any
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for k, v := range node {
			out[k] = fmt.Sprint(v)
		}
	default:
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return out, nil
}

func newPagesCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "pages <txt>",
		Short: "Split a text file into fixed-size pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			pages, err := pager.Split(string(data), size)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, p := range pages {
				fmt.Fprintf(w, "--- page %d (%d chars) ---\n%s\n", i, pager.Len(p), p)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 1500, "characters per page")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
