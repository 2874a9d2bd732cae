package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/jorellortega/covionpartners-sub001/access"
	"github.com/jorellortega/covionpartners-sub001/model"
	"github.com/jorellortega/covionpartners-sub001/pdfform"
	"github.com/jorellortega/covionpartners-sub001/pkg/logger"
	"github.com/jorellortega/covionpartners-sub001/pkg/tracing"
)

// FieldListing is what the value-entry view shows for a PDF-backed contract.
// When the PDF cannot be parsed Fallback is set and FallbackKeys lists the
// keys to offer as free-form entries.
type FieldListing struct {
	Fields       []pdfform.Descriptor `json:"fields"`
	Fallback     bool                 `json:"fallback"`
	FallbackKeys []string             `json:"fallback_keys,omitempty"`
	Cached       bool                 `json:"cached"`
}

// FillOutcome reports a completed fill-and-publish.
type FillOutcome struct {
	Contract *model.Contract        `json:"contract"`
	Key      string                 `json:"key"`
	Applied  []string               `json:"applied"`
	Skipped  []pdfform.SkippedField `json:"skipped,omitempty"`
}

// FormService owns the PDF side of a contract: introspection, value entry,
// fill and publish.
type FormService struct {
	contracts    ContractRepository
	blobs        BlobStore
	cache        FieldCache
	introspector *pdfform.Introspector
	filler       *pdfform.Filler
	group        singleflight.Group
	now          func() time.Time
}

func NewFormService(contracts ContractRepository, blobs BlobStore, cache FieldCache) *FormService {
	if cache == nil {
		cache = NewMemoryFieldCache(time.Hour)
	}
	return &FormService{
		contracts:    contracts,
		blobs:        blobs,
		cache:        cache,
		introspector: pdfform.NewIntrospector(),
		filler:       pdfform.NewFiller(),
		now:          time.Now,
	}
}

// Fields lists the native form fields of the contract's PDF. Results are cached
// by blob key and concurrent lookups of the same blob share one introspection.
func (s *FormService) Fields(ctx context.Context, grant access.Grant, contract *model.Contract) (*FieldListing, error) {
	if err := grant.Require(access.CapView); err != nil {
		return nil, err
	}
	if !contract.File.IsPDF() {
		return nil, ErrNotFillable
	}

	fields, cached, err := s.descriptors(ctx, contract.File.Path)
	var parseErr *pdfform.DocumentParseError
	if errors.As(err, &parseErr) {
		logger.Warn(ctx, "pdf form unreadable, using generic field entry", "path", contract.File.Path, "error", err)
		return &FieldListing{Fields: []pdfform.Descriptor{}, Fallback: true, FallbackKeys: fallbackKeys(contract)}, nil
	}
	if err != nil {
		return nil, err
	}
	return &FieldListing{Fields: fields, Cached: cached}, nil
}

func (s *FormService) descriptors(ctx context.Context, key string) ([]pdfform.Descriptor, bool, error) {
	if fields, ok, err := s.cache.Get(ctx, key); err != nil {
		logger.Warn(ctx, "field cache read failed", "key", key, "error", err)
	} else if ok {
		return fields, true, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		ctx, span := tracing.Start(ctx, "pdf.introspect", attribute.String("blob.key", key))
		data, err := s.blobs.Download(ctx, key)
		if err != nil {
			tracing.End(span, err)
			return nil, fmt.Errorf("download %s: %w", key, err)
		}
		fields, err := s.introspector.Introspect(ctx, data)
		span.SetAttributes(attribute.Int("pdf.fields", len(fields)))
		tracing.End(span, err)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, fields); err != nil {
			logger.Warn(ctx, "field cache write failed", "key", key, "error", err)
		}
		return fields, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]pdfform.Descriptor), false, nil
}

// fallbackKeys are the keys offered for free-form entry: existing values plus
// templated field ids.
func fallbackKeys(c *model.Contract) []string {
	seen := make(map[string]bool, len(c.Values)+len(c.Fields))
	keys := make([]string, 0, len(c.Values)+len(c.Fields))
	for k := range c.Values {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, f := range c.Fields {
		if !seen[f.ID] {
			seen[f.ID] = true
			keys = append(keys, f.ID)
		}
	}
	sort.Strings(keys)
	return keys
}

// SaveValues merges updates into the stored values.
func (s *FormService) SaveValues(ctx context.Context, grant access.Grant, contractID string, updates map[string]string) (*model.Contract, error) {
	if err := grant.Require(access.CapFillValues); err != nil {
		return nil, err
	}
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return s.contracts.Update(ctx, contractID, ContractPatch{Values: s.encodeValues(ctx, contract, updates)})
}

// encodeValues types updates by the contract's field definitions and native
// checkboxes and writes them back in storage form: checkboxes as true/false,
// dates as DateLayout. Without readable form fields only the definitions apply.
func (s *FormService) encodeValues(ctx context.Context, contract *model.Contract, updates map[string]string) map[string]string {
	var descriptors []pdfform.Descriptor
	if contract.File.IsPDF() {
		d, _, err := s.descriptors(ctx, contract.File.Path)
		if err != nil {
			logger.Warn(ctx, "typing values without pdf fields", "contract_id", contract.ID, "error", err)
		}
		descriptors = d
	}
	return model.DecodeValues(updates, ValueHints(contract.Fields, descriptors)).Encode()
}

// urlSigner is implemented by stores that can hand out expiring links.
type urlSigner interface {
	PresignedURL(ctx context.Context, key string) (string, error)
}

// FileLink returns a download link for the contract's current file. Stores
// that can sign links return an expiring one; others return the public URL.
func (s *FormService) FileLink(ctx context.Context, grant access.Grant, contract *model.Contract) (string, error) {
	if err := grant.Require(access.CapView); err != nil {
		return "", err
	}
	if contract.File == nil || contract.File.Path == "" {
		return "", ErrNoFile
	}
	signer, ok := s.blobs.(urlSigner)
	if !ok {
		return s.blobs.PublicURL(contract.File.Path), nil
	}
	link, err := signer.PresignedURL(ctx, contract.File.Path)
	if err != nil {
		logger.Warn(ctx, "presign failed, using public url", "key", contract.File.Path, "error", err)
		return s.blobs.PublicURL(contract.File.Path), nil
	}
	return link, nil
}

// PublishFile stores an uploaded file under a fresh key and points the contract at it.
func (s *FormService) PublishFile(ctx context.Context, grant access.Grant, contractID, filename, contentType string, data []byte) (*model.Contract, error) {
	if err := grant.Require(access.CapEdit); err != nil {
		return nil, err
	}
	key := BlobKey(contractID, filename, s.now())
	if _, err := s.upload(ctx, key, data, contentType); err != nil {
		return nil, err
	}
	ref := &model.FileRef{URL: s.blobs.PublicURL(key), Path: key, Name: path.Base(filename), MimeType: contentType}
	return s.swapPointer(ctx, contractID, ref)
}

// FillAndPublish merges updates into the stored values, fills the contract's
// PDF with the full value set, uploads the result under a new key and then
// points the contract at it. Values are saved even when a later step fails.
func (s *FormService) FillAndPublish(ctx context.Context, grant access.Grant, contractID string, updates map[string]string) (*FillOutcome, error) {
	if err := grant.Require(access.CapFillValues); err != nil {
		return nil, err
	}

	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		contract, err = s.contracts.Update(ctx, contractID, ContractPatch{Values: s.encodeValues(ctx, contract, updates)})
		if err != nil {
			return nil, err
		}
	}
	if !contract.File.IsPDF() {
		return nil, ErrNotFillable
	}
	source := contract.File

	descriptors, _, err := s.descriptors(ctx, source.Path)
	if err != nil {
		return nil, err
	}
	values := model.DecodeValues(contract.Values, ValueHints(contract.Fields, descriptors))

	data, err := s.blobs.Download(ctx, source.Path)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", source.Path, err)
	}

	fillCtx, span := tracing.Start(ctx, "pdf.fill",
		attribute.String("contract.id", contractID),
		attribute.Int("pdf.values", len(values)),
	)
	result, err := s.filler.Fill(fillCtx, data, values)
	if err == nil {
		span.SetAttributes(attribute.Int("pdf.applied", len(result.Applied)), attribute.Int("pdf.skipped", len(result.Skipped)))
	}
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	key := BlobKey(contractID, filledName(source.Name), s.now())
	url, err := s.upload(ctx, key, result.PDF, model.MimePDF)
	if err != nil {
		return nil, err
	}

	ref := &model.FileRef{URL: url, Path: key, Name: source.Name, MimeType: model.MimePDF}
	updated, err := s.swapPointer(ctx, contractID, ref)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "contract pdf filled",
		"contract_id", contractID,
		"key", key,
		"applied", len(result.Applied),
		"skipped", len(result.Skipped),
	)
	return &FillOutcome{Contract: updated, Key: key, Applied: result.Applied, Skipped: result.Skipped}, nil
}

func (s *FormService) upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, span := tracing.Start(ctx, "blob.upload", attribute.String("blob.key", key), attribute.Int("blob.size", len(data)))
	url, err := s.blobs.Upload(ctx, key, data, contentType)
	tracing.End(span, err)
	if err != nil {
		return "", &StorageUploadError{Key: key, Err: err}
	}
	return url, nil
}

func (s *FormService) swapPointer(ctx context.Context, contractID string, ref *model.FileRef) (*model.Contract, error) {
	ctx, span := tracing.Start(ctx, "contract.pointer_update", attribute.String("contract.id", contractID))
	updated, err := s.contracts.Update(ctx, contractID, ContractPatch{File: ref})
	tracing.End(span, err)
	if err != nil {
		logger.Warn(ctx, "file pointer update failed, blob orphaned",
			"contract_id", contractID,
			"orphan_key", ref.Path,
			"error", err,
		)
		return nil, &PointerUpdateError{ContractID: contractID, OrphanKey: ref.Path, Err: err}
	}
	return updated, nil
}

// ValueHints types values by templated field type and by native checkbox fields.
func ValueHints(defs []model.FieldDefinition, descriptors []pdfform.Descriptor) map[string]model.ValueKind {
	hints := model.HintsFromFields(defs)
	for _, d := range descriptors {
		if d.Kind == pdfform.KindCheckbox {
			hints[d.Name] = model.ValueBool
		}
	}
	return hints
}

func filledName(name string) string {
	if name == "" {
		return "filled.pdf"
	}
	if strings.HasPrefix(name, "filled-") {
		return name
	}
	return "filled-" + name
}
