package model

import (
	"testing"
	"time"
)

func TestFileRefIsPDF(t *testing.T) {
	tests := []struct {
		name     string
		file     *FileRef
		expected bool
	}{
		{"nil file", nil, false},
		{"pdf mime", &FileRef{Name: "x.bin", MimeType: "application/pdf"}, true},
		{"pdf extension", &FileRef{Name: "Contract.PDF"}, true},
		{"docx", &FileRef{Name: "c.docx", MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.file.IsPDF(); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestContractStatusValid(t *testing.T) {
	statuses := []Status{StatusDraft, StatusPending, StatusSent, StatusSigned, StatusExpired, StatusCancelled}
	expected := []string{"draft", "pending", "sent", "signed", "expired", "cancelled"}

	for i, status := range statuses {
		if string(status) != expected[i] {
			t.Errorf("Expected '%s', got '%s'", expected[i], status)
		}
		if !status.Valid() {
			t.Errorf("Expected %s to be valid", status)
		}
	}
	if Status("archived").Valid() {
		t.Error("Unknown status should not be valid")
	}
}

func TestAccessCodeValid(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		code     AccessCode
		expected bool
	}{
		{"fresh", AccessCode{MaxUses: 1}, true},
		{"exhausted", AccessCode{MaxUses: 5, CurrentUses: 5}, false},
		{"exhausted but not expired", AccessCode{MaxUses: 5, CurrentUses: 5, ExpiresAt: &future}, false},
		{"expired", AccessCode{MaxUses: 5, ExpiresAt: &past}, false},
		{"revoked", AccessCode{MaxUses: 5, RevokedAt: &past}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.code.Valid(now); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestValuesRoundTripAtBoundary(t *testing.T) {
	raw := map[string]string{
		"start":  "2026-03-01",
		"agree":  "checked",
		"client": "Jane Doe",
		"bad":    "not a date",
	}
	hints := map[string]ValueKind{"start": ValueDate, "agree": ValueBool, "bad": ValueDate}

	values := DecodeValues(raw, hints)
	if values["start"].Kind != ValueDate {
		t.Errorf("Expected date kind, got %s", values["start"].Kind)
	}
	if values["agree"].Kind != ValueBool || !values["agree"].Bool {
		t.Errorf("Expected checked bool, got %+v", values["agree"])
	}
	if values["bad"].Kind != ValueText {
		t.Errorf("Unparseable date should stay text, got %s", values["bad"].Kind)
	}

	encoded := values.Encode()
	if encoded["agree"] != "true" {
		t.Errorf("Expected bool encoded as true, got %q", encoded["agree"])
	}
	if encoded["start"] != "2026-03-01" || encoded["client"] != "Jane Doe" || encoded["bad"] != "not a date" {
		t.Errorf("Unexpected encoding: %v", encoded)
	}
}

func TestIsChecked(t *testing.T) {
	for _, s := range []string{"checked", "true", "TRUE", " Checked "} {
		if !IsChecked(s) {
			t.Errorf("Expected %q to be checked", s)
		}
	}
	for _, s := range []string{"", "false", "yes", "off"} {
		if IsChecked(s) {
			t.Errorf("Expected %q to be unchecked", s)
		}
	}
}

func TestMergeValues(t *testing.T) {
	current := map[string]string{"a": "1", "b": "2"}
	merged := MergeValues(current, map[string]string{"b": "3", "c": "4"})

	if merged["a"] != "1" || merged["b"] != "3" || merged["c"] != "4" {
		t.Errorf("Unexpected merge result: %v", merged)
	}
	if current["b"] != "2" {
		t.Error("Merge must not mutate the current map")
	}
}
