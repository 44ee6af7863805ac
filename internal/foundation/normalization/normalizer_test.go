package normalization

import (
	"strings"
	"testing"
)

type sampleStatus string

const (
	samplePending sampleStatus = "pending"
	sampleDone    sampleStatus = "done"
	sampleBlocked sampleStatus = "blocked"
)

func sampleNormalizer() *Normalizer[sampleStatus] {
	return NewNormalizer(map[string]sampleStatus{
		"pending": samplePending,
		"done":    sampleDone,
		"blocked": sampleBlocked,
	}, samplePending)
}

func TestNormalizer_Basic(t *testing.T) {
	normalizer := sampleNormalizer()

	tests := []struct {
		name     string
		input    string
		expected sampleStatus
	}{
		{"exact match", "done", sampleDone},
		{"case insensitive", "DONE", sampleDone},
		{"with spaces", "  blocked  ", sampleBlocked},
		{"mixed case spaces", "  PeNdInG  ", samplePending},
		{"invalid input", "invalid", samplePending}, // Should return default
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizer.Normalize(tt.input)
			if result != tt.expected {
				t.Errorf("Normalize(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizer_WithError(t *testing.T) {
	normalizer := sampleNormalizer()

	if _, err := normalizer.NormalizeWithError("done"); err != nil {
		t.Errorf("expected no error for valid value, got %v", err)
	}

	_, err := normalizer.NormalizeWithError("bogus")
	if err == nil {
		t.Fatal("expected error for invalid value")
	}
	// Error message lists valid options sorted for stable output.
	if !strings.Contains(err.Error(), "blocked done pending") {
		t.Errorf("expected sorted valid options in error, got %v", err)
	}
}

func TestNormalizer_Aliases(t *testing.T) {
	normalizer := NewNormalizer(map[string]sampleStatus{
		"done":      sampleDone,
		"complete":  sampleDone,
		"completed": sampleDone,
	}, samplePending)

	for _, raw := range []string{"done", "Complete", " COMPLETED "} {
		if got := normalizer.Normalize(raw); got != sampleDone {
			t.Errorf("Normalize(%q) = %v, want done", raw, got)
		}
	}
}

func TestEnumNormalizer_ErrorNamesEnum(t *testing.T) {
	enum := NewEnumNormalizer("task status", map[string]sampleStatus{
		"pending": samplePending,
		"done":    sampleDone,
	}, samplePending)

	_, err := enum.NormalizeWithValidation("wat")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid task status") {
		t.Errorf("expected enum name in error, got %v", err)
	}

	values := enum.ValidValues()
	if len(values) != 2 || values[0] != "done" || values[1] != "pending" {
		t.Errorf("expected sorted valid values, got %v", values)
	}
}
