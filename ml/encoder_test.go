package ml

import (
	"errors"
	"testing"
)

func TestCategoryEncoderRoundTrip(t *testing.T) {
	table, err := LoadEncoderTable("testdata/encoders.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, field := range table.Fields() {
		encoder, _ := table.Get(field)
		for want, class := range encoder.Classes() {
			idx, err := encoder.Encode(class)
			if err != nil {
				t.Fatalf("%s: encode %q: %v", field, class, err)
			}
			if idx != want {
				t.Fatalf("%s: expected index %d for %q, got %d", field, want, class, idx)
			}
			decoded, err := encoder.Decode(idx)
			if err != nil {
				t.Fatalf("%s: decode %d: %v", field, idx, err)
			}
			if decoded != class {
				t.Fatalf("%s: round trip %q -> %d -> %q", field, class, idx, decoded)
			}
		}
	}
}

func TestCategoryEncoderUnknownValue(t *testing.T) {
	encoder, err := NewCategoryEncoder("occupation", []string{"Adm-clerical", "Sales"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := encoder.Encode("Unknown-Job"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	idx, substituted := encoder.EncodeOrFirst("Unknown-Job")
	if idx != 0 || !substituted {
		t.Fatalf("expected fallback to 0, got %d (substituted=%v)", idx, substituted)
	}
	idx, substituted = encoder.EncodeOrFirst("Sales")
	if idx != 1 || substituted {
		t.Fatalf("expected 1 without fallback, got %d (substituted=%v)", idx, substituted)
	}
	if _, err := encoder.Decode(2); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := encoder.Decode(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestNewCategoryEncoderRejectsBadVocabulary(t *testing.T) {
	if _, err := NewCategoryEncoder("sex", nil); err == nil {
		t.Fatal("expected error for empty vocabulary")
	}
	if _, err := NewCategoryEncoder("sex", []string{"Male", "Male"}); err == nil {
		t.Fatal("expected error for duplicate class")
	}
}

func TestCategoryEncoderClassesIsCopy(t *testing.T) {
	encoder, err := NewCategoryEncoder("sex", []string{"Female", "Male"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	classes := encoder.Classes()
	classes[0] = "changed"
	if got, _ := encoder.Decode(0); got != "Female" {
		t.Fatalf("encoder vocabulary was mutated: %q", got)
	}
}
