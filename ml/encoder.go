package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrIndexOutOfRange = errors.New("category index out of range")
)

// CategoryEncoder maps the values of one categorical field to their position
// in a fixed vocabulary.
type CategoryEncoder struct {
	field   string
	classes []string
	index   map[string]int
}

func NewCategoryEncoder(field string, classes []string) (*CategoryEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("encoder %s: empty vocabulary", field)
	}
	index := make(map[string]int, len(classes))
	for i, class := range classes {
		if _, dup := index[class]; dup {
			return nil, fmt.Errorf("encoder %s: duplicate class %q", field, class)
		}
		index[class] = i
	}
	return &CategoryEncoder{
		field:   field,
		classes: append([]string(nil), classes...),
		index:   index,
	}, nil
}

func (e *CategoryEncoder) Field() string {
	return e.field
}

func (e *CategoryEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

func (e *CategoryEncoder) Contains(value string) bool {
	_, ok := e.index[value]
	return ok
}

func (e *CategoryEncoder) Encode(value string) (int, error) {
	idx, ok := e.index[value]
	if !ok {
		return 0, fmt.Errorf("%s %q: %w", e.field, value, ErrUnknownCategory)
	}
	return idx, nil
}

// EncodeOrFirst encodes value, falling back to the first vocabulary entry
// when value is not part of it. The second result reports the fallback.
func (e *CategoryEncoder) EncodeOrFirst(value string) (int, bool) {
	if idx, ok := e.index[value]; ok {
		return idx, false
	}
	return 0, true
}

func (e *CategoryEncoder) Decode(idx int) (string, error) {
	if idx < 0 || idx >= len(e.classes) {
		return "", fmt.Errorf("%s index %d: %w", e.field, idx, ErrIndexOutOfRange)
	}
	return e.classes[idx], nil
}

type EncoderTable map[string]*CategoryEncoder

func NewEncoderTable(vocabularies map[string][]string) (EncoderTable, error) {
	table := make(EncoderTable, len(vocabularies))
	for field, classes := range vocabularies {
		encoder, err := NewCategoryEncoder(field, classes)
		if err != nil {
			return nil, err
		}
		table[field] = encoder
	}
	return table, nil
}

func LoadEncoderTable(path string) (EncoderTable, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var vocabularies map[string][]string
	if err := json.Unmarshal(payload, &vocabularies); err != nil {
		return nil, fmt.Errorf("decode encoders %s: %w", path, err)
	}
	return NewEncoderTable(vocabularies)
}

func (t EncoderTable) Get(field string) (*CategoryEncoder, bool) {
	encoder, ok := t[field]
	return encoder, ok
}

func (t EncoderTable) Fields() []string {
	fields := make([]string, 0, len(t))
	for field := range t {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func (t EncoderTable) Vocabularies() map[string][]string {
	out := make(map[string][]string, len(t))
	for field, encoder := range t {
		out[field] = encoder.Classes()
	}
	return out
}
