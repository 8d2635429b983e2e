package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/floats"
)

// StandardScaler applies a pre-fit per-column standardisation
// (x - mean) / scale. The parameters are never refit at runtime.
type StandardScaler struct {
	columns []string
	mean    []float64
	scale   []float64
}

type scalerFile struct {
	Columns []string  `json:"columns"`
	Mean    []float64 `json:"mean"`
	Scale   []float64 `json:"scale"`
}

func NewStandardScaler(columns []string, mean, scale []float64) (*StandardScaler, error) {
	if len(mean) == 0 {
		return nil, errors.New("scaler: no columns")
	}
	if len(mean) != len(scale) {
		return nil, fmt.Errorf("scaler: mean has %d columns, scale has %d", len(mean), len(scale))
	}
	if len(columns) != 0 && len(columns) != len(mean) {
		return nil, fmt.Errorf("scaler: %d column names for %d columns", len(columns), len(mean))
	}
	safeScale := make([]float64, len(scale))
	for i, s := range scale {
		// sklearn stores 1 for zero-variance columns; mirror that for hand-written files.
		if s == 0 {
			s = 1
		}
		safeScale[i] = s
	}
	return &StandardScaler{
		columns: append([]string(nil), columns...),
		mean:    append([]float64(nil), mean...),
		scale:   safeScale,
	}, nil
}

func LoadScaler(path string) (*StandardScaler, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file scalerFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("decode scaler %s: %w", path, err)
	}
	return NewStandardScaler(file.Columns, file.Mean, file.Scale)
}

func (s *StandardScaler) Width() int {
	return len(s.mean)
}

// Columns returns the column names the scaler was fit on, or nil when the
// artifact did not record them.
func (s *StandardScaler) Columns() []string {
	if len(s.columns) == 0 {
		return nil
	}
	return append([]string(nil), s.columns...)
}

func (s *StandardScaler) Transform(vector []float64) ([]float64, error) {
	if len(vector) != len(s.mean) {
		return nil, fmt.Errorf("scaler: expected %d columns, got %d", len(s.mean), len(vector))
	}
	out := make([]float64, len(vector))
	floats.SubTo(out, vector, s.mean)
	floats.Div(out, s.scale)
	return out, nil
}
