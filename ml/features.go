package ml

import (
	"errors"
	"fmt"
)

// PreparedFeatures is everything derived from one Profile on its way to the
// model.
type PreparedFeatures struct {
	Order               []string  `json:"order"`
	Encoded             []float64 `json:"encoded"`
	Scaled              []float64 `json:"scaled"`
	MaritalStatusBinary int       `json:"marital_status_binary"`
	// Resolved holds the profile as the model sees it: categorical values
	// are decoded back from their encoded index.
	Resolved Profile `json:"resolved"`
	// Substituted lists categorical fields whose value was outside the
	// vocabulary and replaced by its first entry.
	Substituted []string `json:"substituted,omitempty"`
}

// featureEncoder turns one field into its model value. Numeric fields read the
// submitted profile, categorical fields read the resolved one.
type featureEncoder interface {
	encode(submitted, resolved Profile) float64
}

type numericFeature struct {
	value func(Profile) int
}

func (f numericFeature) encode(submitted, _ Profile) float64 {
	return float64(f.value(submitted))
}

type categoricalFeature struct {
	name    string
	encoder *CategoryEncoder
	value   func(Profile) string
	set     func(*Profile, string)
}

func (f categoricalFeature) encode(_, resolved Profile) float64 {
	idx, _ := f.encoder.EncodeOrFirst(f.value(resolved))
	return float64(idx)
}

// resolve replaces an out-of-vocabulary value with the first entry and
// reports whether it did so.
func (f categoricalFeature) resolve(p *Profile) bool {
	idx, substituted := f.encoder.EncodeOrFirst(f.value(*p))
	f.set(p, f.encoder.classes[idx])
	return substituted
}

type FeaturePreparer struct {
	order       []string
	features    []featureEncoder
	categorical []categoricalFeature
	scaler      *StandardScaler
}

// NewFeaturePreparer binds the encoders and scaler to a column order. An empty
// order means DefaultFeatureOrder. All shape checks happen here so that
// Prepare cannot fail.
func NewFeaturePreparer(encoders EncoderTable, scaler *StandardScaler, order []string) (*FeaturePreparer, error) {
	if scaler == nil {
		return nil, errors.New("feature preparer: scaler is required")
	}
	if len(order) == 0 {
		order = DefaultFeatureOrder
	}
	known, categorical, err := knownFeatures(encoders)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(order))
	features := make([]featureEncoder, len(order))
	for i, name := range order {
		if seen[name] {
			return nil, fmt.Errorf("feature preparer: duplicate feature %q", name)
		}
		seen[name] = true
		f, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("feature preparer: unknown feature %q", name)
		}
		features[i] = f
	}

	if scaler.Width() != len(order) {
		return nil, fmt.Errorf("feature preparer: scaler has %d columns, model expects %d", scaler.Width(), len(order))
	}
	if columns := scaler.Columns(); columns != nil {
		for i, name := range order {
			if columns[i] != name {
				return nil, fmt.Errorf("feature preparer: scaler column %d is %q, model expects %q", i, columns[i], name)
			}
		}
	}

	return &FeaturePreparer{
		order:       append([]string(nil), order...),
		features:    features,
		categorical: categorical,
		scaler:      scaler,
	}, nil
}

func knownFeatures(encoders EncoderTable) (map[string]featureEncoder, []categoricalFeature, error) {
	known := map[string]featureEncoder{
		FeatureAge:          numericFeature{value: func(p Profile) int { return p.Age }},
		FeatureHoursPerWeek: numericFeature{value: func(p Profile) int { return p.HoursPerWeek }},
		FeatureCapitalGain:  numericFeature{value: func(p Profile) int { return p.CapitalGain }},
		FeatureCapitalLoss:  numericFeature{value: func(p Profile) int { return p.CapitalLoss }},
		FeatureMaritalStatusBinary: numericFeature{value: func(p Profile) int {
			return MaritalStatusBinary(p.MaritalStatus)
		}},
	}

	categorical := []categoricalFeature{
		{
			name:  FeatureSex,
			value: func(p Profile) string { return p.Sex },
			set:   func(p *Profile, v string) { p.Sex = v },
		},
		{
			name:  FeatureEducation,
			value: func(p Profile) string { return p.Education },
			set:   func(p *Profile, v string) { p.Education = v },
		},
		{
			name:  FeatureMaritalStatus,
			value: func(p Profile) string { return p.MaritalStatus },
			set:   func(p *Profile, v string) { p.MaritalStatus = v },
		},
		{
			name:  FeatureOccupation,
			value: func(p Profile) string { return p.Occupation },
			set:   func(p *Profile, v string) { p.Occupation = v },
		},
	}
	for i := range categorical {
		encoder, ok := encoders.Get(categorical[i].name)
		if !ok {
			return nil, nil, fmt.Errorf("feature preparer: no encoder for %q", categorical[i].name)
		}
		categorical[i].encoder = encoder
		known[categorical[i].name] = categorical[i]
	}
	return known, categorical, nil
}

func (fp *FeaturePreparer) Order() []string {
	return append([]string(nil), fp.order...)
}

func (fp *FeaturePreparer) Prepare(p Profile) PreparedFeatures {
	resolved := p
	var substituted []string
	for _, f := range fp.categorical {
		if f.resolve(&resolved) {
			substituted = append(substituted, f.name)
		}
	}

	encoded := make([]float64, len(fp.features))
	for i, f := range fp.features {
		encoded[i] = f.encode(p, resolved)
	}

	scaled, err := fp.scaler.Transform(encoded)
	if err != nil {
		// Width was checked in NewFeaturePreparer.
		panic(fmt.Sprintf("feature preparer: %v", err))
	}

	return PreparedFeatures{
		Order:               fp.Order(),
		Encoded:             encoded,
		Scaled:              scaled,
		MaritalStatusBinary: MaritalStatusBinary(p.MaritalStatus),
		Resolved:            resolved,
		Substituted:         substituted,
	}
}
