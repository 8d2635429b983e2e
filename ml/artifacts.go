package ml

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// ArtifactPaths locates the three pre-built artifacts on disk. Relative file
// names are resolved against Dir.
type ArtifactPaths struct {
	Dir          string
	ModelType    string
	ModelFile    string
	ScalerFile   string
	EncodersFile string
	// RequireFeatureOrder rejects models that do not declare their column
	// order instead of falling back to DefaultFeatureOrder.
	RequireFeatureOrder bool
}

func (p ArtifactPaths) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) || p.Dir == "" {
		return name
	}
	return filepath.Join(p.Dir, name)
}

func (p ArtifactPaths) Files() []string {
	return []string{p.resolve(p.ModelFile), p.resolve(p.ScalerFile), p.resolve(p.EncodersFile)}
}

// Artifacts is one loaded, validated bundle. Nothing in it is mutated after
// LoadArtifacts returns, so a bundle can be shared by concurrent requests.
type Artifacts struct {
	ModelType string
	Model     Classifier
	Scaler    *StandardScaler
	Encoders  EncoderTable
	Preparer  *FeaturePreparer
	Predictor *Predictor
	// ImplicitOrder is set when the model declared no feature order.
	ImplicitOrder bool
	LoadedAt      time.Time
}

func LoadArtifacts(paths ArtifactPaths) (*Artifacts, error) {
	if paths.ModelFile == "" || paths.ScalerFile == "" || paths.EncodersFile == "" {
		return nil, errors.New("artifacts: model, scaler and encoders files are required")
	}
	model, err := LoadModel(paths.ModelType, paths.resolve(paths.ModelFile))
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	scaler, err := LoadScaler(paths.resolve(paths.ScalerFile))
	if err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}
	encoders, err := LoadEncoderTable(paths.resolve(paths.EncodersFile))
	if err != nil {
		return nil, fmt.Errorf("load encoders: %w", err)
	}
	modelType := paths.ModelType
	if modelType == "" {
		modelType = ModelTypeRandomForest
	}
	return NewArtifacts(modelType, model, scaler, encoders, paths.RequireFeatureOrder)
}

// NewArtifacts cross-checks the model, scaler and encoders and builds the
// preparer and predictor over them.
func NewArtifacts(modelType string, model Classifier, scaler *StandardScaler, encoders EncoderTable, requireOrder bool) (*Artifacts, error) {
	order := model.FeatureNames()
	if len(order) == 0 && requireOrder {
		return nil, errors.New("artifacts: model does not declare its feature order")
	}

	labels, ok := encoders.Get(IncomeField)
	if !ok {
		return nil, fmt.Errorf("artifacts: no %q encoder", IncomeField)
	}
	if forest, ok := model.(*RandomForest); ok {
		if classes := forest.Classes(); len(classes) > 0 {
			if err := sameClasses(classes, labels.Classes()); err != nil {
				return nil, err
			}
		}
	}

	preparer, err := NewFeaturePreparer(encoders, scaler, order)
	if err != nil {
		return nil, err
	}
	predictor, err := NewPredictor(model, labels)
	if err != nil {
		return nil, err
	}
	return &Artifacts{
		ModelType:     modelType,
		Model:         model,
		Scaler:        scaler,
		Encoders:      encoders,
		Preparer:      preparer,
		Predictor:     predictor,
		ImplicitOrder: len(order) == 0,
		LoadedAt:      time.Now(),
	}, nil
}

func sameClasses(model, encoder []string) error {
	if len(model) != len(encoder) {
		return fmt.Errorf("artifacts: model has %d classes, income encoder has %d", len(model), len(encoder))
	}
	for i := range model {
		if model[i] != encoder[i] {
			return fmt.Errorf("artifacts: model class %d is %q, income encoder has %q", i, model[i], encoder[i])
		}
	}
	return nil
}
