package ml

// Classifier is a pre-trained model evaluated on one scaled feature vector.
type Classifier interface {
	Predict(features []float64) (int, float64, error)
	// FeatureNames is the column order the model was trained with, or nil
	// when the artifact does not declare one.
	FeatureNames() []string
}
