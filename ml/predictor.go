package ml

import (
	"errors"
	"fmt"
)

type Prediction struct {
	ClassIndex int     `json:"class_index"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Predictor runs the classifier and decodes its class index through the
// income encoder.
type Predictor struct {
	model  Classifier
	labels *CategoryEncoder
}

func NewPredictor(model Classifier, labels *CategoryEncoder) (*Predictor, error) {
	if model == nil {
		return nil, errors.New("predictor: model is required")
	}
	if labels == nil {
		return nil, errors.New("predictor: label encoder is required")
	}
	return &Predictor{model: model, labels: labels}, nil
}

func (p *Predictor) Predict(vector []float64) (Prediction, error) {
	idx, confidence, err := p.model.Predict(vector)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	label, err := p.labels.Decode(idx)
	if err != nil {
		return Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	return Prediction{ClassIndex: idx, Label: label, Confidence: confidence}, nil
}
