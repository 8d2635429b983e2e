package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"incomeinsight/llm"
	"incomeinsight/ml"
	"incomeinsight/monitoring"
)

var (
	ErrNoArtifacts          = errors.New("no model artifacts loaded")
	ErrExplainerUnavailable = errors.New("explanation service not configured")
)

// ArtifactSource hands out the artifact bundle for one submission.
type ArtifactSource interface {
	Current() *ml.Artifacts
}

type SubmitOptions struct {
	Explain bool
}

// Result of one submission. Prediction is always set when Submit returns no
// error; the explanation outcome is independent of it.
type Result struct {
	Submitted      ml.Profile
	Resolved       ml.Profile
	Issues         []QualityIssue
	Features       ml.PreparedFeatures
	Prediction     ml.Prediction
	Explanation    string
	ExplanationErr error
}

// Service runs prepare → predict → decode → explain for one profile.
type Service struct {
	artifacts ArtifactSource
	explainer llm.Explainer
	cleaner   *ProfileCleaner
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewService builds the pipeline. explainer may be nil, in which case every
// explanation reports ErrExplainerUnavailable.
func NewService(artifacts ArtifactSource, explainer llm.Explainer, metrics *monitoring.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		artifacts: artifacts,
		explainer: explainer,
		cleaner:   NewProfileCleaner(),
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *Service) Artifacts() *ml.Artifacts {
	if s.artifacts == nil {
		return nil
	}
	return s.artifacts.Current()
}

// Submit returns an error only when no prediction could be made.
func (s *Service) Submit(ctx context.Context, profile ml.Profile, opts SubmitOptions) (*Result, error) {
	artifacts := s.Artifacts()
	if artifacts == nil {
		s.metrics.RecordPredictionError()
		return nil, ErrNoArtifacts
	}

	cleaned, issues := s.cleaner.Clean(profile)
	for _, issue := range issues {
		s.metrics.RecordCorrection(issue.Field)
	}

	features := artifacts.Preparer.Prepare(cleaned)
	for _, field := range features.Substituted {
		s.metrics.RecordUnseenCategory(field)
		s.logger.Info("unseen category replaced by first vocabulary entry", zap.String("field", field))
	}

	prediction, err := artifacts.Predictor.Predict(features.Scaled)
	if err != nil {
		s.metrics.RecordPredictionError()
		s.logger.Error("prediction failed",
			zap.Error(err),
			zap.Strings("feature_order", features.Order),
			zap.Float64s("scaled", features.Scaled),
		)
		return nil, fmt.Errorf("prediction failed: %w", err)
	}
	s.metrics.RecordPrediction(prediction.Label)

	result := &Result{
		Submitted:  profile,
		Resolved:   features.Resolved,
		Issues:     issues,
		Features:   features,
		Prediction: prediction,
	}

	if opts.Explain {
		result.Explanation, result.ExplanationErr = s.explain(ctx, features.Resolved, prediction.Label)
	}

	s.logger.Info("submission scored",
		zap.String("label", prediction.Label),
		zap.Float64("confidence", prediction.Confidence),
		zap.Int("corrections", len(issues)),
		zap.Bool("explained", opts.Explain && result.ExplanationErr == nil),
	)
	return result, nil
}

func (s *Service) explain(ctx context.Context, profile ml.Profile, label string) (string, error) {
	if s.explainer == nil {
		s.metrics.RecordExplanation(monitoring.OutcomeUnavailable, 0)
		return "", ErrExplainerUnavailable
	}
	start := time.Now()
	text, err := s.explainer.Explain(ctx, profile, label)
	elapsed := time.Since(start)
	if err != nil {
		outcome := string(llm.TransportFailure)
		fields := []zap.Field{zap.Error(err), zap.Duration("elapsed", elapsed)}
		var explErr *llm.ExplanationError
		if errors.As(err, &explErr) {
			outcome = string(explErr.Kind)
			fields = append(fields, zap.Int("status", explErr.StatusCode), zap.String("raw", explErr.Raw))
		}
		s.metrics.RecordExplanation(outcome, elapsed)
		s.logger.Warn("explanation failed", fields...)
		return "", err
	}
	s.metrics.RecordExplanation(monitoring.OutcomeOK, elapsed)
	return text, nil
}
