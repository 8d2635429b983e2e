package ml

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ArtifactStore hands out the current artifact bundle. A reload builds a
// complete new bundle and swaps it in; readers never see a partial one.
type ArtifactStore struct {
	paths   ArtifactPaths
	logger  *zap.Logger
	current atomic.Pointer[Artifacts]

	mu       sync.Mutex
	onReload []func(error)
}

func NewArtifactStore(paths ArtifactPaths, logger *zap.Logger) (*ArtifactStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	artifacts, err := LoadArtifacts(paths)
	if err != nil {
		return nil, err
	}
	s := &ArtifactStore{paths: paths, logger: logger}
	s.current.Store(artifacts)
	s.logLoaded(artifacts)
	return s, nil
}

// NewStaticStore wraps an already built bundle. Reload is a no-op.
func NewStaticStore(artifacts *Artifacts) *ArtifactStore {
	s := &ArtifactStore{logger: zap.NewNop()}
	s.current.Store(artifacts)
	return s
}

func (s *ArtifactStore) Current() *Artifacts {
	return s.current.Load()
}

func (s *ArtifactStore) Paths() ArtifactPaths {
	return s.paths
}

// OnReload registers fn to be called after every reload attempt with its result.
func (s *ArtifactStore) OnReload(fn func(error)) {
	s.mu.Lock()
	s.onReload = append(s.onReload, fn)
	s.mu.Unlock()
}

// Reload loads the artifacts again. On failure the previous bundle stays in
// service.
func (s *ArtifactStore) Reload() error {
	if s.paths.ModelFile == "" {
		return nil
	}
	artifacts, err := LoadArtifacts(s.paths)
	if err != nil {
		s.logger.Error("artifact reload failed, keeping previous bundle", zap.Error(err))
	} else {
		s.current.Store(artifacts)
		s.logLoaded(artifacts)
	}

	s.mu.Lock()
	hooks := make([]func(error), len(s.onReload))
	copy(hooks, s.onReload)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(err)
	}
	return err
}

func (s *ArtifactStore) logLoaded(a *Artifacts) {
	fields := []zap.Field{
		zap.String("model_type", a.ModelType),
		zap.Strings("feature_order", a.Preparer.Order()),
		zap.Strings("classes", a.Predictor.labels.Classes()),
	}
	if a.ImplicitOrder {
		s.logger.Warn("model declares no feature order, using assembly order", fields...)
		return
	}
	s.logger.Info("artifacts loaded", fields...)
}
