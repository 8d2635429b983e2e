package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"incomeinsight/config"
	ihttp "incomeinsight/http"
	"incomeinsight/llm"
	"incomeinsight/logging"
	"incomeinsight/ml"
	"incomeinsight/monitoring"
	"incomeinsight/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
	logger.Info("exiting")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)

	// 2. Load model artifacts
	store, err := ml.NewArtifactStore(cfg.ArtifactPaths(), logger.Named("artifacts"))
	if err != nil {
		return err
	}
	store.OnReload(metrics.RecordReload)

	// 3. Explanation service is optional
	var explainer llm.Explainer
	if geminiConfig, ok := cfg.GeminiConfig(); ok {
		gemini, err := llm.NewGeminiExplainer(geminiConfig)
		if err != nil {
			return err
		}
		explainer = gemini
		logger.Info("explanations enabled", zap.String("model", geminiConfig.Model))
	} else {
		logger.Warn("explanations disabled, API key not set", zap.String("env", cfg.LLM.APIKeyEnv))
	}

	service := pipeline.NewService(store, explainer, metrics, logger.Named("pipeline"))

	server := ihttp.NewServer(ihttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, ihttp.Dependencies{
		Service:   service,
		ModelInfo: ihttp.ModelInfo{Name: cfg.ModelInfo.Name, Accuracy: cfg.ModelInfo.Accuracy},
		Gatherer:  reg,
		Logger:    logger.Named("http"),
	})

	// 4. Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		return server.Stop(context.Background())
	})
	if cfg.Artifacts.Watch {
		watcher := ml.NewArtifactWatcher(store, cfg.Artifacts.Debounce, logger.Named("watcher"))
		g.Go(func() error { return watcher.Watch(ctx) })
	}

	return g.Wait()
}
