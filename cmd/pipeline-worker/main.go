package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tendant/media-pipeline/internal/config"
	"github.com/tendant/media-pipeline/internal/dbosruntime"
	"github.com/tendant/media-pipeline/internal/dedupe"
	"github.com/tendant/media-pipeline/internal/enrich"
	"github.com/tendant/media-pipeline/internal/extract"
	"github.com/tendant/media-pipeline/internal/handlers"
	"github.com/tendant/media-pipeline/internal/logger"
	"github.com/tendant/media-pipeline/internal/mediafs"
	"github.com/tendant/media-pipeline/internal/metrics"
	"github.com/tendant/media-pipeline/internal/replicate"
	"github.com/tendant/media-pipeline/internal/store"
	"github.com/tendant/media-pipeline/internal/taskmon"
	"github.com/tendant/media-pipeline/internal/transcode"
	"github.com/tendant/media-pipeline/internal/workflows"
	"github.com/tendant/media-pipeline/pkg/pipeline"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	tracker, err := dedupe.NewTracker(st.DB())
	if err != nil {
		log.Fatalf("Failed to initialize dedupe tracker: %v", err)
	}

	media, err := mediafs.New(cfg.MediaRoot)
	if err != nil {
		log.Fatalf("Failed to prepare media root: %v", err)
	}

	// External tool validation happens at construction so a misconfigured
	// host fails at startup, not mid-stage.
	videoTranscoder, err := transcode.NewVideoTranscoder()
	if err != nil {
		log.Fatalf("Video transcoder unavailable: %v", err)
	}
	audioTranscoder, err := transcode.NewAudioTranscoder()
	if err != nil {
		log.Fatalf("Audio transcoder unavailable: %v", err)
	}
	pdfOptimizer, err := transcode.NewPDFOptimizer()
	if err != nil {
		log.Fatalf("PDF optimizer unavailable: %v", err)
	}
	digital, err := extract.NewDigitalExtractor()
	if err != nil {
		log.Fatalf("Digital extractor unavailable: %v", err)
	}
	ocr, err := extract.NewOCRExtractor(cfg.Limits.OCRMinConfidence, cfg.Limits.OCRMinTextLen)
	if err != nil {
		log.Fatalf("OCR extractor unavailable: %v", err)
	}
	engine := extract.NewEngine(digital, ocr)

	var monitor *taskmon.Monitor
	var limiter *enrich.RateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		monitor = taskmon.New(redisClient)
		limiter = enrich.NewRateLimiter(redisClient, cfg.Enrich.RequestsPerMin)
	}

	var generator enrich.Generator
	if cfg.Enrich.Enabled {
		generator, err = enrich.NewGeminiClient(cfg.Enrich)
		if err != nil {
			log.Fatalf("Enrichment client unavailable: %v", err)
		}
	}

	var replicator *replicate.Replicator
	if cfg.Replication.Enabled {
		replicator, err = replicate.NewReplicator(cfg.Replication)
		if err != nil {
			log.Fatalf("Replicator unavailable: %v", err)
		}
		if err := replicator.EnsureBucket(ctx); err != nil {
			log.Fatalf("Failed to ensure bucket: %v", err)
		}
	}

	dbosRuntime, err := dbosruntime.NewRuntime(ctx, dbosruntime.Config{
		DatabaseURL: cfg.DatabaseURL,
		AppName:     cfg.AppName,
		QueueName:   cfg.QueueName,
		Concurrency: cfg.Concurrency,
	})
	if err != nil {
		log.Fatalf("Failed to initialize DBOS: %v", err)
	}

	runner := workflows.NewWorkflowRunner(dbosRuntime, st, monitor)

	replicationEnabled := cfg.Replication.Enabled
	runner.Register(pipeline.JobTranscodeVideo,
		workflows.NewTranscodeWorkflow(st, videoTranscoder, cfg.MediaRoot, replicationEnabled))
	runner.Register(pipeline.JobCompressAudio,
		workflows.NewCompressAudioWorkflow(st, audioTranscoder, cfg.MediaRoot, cfg.Limits.AudioMaxSizeBytes, replicationEnabled))
	runner.Register(pipeline.JobOptimizePDF,
		workflows.NewOptimizePDFWorkflow(st, pdfOptimizer, cfg.MediaRoot, cfg.Limits.PDFOptimizeThreshold, cfg.Limits.PDFKeepRatio))
	runner.Register(pipeline.JobExtractText,
		workflows.NewExtractTextWorkflow(st, engine, cfg.MediaRoot, replicationEnabled))
	runner.Register(pipeline.JobEnrich,
		workflows.NewEnrichWorkflow(st, generator, limiter, cfg.Enrich.Enabled))
	if replicationEnabled {
		runner.Register(pipeline.JobReplicate,
			workflows.NewReplicateWorkflow(st, replicator, cfg.MediaRoot))
	}
	runner.Register(pipeline.JobFinalize,
		workflows.NewFinalizeWorkflow(st, replicationEnabled))
	runner.Register(pipeline.JobDeleteFiles,
		workflows.NewDeleteFilesWorkflow(st, media, replicationEnabled))

	// Launch DBOS (must be done after workflow registration)
	if err := dbosRuntime.Launch(); err != nil {
		log.Fatalf("Failed to launch DBOS: %v", err)
	}
	defer dbosRuntime.Shutdown(10 * time.Second)

	dispatcherCtx, stopDispatcher := context.WithCancel(ctx)
	defer stopDispatcher()
	dispatcher := workflows.NewDispatcher(st, runner, cfg.Limits.StaleProcessingAge)
	go dispatcher.Run(dispatcherCtx)

	api := handlers.NewAPI(st, runner, monitor, dbosRuntime, media, tracker)
	router := mux.NewRouter()
	api.Routes(router)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Info(ctx, "pipeline worker starting",
			"addr", cfg.HTTPAddr, "queue", dbosRuntime.QueueName(),
			"concurrency", dbosRuntime.Concurrency(),
			"replication", replicationEnabled, "enrichment", cfg.Enrich.Enabled)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down")
	stopDispatcher()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	logger.Info(ctx, "server stopped")
}
