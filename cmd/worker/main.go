package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgarberlinck/video-to-image/internal/dedupe"
	"github.com/edgarberlinck/video-to-image/internal/extract"
	"github.com/edgarberlinck/video-to-image/internal/infra/config"
	"github.com/edgarberlinck/video-to-image/internal/infra/email"
	"github.com/edgarberlinck/video-to-image/internal/infra/ffmpeg"
	"github.com/edgarberlinck/video-to-image/internal/infra/metrics"
	miniostorage "github.com/edgarberlinck/video-to-image/internal/infra/minio"
	"github.com/edgarberlinck/video-to-image/internal/infra/optipng"
	"github.com/edgarberlinck/video-to-image/internal/infra/postgres"
	"github.com/edgarberlinck/video-to-image/internal/infra/rabbitmq"
	"github.com/edgarberlinck/video-to-image/internal/infra/tracing"
	"github.com/edgarberlinck/video-to-image/internal/usecase"
	"github.com/edgarberlinck/video-to-image/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting video-to-image worker")

	strategy, err := dedupe.ParseStrategy(cfg.DedupeStrategy)
	fatalOnErr(err, "parse dedupe strategy")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	// Migrations
	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		UploadBucket: cfg.MinIOUploadBucket,
		ZipBucket:    cfg.MinIOZipBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Infra adapters
	repo := postgres.NewJobRepository(pool)
	extractor := ffmpeg.NewExtractor(log)
	searcher := extract.NewSearcher(extractor, log)
	prober := ffmpeg.NewProber()
	compressor := optipng.NewCompressor(cfg.CompressLevel, log)
	deduper := dedupe.New(nil, log)
	zipper := ffmpeg.NewZipCreator()
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	// Use case
	uc := usecase.NewProcessVideoUseCase(
		repo, storage, searcher, prober, compressor, deduper, zipper,
		statusPub, dlqPub, notifier,
		log,
		usecase.ProcessVideoConfig{
			TempDir:     cfg.TempDir,
			MaxRetries:  cfg.MaxRetries,
			FrameFormat: cfg.FrameFormat,
			FramePrefix: cfg.FramePrefix,
			ExtractPlan: extract.Plan{
				Hi:         cfg.SceneThresholdHi,
				Lo:         cfg.SceneThresholdLo,
				Step:       cfg.SceneThresholdStep,
				FPS:        cfg.FrameFPS,
				ScaleWidth: cfg.FrameScale,
			},
			Strategy: strategy,
			DedupeOpts: dedupe.Options{
				Threshold:   cfg.DedupeThreshold,
				MinDistance: cfg.DedupeMinDistance,
			},
			Compress: cfg.CompressFrames,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQProcessingQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("video-to-image worker started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("video-to-image worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
