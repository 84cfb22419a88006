package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/edgarberlinck/video-to-image/internal/dedupe"
	"github.com/edgarberlinck/video-to-image/internal/domain/entity"
	"github.com/edgarberlinck/video-to-image/internal/domain/port"
	"github.com/edgarberlinck/video-to-image/internal/extract"
	"github.com/edgarberlinck/video-to-image/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ProcessVideoUseCase struct {
	repo       port.JobRepository
	storage    port.VideoStorage
	searcher   *extract.Searcher
	prober     port.VideoProber
	compressor port.FrameCompressor
	deduper    *dedupe.Deduper
	zipper     port.Zipper
	publisher  port.StatusPublisher
	dlq        port.DLQPublisher
	notifier   port.FailureNotifier
	logger     *zap.Logger
	cfg        ProcessVideoConfig
}

type ProcessVideoConfig struct {
	TempDir     string
	MaxRetries  int
	FrameFormat string
	FramePrefix string
	ExtractPlan extract.Plan
	Strategy    dedupe.Strategy
	DedupeOpts  dedupe.Options
	Compress    bool
}

func NewProcessVideoUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	searcher *extract.Searcher,
	prober port.VideoProber,
	compressor port.FrameCompressor,
	deduper *dedupe.Deduper,
	zipper port.Zipper,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessVideoConfig,
) *ProcessVideoUseCase {
	return &ProcessVideoUseCase{
		repo:       repo,
		storage:    storage,
		searcher:   searcher,
		prober:     prober,
		compressor: compressor,
		deduper:    deduper,
		zipper:     zipper,
		publisher:  publisher,
		dlq:        dlq,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
	}
}

func (uc *ProcessVideoUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideoUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.VideoProcessingMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	strategy, err := uc.resolveStrategy(msg)
	if err != nil {
		log.Error("invalid dedupe strategy in message", zap.Error(err))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "invalid_strategy: "+err.Error())
		return nil
	}

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.UserID, msg.VideoKey, msg.FileSize, string(strategy), uc.cfg.MaxRetries)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.processVideoPipeline(ctx, job, msg, rawMsg, strategy, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *ProcessVideoUseCase) resolveStrategy(msg entity.VideoProcessingMessage) (dedupe.Strategy, error) {
	if msg.Strategy == "" {
		return uc.cfg.Strategy, nil
	}
	return dedupe.ParseStrategy(msg.Strategy)
}

func (uc *ProcessVideoUseCase) processVideoPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.VideoProcessingMessage,
	rawMsg []byte,
	strategy dedupe.Strategy,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.cfg.TempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download video from MinIO
	dlStart := time.Now()
	ctx2, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input.mp4")
	if err := uc.storage.DownloadVideo(ctx2, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	duration, err := uc.prober.Duration(ctx, videoPath)
	if err != nil {
		log.Warn("could not get video duration", zap.Error(err))
	}

	// Extract frames, searching for a working scene threshold
	exStart := time.Now()
	ctx3, spanEx := tracer.Start(ctx, "extract_frames")
	framesDir := filepath.Join(workDir, "frames")
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		spanEx.End()
		return fmt.Errorf("create frames dir: %w", err)
	}
	outcome, threshold, err := uc.searcher.Run(ctx3, port.ExtractRequest{
		VideoPath: videoPath,
		OutputDir: framesDir,
		Prefix:    uc.cfg.FramePrefix,
		Format:    uc.cfg.FrameFormat,
	}, uc.cfg.ExtractPlan)
	spanEx.End()
	if err != nil {
		if errors.Is(err, extract.ErrExtractionEmpty) {
			// Nothing to retry: the video yields no frames at any tier.
			log.Error("extraction produced no frames", zap.Error(err))
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "extract_frames: "+err.Error())
		}
		log.Error("frame extraction failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "extract_frames: "+err.Error(), log)
	}
	metrics.JobProcessingDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())
	metrics.FramesExtractedTotal.Add(float64(outcome.FrameCount))

	job.MarkExtracted(outcome.FrameCount, threshold, duration)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Warn("failed to record extraction result", zap.Error(err))
	}

	// Lossless recompression, best-effort
	if uc.cfg.Compress {
		cpStart := time.Now()
		ctx4, spanCp := tracer.Start(ctx, "compress_frames")
		uc.compressor.CompressAll(ctx4, outcome.FramePaths)
		spanCp.End()
		metrics.JobProcessingDuration.WithLabelValues("compress").Observe(time.Since(cpStart).Seconds())
	}

	// Dedupe pass
	ddStart := time.Now()
	_, spanDd := tracer.Start(ctx, "dedupe_frames")
	opts := uc.cfg.DedupeOpts
	if msg.Threshold > 0 {
		opts.Threshold = msg.Threshold
	}
	if msg.MinDistance > 0 {
		opts.MinDistance = msg.MinDistance
	}
	result, err := uc.deduper.Run(strategy, outcome.FramePaths, opts)
	if err != nil {
		spanDd.End()
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "dedupe: "+err.Error(), log)
	}
	if err := uc.deduper.Apply(result); err != nil {
		spanDd.End()
		log.Error("frame deletion failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "dedupe_apply: "+err.Error(), log)
	}
	spanDd.End()
	metrics.JobProcessingDuration.WithLabelValues("dedupe").Observe(time.Since(ddStart).Seconds())
	metrics.FramesRemovedTotal.WithLabelValues(string(strategy)).Add(float64(len(result.Removed)))

	// Create ZIP from surviving frames
	zipStart := time.Now()
	ctx6, spanZip := tracer.Start(ctx, "create_zip")
	zipPath := filepath.Join(workDir, "frames.zip")
	survivors := append(append([]string{}, result.Kept...), result.Skipped...)
	if err := uc.zipper.CreateZip(ctx6, survivors, zipPath); err != nil {
		spanZip.End()
		log.Error("zip creation failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "create_zip: "+err.Error(), log)
	}
	spanZip.End()
	metrics.JobProcessingDuration.WithLabelValues("zip").Observe(time.Since(zipStart).Seconds())

	// Upload ZIP to MinIO
	upStart := time.Now()
	ctx7, spanUp := tracer.Start(ctx, "upload_zip")
	zipKey := fmt.Sprintf("%s/frames_%s.zip", msg.UserID, job.ID.String())
	zipFile, err := os.Open(zipPath)
	if err != nil {
		spanUp.End()
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "open_zip: "+err.Error(), log)
	}
	zipStat, _ := zipFile.Stat()
	if err := uc.storage.UploadZip(ctx7, zipKey, zipFile, zipStat.Size()); err != nil {
		zipFile.Close()
		spanUp.End()
		log.Error("zip upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_zip: "+err.Error(), log)
	}
	zipFile.Close()
	spanUp.End()
	metrics.JobProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	job.MarkCompleted(zipKey, len(result.Kept), len(result.Removed))
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed successfully",
		zap.Int("frame_count", job.FrameCount),
		zap.Int("kept", job.KeptCount),
		zap.Int("removed", job.RemovedCount),
		zap.String("strategy", job.Strategy),
		zap.Float64("scene_threshold", job.SceneThreshold),
		zap.String("zip_key", zipKey),
	)

	return nil
}

func (uc *ProcessVideoUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.VideoProcessingMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessVideoUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.VideoProcessingMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, errMsg)
	}

	return nil
}

func (uc *ProcessVideoUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.VideoStatusMessage{
		JobID:          job.ID,
		UserID:         job.UserID,
		Status:         job.Status,
		VideoKey:       job.VideoKey,
		ZipKey:         job.ZipKey,
		Strategy:       job.Strategy,
		SceneThreshold: job.SceneThreshold,
		FrameCount:     job.FrameCount,
		KeptCount:      job.KeptCount,
		RemovedCount:   job.RemovedCount,
		Duration:       job.VideoDuration,
		ErrorMessage:   job.ErrorMessage,
		Attempt:        job.Attempt,
		MaxAttempts:    job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
