package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "v2i_jobs_processed_total",
		Help: "Total number of jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "v2i_job_processing_duration_seconds",
		Help:    "Duration of video processing pipeline",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "v2i_frames_extracted_total",
		Help: "Total number of frames extracted across all jobs",
	})

	FramesRemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "v2i_frames_removed_total",
		Help: "Total number of duplicate frames removed, by strategy",
	}, []string{"strategy"})

	SceneSearchAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "v2i_scene_search_attempts_total",
		Help: "Total number of extractor invocations made by the scene threshold search",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "v2i_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "v2i_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
