// Package extract drives the external frame extractor: it finds a working
// scene-detection threshold by descending search and degrades through filter
// fallbacks when extraction keeps coming back empty.
package extract

import (
	"context"
	"errors"

	"github.com/edgarberlinck/video-to-image/internal/domain/port"
	"github.com/edgarberlinck/video-to-image/internal/infra/metrics"
	"go.uber.org/zap"
)

// ErrExtractionEmpty reports that every tier, filters included and disabled,
// produced zero frames. It is terminal for the current video only.
var ErrExtractionEmpty = errors.New("extraction produced no frames at any fallback tier")

// rangeEpsilon absorbs floating-point drift when stepping down to the lower
// bound, so hi - k*step == lo still counts as in range.
const rangeEpsilon = 1e-9

// fallbackFPS and fallbackScaleWidth are the minimal fixed settings of the
// last fallback tier.
const (
	fallbackFPS        = 1
	fallbackScaleWidth = 640
)

// Plan describes how extraction should be attempted for one video.
//
// When Step > 0 the searcher tries scene thresholds Hi, Hi-Step, ... down to
// Lo (inclusive) and accepts the first one yielding a nonzero frame count.
// The greedy descent assumes stricter thresholds yield fewer or equal frames;
// a non-monotonic signal may settle on a suboptimal threshold and that is
// accepted.
//
// When Step <= 0, a single invocation runs with Threshold (scene select when
// > 0) or with the Unique drop filter.
type Plan struct {
	Threshold  float64
	Hi         float64
	Lo         float64
	Step       float64
	Unique     bool
	FPS        float64
	ScaleWidth int
}

// Searcher wraps a FrameExtractor with threshold search and fallback tiers.
type Searcher struct {
	extractor port.FrameExtractor
	logger    *zap.Logger
}

func NewSearcher(extractor port.FrameExtractor, logger *zap.Logger) *Searcher {
	return &Searcher{extractor: extractor, logger: logger}
}

// Run executes the plan against req and returns the first non-empty outcome
// together with the scene threshold that produced it (0 when no scene filter
// was active). Only the frame count of each outcome drives the search; an
// extractor invocation error is logged and otherwise ignored, so stale files
// matching the prefix read as success.
func (s *Searcher) Run(ctx context.Context, req port.ExtractRequest, plan Plan) (port.ExtractOutcome, float64, error) {
	if plan.Step > 0 {
		for t := plan.Hi; t >= plan.Lo-rangeEpsilon; t -= plan.Step {
			out := s.invoke(ctx, req, port.FilterSpec{
				SceneThreshold: t,
				FPS:            plan.FPS,
				ScaleWidth:     plan.ScaleWidth,
			})
			if out.FrameCount > 0 {
				s.logger.Info("scene threshold accepted",
					zap.Float64("threshold", t),
					zap.Int("frames", out.FrameCount),
				)
				return out, t, nil
			}
			s.logger.Debug("scene threshold yielded no frames", zap.Float64("threshold", t))
		}
		return s.fallback(ctx, req, plan)
	}

	out := s.invoke(ctx, req, port.FilterSpec{
		SceneThreshold: plan.Threshold,
		Unique:         plan.Unique,
		FPS:            plan.FPS,
		ScaleWidth:     plan.ScaleWidth,
	})
	if out.FrameCount > 0 {
		return out, plan.Threshold, nil
	}
	return s.fallback(ctx, req, plan)
}

// fallback walks the two degradation tiers: first filters disabled with
// fps/scale preserved, then minimal fixed settings.
func (s *Searcher) fallback(ctx context.Context, req port.ExtractRequest, plan Plan) (port.ExtractOutcome, float64, error) {
	s.logger.Warn("extraction empty, retrying with filters disabled",
		zap.String("video", req.VideoPath),
	)
	out := s.invoke(ctx, req, port.FilterSpec{FPS: plan.FPS, ScaleWidth: plan.ScaleWidth})
	if out.FrameCount > 0 {
		return out, 0, nil
	}

	s.logger.Warn("extraction still empty, retrying with minimal fixed settings",
		zap.String("video", req.VideoPath),
		zap.Float64("fps", fallbackFPS),
		zap.Int("scale_width", fallbackScaleWidth),
	)
	out = s.invoke(ctx, req, port.FilterSpec{FPS: fallbackFPS, ScaleWidth: fallbackScaleWidth})
	if out.FrameCount > 0 {
		return out, 0, nil
	}

	return port.ExtractOutcome{}, 0, ErrExtractionEmpty
}

func (s *Searcher) invoke(ctx context.Context, req port.ExtractRequest, filter port.FilterSpec) port.ExtractOutcome {
	req.Filter = filter
	metrics.SceneSearchAttemptsTotal.Inc()
	out := s.extractor.Extract(ctx, req)
	if out.InvokeErr != nil {
		// Frame count stays authoritative even when the extractor itself
		// reported failure.
		s.logger.Warn("extractor invocation reported error",
			zap.String("video", req.VideoPath),
			zap.Int("frames", out.FrameCount),
			zap.Error(out.InvokeErr),
		)
	}
	return out
}
