package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/edgarberlinck/video-to-image/internal/domain/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubExtractor fabricates outcomes from the filter spec alone and records
// every invocation.
type stubExtractor struct {
	calls   []port.FilterSpec
	outcome func(f port.FilterSpec) int
}

func (s *stubExtractor) Extract(_ context.Context, req port.ExtractRequest) port.ExtractOutcome {
	s.calls = append(s.calls, req.Filter)
	n := s.outcome(req.Filter)
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("%s%04d.%s", req.Prefix, i+1, req.Format)
	}
	return port.ExtractOutcome{FramePaths: paths, FrameCount: n}
}

func testRequest() port.ExtractRequest {
	return port.ExtractRequest{
		VideoPath: "input.mp4",
		OutputDir: "frames",
		Prefix:    "frame_",
		Format:    "png",
	}
}

func TestSearchSelectsFirstWorkingThreshold(t *testing.T) {
	// Nonzero frames only at thresholds <= 0.07: scanning 0.10, 0.09, 0.08,
	// 0.07 must stop at 0.07.
	stub := &stubExtractor{outcome: func(f port.FilterSpec) int {
		if f.SceneThreshold > 0 && f.SceneThreshold <= 0.07+1e-9 {
			return 3
		}
		return 0
	}}
	s := NewSearcher(stub, zap.NewNop())

	out, threshold, err := s.Run(context.Background(), testRequest(), Plan{Hi: 0.10, Lo: 0.05, Step: 0.01})
	require.NoError(t, err)

	assert.Equal(t, 3, out.FrameCount)
	assert.InDelta(t, 0.07, threshold, 1e-6)
	require.Len(t, stub.calls, 4)
	assert.InDelta(t, 0.10, stub.calls[0].SceneThreshold, 1e-6)
	assert.InDelta(t, 0.08, stub.calls[2].SceneThreshold, 1e-6)
}

func TestSearchReachesInclusiveLowerBound(t *testing.T) {
	// hi - 5*step lands exactly on lo modulo floating point drift; the last
	// candidate must still be tried.
	stub := &stubExtractor{outcome: func(f port.FilterSpec) int {
		if f.SceneThreshold > 0 && f.SceneThreshold <= 0.05+1e-9 {
			return 1
		}
		return 0
	}}
	s := NewSearcher(stub, zap.NewNop())

	_, threshold, err := s.Run(context.Background(), testRequest(), Plan{Hi: 0.10, Lo: 0.05, Step: 0.01})
	require.NoError(t, err)
	assert.InDelta(t, 0.05, threshold, 1e-6)
}

func TestSearchFallsBackToFiltersDisabled(t *testing.T) {
	// Zero frames at every scene setting, nonzero once filters are gone: the
	// filters-disabled tier must be accepted without trying the minimal tier.
	stub := &stubExtractor{outcome: func(f port.FilterSpec) int {
		if f.SceneThreshold == 0 && !f.Unique {
			return 7
		}
		return 0
	}}
	s := NewSearcher(stub, zap.NewNop())

	out, threshold, err := s.Run(context.Background(), testRequest(), Plan{Hi: 0.10, Lo: 0.08, Step: 0.01, FPS: 2, ScaleWidth: 320})
	require.NoError(t, err)

	assert.Equal(t, 7, out.FrameCount)
	assert.Zero(t, threshold)

	last := stub.calls[len(stub.calls)-1]
	assert.Zero(t, last.SceneThreshold)
	assert.False(t, last.Unique)
	assert.InDelta(t, 2.0, last.FPS, 1e-9, "fps must be preserved in the first fallback tier")
	assert.Equal(t, 320, last.ScaleWidth, "scale must be preserved in the first fallback tier")

	// 3 scene candidates plus one fallback invocation, minimal tier untouched.
	require.Len(t, stub.calls, 4)
}

func TestSearchMinimalFallbackTier(t *testing.T) {
	stub := &stubExtractor{outcome: func(f port.FilterSpec) int {
		if f.SceneThreshold == 0 && !f.Unique && f.FPS == fallbackFPS && f.ScaleWidth == fallbackScaleWidth {
			return 2
		}
		return 0
	}}
	s := NewSearcher(stub, zap.NewNop())

	out, _, err := s.Run(context.Background(), testRequest(), Plan{Threshold: 0.3})
	require.NoError(t, err)
	assert.Equal(t, 2, out.FrameCount)

	// Fixed threshold, filters-disabled tier, then minimal tier.
	require.Len(t, stub.calls, 3)
}

func TestSearchExhaustedIsTerminal(t *testing.T) {
	stub := &stubExtractor{outcome: func(port.FilterSpec) int { return 0 }}
	s := NewSearcher(stub, zap.NewNop())

	_, _, err := s.Run(context.Background(), testRequest(), Plan{Hi: 0.10, Lo: 0.05, Step: 0.01})
	assert.ErrorIs(t, err, ErrExtractionEmpty)
}

func TestSearchUniqueFilterSingleInvocation(t *testing.T) {
	stub := &stubExtractor{outcome: func(f port.FilterSpec) int {
		if f.Unique {
			return 5
		}
		return 0
	}}
	s := NewSearcher(stub, zap.NewNop())

	out, threshold, err := s.Run(context.Background(), testRequest(), Plan{Unique: true})
	require.NoError(t, err)
	assert.Equal(t, 5, out.FrameCount)
	assert.Zero(t, threshold)
	require.Len(t, stub.calls, 1)
	assert.True(t, stub.calls[0].Unique)
}

func TestSearchCountIsAuthoritativeDespiteInvokeError(t *testing.T) {
	// An extractor crash that still leaves files behind reads as success.
	crashing := &crashingExtractor{}
	s := NewSearcher(crashing, zap.NewNop())

	out, threshold, err := s.Run(context.Background(), testRequest(), Plan{Threshold: 0.3})
	require.NoError(t, err)
	assert.Equal(t, 4, out.FrameCount)
	assert.InDelta(t, 0.3, threshold, 1e-9)
}

type crashingExtractor struct{}

func (c *crashingExtractor) Extract(context.Context, port.ExtractRequest) port.ExtractOutcome {
	return port.ExtractOutcome{
		FramePaths: []string{"a", "b", "c", "d"},
		FrameCount: 4,
		InvokeErr:  fmt.Errorf("ffmpeg exited 1"),
	}
}
