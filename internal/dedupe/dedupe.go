package dedupe

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Strategy selects which deduplication pass runs over an extracted frame set.
// Sequential and Diversity are observably different algorithms and stay as
// distinct strategies even though their signatures match: Sequential rejects a
// frame on the first kept neighbor within the threshold, Diversity accepts a
// frame only when its minimum distance to every kept frame is large enough.
type Strategy string

const (
	StrategyNone       Strategy = "none"
	StrategyExact      Strategy = "exact"
	StrategySequential Strategy = "sequential"
	StrategyAggressive Strategy = "aggressive"
	StrategyDiversity  Strategy = "diversity"
)

const (
	// DefaultThreshold is the sequential pass default. 3-5 is safe, 6-8
	// aggressive, 9-10 very aggressive.
	DefaultThreshold = 5

	// AggressiveThreshold is the sequential threshold used by StrategyAggressive.
	AggressiveThreshold = 9

	// DefaultMinDistance is the diversity pass default.
	DefaultMinDistance = 12
)

// Options carries per-pass tuning. Zero values fall back to the defaults.
type Options struct {
	Threshold   int
	MinDistance int
}

// Result is the outcome of one dedupe pass. Kept preserves processing order.
// Skipped frames were unhashable; they stay on disk and never influence
// comparisons.
type Result struct {
	Kept    []string
	Removed []string
	Skipped []string
}

// Deduper runs deduplication passes over ordered frame file lists. A pass
// never mutates the filesystem; Apply performs the deletions afterwards.
type Deduper struct {
	hash   HashFunc
	logger *zap.Logger
}

func New(hash HashFunc, logger *zap.Logger) *Deduper {
	if hash == nil {
		hash = HashFile
	}
	return &Deduper{hash: hash, logger: logger}
}

// Run dispatches to the pass named by strategy. The frames slice must be in
// chronological order for the perceptual strategies; zero-padded sequential
// filenames sort that way already.
func (d *Deduper) Run(strategy Strategy, frames []string, opts Options) (Result, error) {
	switch strategy {
	case StrategyNone, "":
		return Result{Kept: frames}, nil
	case StrategyExact:
		return d.Exact(frames), nil
	case StrategySequential:
		t := opts.Threshold
		if t <= 0 {
			t = DefaultThreshold
		}
		return d.Sequential(frames, t), nil
	case StrategyAggressive:
		t := opts.Threshold
		if t <= 0 {
			t = AggressiveThreshold
		}
		return d.Sequential(frames, t), nil
	case StrategyDiversity:
		m := opts.MinDistance
		if m <= 0 {
			m = DefaultMinDistance
		}
		return d.Diversity(frames, m), nil
	default:
		return Result{}, fmt.Errorf("unknown dedupe strategy %q", strategy)
	}
}

// Apply deletes the removed frames from disk. The first deletion failure is
// returned and aborts the pass; frames already deleted stay deleted.
func (d *Deduper) Apply(res Result) error {
	for _, path := range res.Removed {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove duplicate frame %s: %w", path, err)
		}
	}
	return nil
}

// ParseStrategy validates a strategy name from config or flags.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyNone, StrategyExact, StrategySequential, StrategyAggressive, StrategyDiversity:
		return Strategy(s), nil
	case "":
		return StrategyNone, nil
	default:
		return "", fmt.Errorf("unknown dedupe strategy %q", s)
	}
}
