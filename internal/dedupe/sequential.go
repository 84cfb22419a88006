package dedupe

import (
	"errors"

	"go.uber.org/zap"
)

// Sequential removes frames perceptually close to an already-kept frame.
// Frames are visited in chronological order; a frame whose distance to some
// kept frame is <= threshold is removed. Comparison walks the kept set in
// insertion order and stops at the first hit, not the closest match.
// Unhashable frames are skipped: they stay on disk and are excluded from all
// future comparisons.
func (d *Deduper) Sequential(frames []string, threshold int) Result {
	var res Result
	var kept []Fingerprint

	for _, path := range frames {
		fp, err := d.hash(path)
		if err != nil {
			d.logFingerprintFailure(path, err)
			res.Skipped = append(res.Skipped, path)
			continue
		}

		duplicate := false
		for _, k := range kept {
			dist, err := fp.Distance(k)
			if err == nil && dist <= threshold {
				duplicate = true
				break
			}
		}

		if duplicate {
			res.Removed = append(res.Removed, path)
			continue
		}
		kept = append(kept, fp)
		res.Kept = append(res.Kept, path)
	}

	d.logger.Info("near-duplicate dedupe pass finished",
		zap.Int("threshold", threshold),
		zap.Int("kept", len(res.Kept)),
		zap.Int("removed", len(res.Removed)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res
}

func (d *Deduper) logFingerprintFailure(path string, err error) {
	if errors.Is(err, ErrDecode) {
		d.logger.Warn("frame not decodable, skipping", zap.String("frame", path), zap.Error(err))
		return
	}
	d.logger.Warn("fingerprint failed, skipping", zap.String("frame", path), zap.Error(err))
}
