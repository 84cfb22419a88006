package dedupe

import "go.uber.org/zap"

// Diversity keeps only frames sufficiently far from every frame kept so far,
// maximizing pairwise minimum distance among survivors. The first hashable
// frame is kept unconditionally; each later frame is kept iff its minimum
// distance over the whole kept set is >= minDistance. Unlike Sequential this
// requires global novelty and accepts when far rather than rejecting when
// near.
func (d *Deduper) Diversity(frames []string, minDistance int) Result {
	var res Result
	var kept []Fingerprint

	for _, path := range frames {
		fp, err := d.hash(path)
		if err != nil {
			d.logFingerprintFailure(path, err)
			res.Skipped = append(res.Skipped, path)
			continue
		}

		if len(kept) == 0 {
			kept = append(kept, fp)
			res.Kept = append(res.Kept, path)
			continue
		}

		minDist := -1
		for _, k := range kept {
			dist, err := fp.Distance(k)
			if err != nil {
				continue
			}
			if minDist < 0 || dist < minDist {
				minDist = dist
			}
		}

		if minDist >= 0 && minDist < minDistance {
			res.Removed = append(res.Removed, path)
			continue
		}
		kept = append(kept, fp)
		res.Kept = append(res.Kept, path)
	}

	d.logger.Info("diversity dedupe pass finished",
		zap.Int("min_distance", minDistance),
		zap.Int("kept", len(res.Kept)),
		zap.Int("removed", len(res.Removed)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res
}
