package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
)

// Exact removes byte-identical frames. Frames are grouped by the SHA-256
// digest of their raw bytes; within each group the lexically first path
// survives and the rest are marked removed. Frames that cannot be read are
// skipped. Empty input yields an empty result.
func (d *Deduper) Exact(frames []string) Result {
	type entry struct {
		path   string
		digest string
	}

	entries := make([]entry, 0, len(frames))
	var res Result
	for _, path := range frames {
		digest, err := digestFile(path)
		if err != nil {
			d.logger.Warn("frame unreadable, skipping", zap.String("frame", path), zap.Error(err))
			res.Skipped = append(res.Skipped, path)
			continue
		}
		entries = append(entries, entry{path: path, digest: digest})
	}

	// Stable (digest, path) order groups duplicates contiguously.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].digest != entries[j].digest {
			return entries[i].digest < entries[j].digest
		}
		return entries[i].path < entries[j].path
	})

	prev := ""
	for _, e := range entries {
		if e.digest == prev {
			res.Removed = append(res.Removed, e.path)
			continue
		}
		prev = e.digest
		res.Kept = append(res.Kept, e.path)
	}

	d.logger.Info("exact dedupe pass finished",
		zap.Int("kept", len(res.Kept)),
		zap.Int("removed", len(res.Removed)),
	)
	return res
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
