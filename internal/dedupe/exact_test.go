package dedupe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFrame(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExactRemovesByteIdenticalFrames(t *testing.T) {
	dir := t.TempDir()
	frames := []string{
		writeFrame(t, dir, "frame_0001.png", "aaa"),
		writeFrame(t, dir, "frame_0002.png", "bbb"),
		writeFrame(t, dir, "frame_0003.png", "aaa"),
		writeFrame(t, dir, "frame_0004.png", "ccc"),
		writeFrame(t, dir, "frame_0005.png", "aaa"),
		writeFrame(t, dir, "frame_0006.png", "bbb"),
	}

	d := New(nil, zap.NewNop())
	res := d.Exact(frames)

	assert.Len(t, res.Kept, 3)
	assert.Len(t, res.Removed, 3)

	// Surviving digests must be pairwise distinct.
	seen := map[string]bool{}
	for _, path := range res.Kept {
		digest, err := digestFile(path)
		require.NoError(t, err)
		assert.False(t, seen[digest], "digest %s survived twice", digest)
		seen[digest] = true
	}

	// Exactly one representative per duplicate group, and it is the
	// lexically first path.
	assert.Contains(t, res.Kept, frames[0])
	assert.Contains(t, res.Kept, frames[1])
	assert.Contains(t, res.Kept, frames[3])

	require.NoError(t, d.Apply(res))
	for _, path := range res.Removed {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "%s should be deleted", path)
	}
	for _, path := range res.Kept {
		_, err := os.Stat(path)
		assert.NoError(t, err, "%s should survive", path)
	}
}

func TestExactEmptyInput(t *testing.T) {
	d := New(nil, zap.NewNop())
	res := d.Exact(nil)
	assert.Empty(t, res.Kept)
	assert.Empty(t, res.Removed)
	assert.NoError(t, d.Apply(res))
}

func TestExactSkipsUnreadableFrames(t *testing.T) {
	dir := t.TempDir()
	frames := []string{
		writeFrame(t, dir, "frame_0001.png", "aaa"),
		filepath.Join(dir, "missing.png"),
	}

	d := New(nil, zap.NewNop())
	res := d.Exact(frames)

	assert.Equal(t, []string{frames[0]}, res.Kept)
	assert.Empty(t, res.Removed)
	assert.Equal(t, []string{frames[1]}, res.Skipped)
}

func TestApplyPropagatesDeletionFailure(t *testing.T) {
	d := New(nil, zap.NewNop())
	err := d.Apply(Result{Removed: []string{filepath.Join(t.TempDir(), "gone.png")}})
	assert.Error(t, err)
}
