package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDiversityKeepsOnlyGloballyNovelFrames(t *testing.T) {
	frames := frameNames(5)
	bits := map[string]uint64{
		frames[0]: 0x0,
		frames[1]: 0xFFF,      // dist 12 to frame 1: kept
		frames[2]: 0x3F,       // dist 6 to frame 1: removed
		frames[3]: 0xFFF000,   // dist 12 to frame 1, 24 to frame 2: kept
		frames[4]: 0xFFF00F,   // dist 4 to frame 4: removed despite being far from 1 and 2
	}
	d := New(mapHash(bits), zap.NewNop())

	res := d.Diversity(frames, 12)
	assert.Equal(t, []string{frames[0], frames[1], frames[3]}, res.Kept)
	assert.Equal(t, []string{frames[2], frames[4]}, res.Removed)

	// Every surviving pair must be at least minDistance apart.
	for i := range res.Kept {
		for j := i + 1; j < len(res.Kept); j++ {
			a, _ := mapHash(bits)(res.Kept[i])
			b, _ := mapHash(bits)(res.Kept[j])
			dist, err := a.Distance(b)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, dist, 12)
		}
	}
}

func TestDiversityMonotoneInMinDistance(t *testing.T) {
	frames, bits := tenFrameFixture()
	d := New(mapHash(bits), zap.NewNop())

	prev := len(frames) + 1
	for m := 1; m <= 20; m++ {
		res := d.Diversity(frames, m)
		require.LessOrEqual(t, len(res.Kept), prev,
			"raising min distance to %d must not increase survivors", m)
		prev = len(res.Kept)
	}
}

func TestDiversityFirstFrameAlwaysKept(t *testing.T) {
	frames := frameNames(2)
	bits := map[string]uint64{frames[0]: 0xABC, frames[1]: 0xABC}
	d := New(mapHash(bits), zap.NewNop())

	res := d.Diversity(frames, 1)
	assert.Equal(t, []string{frames[0]}, res.Kept)
	assert.Equal(t, []string{frames[1]}, res.Removed)
}

func TestDiversityEmptyInput(t *testing.T) {
	d := New(mapHash(nil), zap.NewNop())
	res := d.Diversity(nil, 12)
	assert.Empty(t, res.Kept)
	assert.Empty(t, res.Removed)
	assert.Empty(t, res.Skipped)
}

func TestDiversityDiffersFromSequential(t *testing.T) {
	// A frame far from the most recent keeper but close to an older one is
	// removed by Diversity yet kept by Sequential with the same threshold
	// polarity reversed; the two policies are distinct algorithms.
	frames := frameNames(3)
	bits := map[string]uint64{
		frames[0]: 0x0,
		frames[1]: 0xFFFF, // dist 16 to frame 1
		frames[2]: 0x1F,   // dist 5 to frame 1, 11 to frame 2
	}
	d := New(mapHash(bits), zap.NewNop())

	div := d.Diversity(frames, 6)
	seq := d.Sequential(frames, 4)

	assert.Equal(t, []string{frames[0], frames[1]}, div.Kept)
	assert.Equal(t, []string{frames[0], frames[1], frames[2]}, seq.Kept)
}
