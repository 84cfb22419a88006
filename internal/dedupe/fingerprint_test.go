package dedupe

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T, dir, name string, seed uint8) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x)*seed + uint8(y)})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestHashFileDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := writeTestImage(t, dir, "a.png", 3)
	b := writeTestImage(t, dir, "b.png", 3)

	fpA, err := HashFile(a)
	require.NoError(t, err)
	fpB, err := HashFile(b)
	require.NoError(t, err)

	assert.Equal(t, FingerprintBits, fpA.Width)
	assert.Equal(t, fpA.Bits, fpB.Bits, "identical pixel content must hash identically")

	dist, err := fpA.Distance(fpB)
	require.NoError(t, err)
	assert.Zero(t, dist)
}

func TestHashFileUndecodable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))

	_, err := HashFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDecode)
}

func TestDistanceSymmetric(t *testing.T) {
	a := Fingerprint{Bits: 0xDEADBEEF, Width: 64}
	b := Fingerprint{Bits: 0xCAFEBABE, Width: 64}

	ab, err := a.Distance(b)
	require.NoError(t, err)
	ba, err := b.Distance(a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)

	self, err := a.Distance(a)
	require.NoError(t, err)
	assert.Zero(t, self)
}

func TestDistanceWidthMismatch(t *testing.T) {
	a := Fingerprint{Bits: 1, Width: 64}
	b := Fingerprint{Bits: 1, Width: 32}
	_, err := a.Distance(b)
	assert.Error(t, err)
}
