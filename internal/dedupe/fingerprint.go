package dedupe

import (
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"math/bits"
	"os"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/bmp"
)

// ErrDecode marks a frame whose pixel content could not be read. Passes skip
// such frames: they are neither kept nor removed.
var ErrDecode = errors.New("frame image not decodable")

// FingerprintBits is the width of a perceptual fingerprint.
const FingerprintBits = 64

// Fingerprint is a fixed-width perceptual signature of a frame's visual
// content. Two fingerprints of the same width are compared by Hamming
// distance; identical pixel content always yields an identical fingerprint.
type Fingerprint struct {
	Bits  uint64
	Width int
}

// Distance returns the Hamming distance between two fingerprints.
// It is defined only for fingerprints of equal width.
func (f Fingerprint) Distance(other Fingerprint) (int, error) {
	if f.Width != other.Width {
		return 0, fmt.Errorf("fingerprint width mismatch: %d vs %d", f.Width, other.Width)
	}
	return bits.OnesCount64(f.Bits ^ other.Bits), nil
}

// HashFunc computes the fingerprint of the frame stored at path.
type HashFunc func(path string) (Fingerprint, error)

// HashFile is the default HashFunc: it decodes the frame image and computes a
// 64-bit perception hash over it.
func HashFile(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("open frame %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("decode frame %s: %w: %v", path, ErrDecode, err)
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("phash frame %s: %w: %v", path, ErrDecode, err)
	}

	return Fingerprint{Bits: hash.GetHash(), Width: FingerprintBits}, nil
}
