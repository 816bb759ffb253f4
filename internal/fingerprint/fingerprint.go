// Package fingerprint computes difference hashes so runs on the same subject
// can be found in the history even after re-encoding or resizing.
package fingerprint

import (
	"fmt"
	"image"
	"strconv"

	"golang.org/x/image/draw"
)

// DefaultDistance is the Hamming distance under which two subjects are
// treated as the same picture.
const DefaultDistance = 10

// DHash computes a 64-bit difference hash of img.
func DHash(img image.Image) uint64 {
	// 9 columns give 8 horizontal differences per row
	small := image.NewGray(image.Rect(0, 0, 9, 8))
	draw.BiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	var hash uint64
	bit := 63
	for y := range 8 {
		row := small.Pix[y*small.Stride:]
		for x := range 8 {
			if row[x] > row[x+1] {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

// Hex formats a hash the way it is stored in the run history.
func Hex(hash uint64) string {
	return fmt.Sprintf("%016x", hash)
}

// ParseHex is the inverse of Hex.
func ParseHex(s string) (uint64, error) {
	if len(s) != 16 {
		return 0, fmt.Errorf("fingerprint must be 16 hex digits, got %q", s)
	}
	hash, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q: %w", s, err)
	}
	return hash, nil
}

// HammingDistance computes the Hamming distance between two 64-bit hashes.
func HammingDistance(hash1, hash2 uint64) int {
	xor := hash1 ^ hash2
	distance := 0
	for xor != 0 {
		distance++
		xor &= xor - 1 // Clear lowest set bit
	}
	return distance
}

// Similar returns true if two hashes are within the given threshold.
func Similar(hash1, hash2 uint64, threshold int) bool {
	return HammingDistance(hash1, hash2) <= threshold
}
