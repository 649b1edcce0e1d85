// Package simhash fingerprints page content so that a paginated crawl can
// tell when a "next" control has led back to a page it already extracted.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// shingleSize is the rune window used for text that has no word breaks.
const shingleSize = 3

// Fingerprint computes a 64-bit SimHash of text. Space-separated words are
// features; runs of CJK characters are split into rune shingles since they
// carry no word boundaries.
func Fingerprint(text string) uint64 {
	return FingerprintFeatures(Features(text))
}

// FingerprintFeatures computes a SimHash over precomputed features using
// FNV-64a per feature and bit vector accumulation.
func FingerprintFeatures(features []string) uint64 {
	if len(features) == 0 {
		return 0
	}

	var vector [64]int
	for _, f := range features {
		h := fnv.New64a()
		h.Write([]byte(f))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// Features splits text into hashing features.
func Features(text string) []string {
	var out []string
	for _, word := range strings.Fields(text) {
		if !hasIdeographs(word) {
			out = append(out, strings.ToLower(word))
			continue
		}
		out = append(out, runeShingles([]rune(word), shingleSize)...)
	}
	return out
}

func hasIdeographs(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			return true
		}
	}
	return false
}

// runeShingles returns the n-rune windows of rs, or rs itself when it is
// shorter than n.
func runeShingles(rs []rune, n int) []string {
	if len(rs) <= n {
		return []string{string(rs)}
	}
	out := make([]string, 0, len(rs)-n+1)
	for i := 0; i <= len(rs)-n; i++ {
		out = append(out, string(rs[i:i+n]))
	}
	return out
}

// Distance returns the Hamming distance between two SimHash fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar returns true if the Hamming distance between two fingerprints
// is less than or equal to the threshold.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}
