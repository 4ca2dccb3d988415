package mafBucket

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/G2Lab/PrecisionChain/models/faults"
)

// Bucket is a half-open frequency range [Lower, Upper), except the last
// bucket which is closed at 1.
type Bucket struct {
	Lower float64
	Upper float64
}

var All = []Bucket{
	{0, 0.05},
	{0.05, 0.1},
	{0.1, 0.15},
	{0.15, 0.2},
	{0.2, 0.3},
	{0.3, 0.4},
	{0.4, 0.5},
	{0.5, 1},
}

func (b Bucket) IsLast() bool {
	return b.Upper == 1
}

// Key is the ledger key the bucket is published under, e.g. "0.05-0.1".
func (b Bucket) Key() string {
	return formatBound(b.Lower) + "-" + formatBound(b.Upper)
}

func (b Bucket) Contains(frequency float64) bool {
	if frequency < b.Lower {
		return false
	}
	if b.IsLast() {
		return frequency <= b.Upper
	}
	return frequency < b.Upper
}

// Overlaps reports whether the bucket intersects the query range [lo, hi).
func (b Bucket) Overlaps(lo float64, hi float64) bool {
	if b.IsLast() {
		return b.Lower < hi && lo <= b.Upper
	}
	return b.Lower < hi && lo < b.Upper
}

// ForFrequency returns the bucket a frequency is published in.
func ForFrequency(frequency float64) (Bucket, bool) {
	for _, b := range All {
		if b.Contains(frequency) {
			return b, true
		}
	}
	return Bucket{}, false
}

func Overlapping(lo float64, hi float64) []Bucket {
	overlapping := make([]Bucket, 0, len(All))
	for _, b := range All {
		if b.Overlaps(lo, hi) {
			overlapping = append(overlapping, b)
		}
	}
	return overlapping
}

// ParseRange reads a "lo-hi" query range. Bounds must satisfy 0 <= lo < hi
// and lo <= 1; hi may exceed 1 so that a frequency of exactly 1 can be selected.
func ParseRange(text string) (float64, float64, error) {
	parts := strings.Split(strings.TrimSpace(text), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", faults.ErrInvalidMafRange, text)
	}

	lo, loErr := strconv.ParseFloat(parts[0], 64)
	hi, hiErr := strconv.ParseFloat(parts[1], 64)
	if loErr != nil || hiErr != nil {
		return 0, 0, fmt.Errorf("%w: %q", faults.ErrInvalidMafRange, text)
	}
	if lo < 0 || lo > 1 || hi <= lo {
		return 0, 0, fmt.Errorf("%w: %q", faults.ErrInvalidMafRange, text)
	}

	return lo, hi, nil
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
