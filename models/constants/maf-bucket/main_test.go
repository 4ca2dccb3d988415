package mafBucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketKeys(t *testing.T) {
	keys := make([]string, 0, len(All))
	for _, b := range All {
		keys = append(keys, b.Key())
	}

	assert.Equal(t, []string{
		"0-0.05", "0.05-0.1", "0.1-0.15", "0.15-0.2",
		"0.2-0.3", "0.3-0.4", "0.4-0.5", "0.5-1",
	}, keys)
}

func TestForFrequency(t *testing.T) {
	t.Run("boundaries fall into the upper bucket", func(t *testing.T) {
		b, ok := ForFrequency(0.05)
		assert.True(t, ok)
		assert.Equal(t, "0.05-0.1", b.Key())

		b, ok = ForFrequency(0.5)
		assert.True(t, ok)
		assert.Equal(t, "0.5-1", b.Key())
	})

	t.Run("one is kept by the closed last bucket", func(t *testing.T) {
		b, ok := ForFrequency(1)
		assert.True(t, ok)
		assert.Equal(t, "0.5-1", b.Key())
	})

	t.Run("out of range frequencies have no bucket", func(t *testing.T) {
		_, ok := ForFrequency(1.5)
		assert.False(t, ok)
		_, ok = ForFrequency(-0.1)
		assert.False(t, ok)
	})
}

func TestOverlapping(t *testing.T) {
	t.Run("range straddling a boundary reads both neighbours only", func(t *testing.T) {
		buckets := Overlapping(0.04, 0.06)
		assert.Len(t, buckets, 2)
		assert.Equal(t, "0-0.05", buckets[0].Key())
		assert.Equal(t, "0.05-0.1", buckets[1].Key())
	})

	t.Run("range ending on a boundary excludes the next bucket", func(t *testing.T) {
		buckets := Overlapping(0, 0.05)
		assert.Len(t, buckets, 1)
		assert.Equal(t, "0-0.05", buckets[0].Key())
	})

	t.Run("frequency one is reachable", func(t *testing.T) {
		buckets := Overlapping(1, 1.01)
		assert.Len(t, buckets, 1)
		assert.Equal(t, "0.5-1", buckets[0].Key())
	})

	t.Run("full range reads everything", func(t *testing.T) {
		assert.Len(t, Overlapping(0, 1), len(All))
	})
}

func TestParseRange(t *testing.T) {
	lo, hi, err := ParseRange("0.04-0.06")
	assert.Nil(t, err)
	assert.Equal(t, 0.04, lo)
	assert.Equal(t, 0.06, hi)

	for _, bad := range []string{"", "0.1", "0.2-0.1", "a-b", "0.1-0.1", "-0.1-0.2", "1.5-2"} {
		_, _, err := ParseRange(bad)
		assert.NotNil(t, err, bad)
	}
}
