package models

import (
	"errors"
	"testing"

	"github.com/G2Lab/PrecisionChain/models/constants"
	"github.com/G2Lab/PrecisionChain/models/faults"

	"github.com/stretchr/testify/assert"
)

func TestParseAggregateKey(t *testing.T) {
	t.Run("plain key", func(t *testing.T) {
		k, err := ParseAggregateKey("12345:A:G:1|0")
		assert.Nil(t, err)
		assert.Equal(t, int64(12345), k.Position)
		assert.Equal(t, "A", k.Ref)
		assert.Equal(t, "G", k.Alt)
		assert.Equal(t, constants.Genotype("1|0"), k.Genotype)
	})

	t.Run("alt containing separators is rebuilt", func(t *testing.T) {
		k, err := ParseAggregateKey("99:T:<DEL:ME>,C:2|1")
		assert.Nil(t, err)
		assert.Equal(t, "<DEL:ME>,C", k.Alt)
		assert.Equal(t, constants.Genotype("2|1"), k.Genotype)
		assert.Equal(t, "99:T:<DEL:ME>,C:2|1", k.String())
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseAggregateKey("pos:A:G:1|0")
		assert.True(t, errors.Is(err, faults.ErrMalformedRecord))

		_, err = ParseAggregateKey("1:A:G")
		assert.True(t, faults.IsErrMalformed(err))
	})
}

func TestNewAggregate(t *testing.T) {
	assert.Equal(t, 0.25, NewAggregate(1, 4).Frequency)
	assert.Equal(t, 0.0, NewAggregate(0, 0).Frequency)
}

func TestVariantKeyValidate(t *testing.T) {
	assert.Nil(t, VariantKey{Position: 10, Ref: "A", Alt: "C,T"}.Validate())
	assert.NotNil(t, VariantKey{Position: 0, Ref: "A", Alt: "C"}.Validate())
	assert.NotNil(t, VariantKey{Position: 10, Ref: "A", Alt: "C,"}.Validate())
	assert.Equal(t, 2, VariantKey{Position: 10, Ref: "A", Alt: "C,T"}.AltCount())
}
