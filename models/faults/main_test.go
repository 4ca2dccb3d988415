package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassesSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("chrom_1: %w", ErrUnknownSampleUniverse)

	assert.True(t, IsErrNotFound(wrapped))
	assert.False(t, IsErrInvalid(wrapped))
	assert.True(t, errors.Is(wrapped, ErrUnknownSampleUniverse))
	assert.False(t, errors.Is(wrapped, ErrStreamNotFound))

	twice := fmt.Errorf("query: %w", fmt.Errorf("rpc: %w", ErrLedgerUnavailable))
	assert.True(t, IsErrTransient(twice))
	assert.False(t, IsErrMalformed(twice))
}
