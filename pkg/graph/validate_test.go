package graph

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateType(t *testing.T) {
	assert.NoError(t, ValidateType("user"))
	assert.ErrorIs(t, ValidateType(""), ErrInvalidValue)
	assert.ErrorIs(t, ValidateType(strings.Repeat("a", 256)), ErrValueTooLong)
	assert.NoError(t, ValidateType(strings.Repeat("a", 255)))
}

func TestValidateWeight(t *testing.T) {
	assert.NoError(t, ValidateWeight(0))
	assert.NoError(t, ValidateWeight(1.0))
	assert.NoError(t, ValidateWeight(-1.0))
	assert.ErrorIs(t, ValidateWeight(1.0001), ErrInvalidValue)
	assert.ErrorIs(t, ValidateWeight(-1.0001), ErrInvalidValue)
	assert.ErrorIs(t, ValidateWeight(math.NaN()), ErrInvalidValue)
	assert.ErrorIs(t, ValidateWeight(math.Inf(1)), ErrInvalidValue)
	assert.ErrorIs(t, ValidateWeight(math.Inf(-1)), ErrInvalidValue)
}
