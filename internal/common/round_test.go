package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	assert.Equal(t, 2.35, Round(2.345))
	assert.Equal(t, -2.35, Round(-2.345))
	assert.Equal(t, 10.1, Round(10.1))
	assert.Equal(t, 0.0, Round(0.001))
	assert.Equal(t, 123456789.12, Round(123456789.123))
	assert.True(t, math.IsNaN(Round(math.NaN())))
}

func TestRoundPtr(t *testing.T) {
	assert.Nil(t, RoundPtr(nil))
	v := 1.239
	assert.Equal(t, 1.24, *RoundPtr(&v))
}
