package sample

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasureRunsOnce(t *testing.T) {
	calls := 0
	ms, err := Measure(func() error {
		calls++
		time.Sleep(2 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.GreaterOrEqual(t, ms, 2.0)
}

func TestMeasureChargesFailure(t *testing.T) {
	boom := errors.New("connection refused")
	ms, err := Measure(func() error {
		time.Sleep(time.Millisecond)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.GreaterOrEqual(t, ms, 1.0)
}

func TestMeasureValue(t *testing.T) {
	v, ms, err := MeasureValue(func() (string, error) {
		return "node/7", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "node/7", v)
	assert.GreaterOrEqual(t, ms, 0.0)
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 1.5, Millis(1500*time.Microsecond))
	assert.Equal(t, 0.000001, Millis(time.Nanosecond))
}
