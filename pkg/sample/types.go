package sample

import (
	"time"
)

// Series is the ordered list of latency samples, in milliseconds, of one
// timed phase. Index i holds the sample of the i-th operation issued.
type Series []float64

// Len returns the number of samples.
func (s Series) Len() int {
	return len(s)
}

// Float64 returns the samples as a plain slice for the stats packages.
func (s Series) Float64() []float64 {
	return []float64(s)
}

// Measure runs op exactly once and returns its wall-clock duration in
// milliseconds together with op's error. The clock is read immediately
// around the call so the elapsed time is charged even when op fails.
func Measure(op func() error) (float64, error) {
	start := time.Now()
	err := op()
	end := time.Now()
	return Millis(end.Sub(start)), err
}

// MeasureValue is Measure for operations that produce a value.
func MeasureValue[T any](op func() (T, error)) (T, float64, error) {
	start := time.Now()
	v, err := op()
	end := time.Now()
	return v, Millis(end.Sub(start)), err
}

// Millis converts d to floating point milliseconds keeping nanosecond
// resolution.
func Millis(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
