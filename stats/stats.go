// Package stats keeps running summaries of build measurements.
package stats

import (
	"math"
	"time"
)

const (
	Epsilon = 1e-6
)

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Running is a running mean and variance (Welford's algorithm).
type Running struct {
	n    int
	mean float64
	m2   float64
	max  float64
}

func (r *Running) Push(val float64) {
	r.n++
	delta := val - r.mean
	r.mean += delta / float64(r.n)
	r.m2 += delta * (val - r.mean)
	if r.n == 1 || val > r.max {
		r.max = val
	}
}

// PushDuration records a duration in milliseconds.
func (r *Running) PushDuration(d time.Duration) {
	r.Push(float64(d) / float64(time.Millisecond))
}

func (r *Running) Mean() float64 {
	return r.mean
}

func (r *Running) Variance() float64 {
	if r.n <= 1 {
		return 0.0
	}
	return r.m2 / float64(r.n-1)
}

func (r *Running) Stdev() float64 {
	return math.Sqrt(r.Variance())
}

func (r *Running) Max() float64 {
	return r.max
}

func (r *Running) Count() int {
	return r.n
}
