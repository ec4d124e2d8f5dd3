// Package testutil provides shared helpers for package tests.
package testutil

import (
	"sync"
)

// ScriptedSource is a dice.Source that replays fixed draws. Once a script is
// exhausted its last value repeats; an empty script yields 0.
// It is safe for concurrent use.
type ScriptedSource struct {
	mu     sync.Mutex
	ints   []int
	floats []float64
	// IntCalls and FloatCalls count the draws made.
	IntCalls   int
	FloatCalls int
}

// NewScriptedSource returns a source replaying ints for Intn and floats for Float64.
// Intn results are reduced modulo n.
func NewScriptedSource(ints []int, floats []float64) *ScriptedSource {
	return &ScriptedSource{ints: ints, floats: floats}
}

// Intn returns the next scripted int modulo n.
//
// Precondition: n > 0.
func (s *ScriptedSource) Intn(n int) int {
	if n <= 0 {
		panic("testutil: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := next(s.ints, s.IntCalls)
	s.IntCalls++
	return ((v % n) + n) % n
}

// Float64 returns the next scripted float.
func (s *ScriptedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := next(s.floats, s.FloatCalls)
	s.FloatCalls++
	return v
}

func next[T int | float64](script []T, i int) T {
	var zero T
	if len(script) == 0 {
		return zero
	}
	if i >= len(script) {
		return script[len(script)-1]
	}
	return script[i]
}
