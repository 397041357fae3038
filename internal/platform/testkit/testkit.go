// Package testkit holds small helpers shared by package tests
package testkit

import (
	"sync"
	"testing"
)

var seamMu sync.Mutex

// Swap replaces *target for the duration of t
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	*target = replacement
	t.Cleanup(func() { *target = orig })
}

// Serial holds a process-wide lock until t finishes. Use it in tests that swap package seams
func Serial(t *testing.T) {
	t.Helper()
	seamMu.Lock()
	t.Cleanup(seamMu.Unlock)
}

// MustPanic fails t unless fn panics, and returns the recovered value
func MustPanic(t *testing.T, fn func()) (r any) {
	t.Helper()
	defer func() {
		if r = recover(); r == nil {
			t.Fatalf("expected panic, got none")
		}
	}()
	fn()
	return nil
}
