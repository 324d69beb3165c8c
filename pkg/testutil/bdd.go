package testutil

import "testing"

// Given, When, and Then name test phases as subtests so verbose output reads
// as a scenario. They add structure only; assertions stay in the callers.

func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Then", desc, fn)
}

func step(t *testing.T, phase, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(phase+" "+desc, fn)
}
