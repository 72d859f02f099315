package testutil

import "time"

// Bounds for require.Eventually in tests that wait on goroutines
const (
	Wait = 2 * time.Second
	Tick = 5 * time.Millisecond
)
