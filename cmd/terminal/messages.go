package main

import "github.com/sevigo/resizer/internal/core"

// tickMsg triggers the next stats poll of polling generation gen.
type tickMsg struct{ gen int }

// statsMsg carries a fresh snapshot of the worker lane.
type statsMsg struct {
	gen   int
	stats core.Stats
}

// statsErrorMsg reports a failed poll. The monitor keeps polling.
type statsErrorMsg struct {
	gen int
	err error
}

// resizeDoneMsg reports the outcome of a /resize command.
type resizeDoneMsg struct {
	input  string
	output string
	size   int
	err    error
}
