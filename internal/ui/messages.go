package ui

import "github.com/okian/songlab/internal/domain/session"

// StateMsg carries a session state change from the monitor.
type StateMsg struct {
	State session.State
}

// DoneMsg indicates the monitor has stopped. Err is nil on a clean stop.
type DoneMsg struct {
	Err error
}

// deadlineMsg fires when the requested run duration has elapsed.
type deadlineMsg struct{}
