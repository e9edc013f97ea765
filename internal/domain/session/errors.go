package session

import "errors"

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// ErrBusy is returned when a session already has an analysis in flight.
var ErrBusy = errors.New("analysis already in progress")

// ErrNotAnalyzing is returned when completing a session that is not waiting for a result.
var ErrNotAnalyzing = errors.New("session is not analyzing")
