package client

import "errors"

var (
	// ErrNotConnected is returned when a command is sent with no open
	// connection. Commands are dropped, not queued; callers disable the
	// triggering control off the connection-state observer.
	ErrNotConnected = errors.New("not connected")

	// ErrClosed is returned for operations on a torn-down session.
	ErrClosed = errors.New("session closed")

	// ErrNoQuizSelected is returned by LaunchQuiz without a quiz id.
	ErrNoQuizSelected = errors.New("no quiz selected")

	// ErrQuizInProgress is returned when launching while a quiz runs.
	ErrQuizInProgress = errors.New("quiz already in progress")
)
