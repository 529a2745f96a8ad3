package scheduler

import "errors"

// ErrEmptyCommand is returned when a G-code instruction is empty or
// consists only of comments once normalized.
var ErrEmptyCommand = errors.New("scheduler: command is empty")

// ErrMultipleCommands is returned when a raw G-code string normalizes to
// more than one line.
var ErrMultipleCommands = errors.New("scheduler: multiple commands in a single line")

// ErrNotFound is returned by CommandTracker.Fetch when the requested line
// number was never recorded or has since been evicted.
var ErrNotFound = errors.New("scheduler: line number not found in history")

// ErrConsumeTimeout is returned by QuotaTracker.Consume when the requested
// reservation could not be satisfied before the deadline. It is control
// flow for the sender loop, not a hard failure.
var ErrConsumeTimeout = errors.New("scheduler: timed out waiting for buffer quota")
