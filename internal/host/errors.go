package host

import "errors"

// ErrAlreadyStarted is returned by Start when called more than once.
var ErrAlreadyStarted = errors.New("host: already started")

// ErrNotStarted is returned by Stop when called before Start.
var ErrNotStarted = errors.New("host: not running")

// ErrShuttingDown is returned by Enqueue once the host has begun shutting
// down; no further commands are accepted.
var ErrShuttingDown = errors.New("host: shutting down")

// ErrMultipleCommands is returned by Enqueue when the raw G-code, once comments
// are stripped, still spans more than one instruction.
var ErrMultipleCommands = errors.New("host: cannot enqueue multiple commands in a single call")

// errShutdown is used internally to unwind the sender loop when the host
// is shutting down while waiting for an acknowledgment.
var errShutdown = errors.New("host: shutdown requested")
