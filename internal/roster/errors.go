package roster

import "errors"

// Error taxonomy for the store, mutation, and process boundaries.
// Callers classify failures with errors.Is; messages wrap these sentinels
// via fmt.Errorf("%w: ...").
var (
	// ErrNotFound marks a missing session, assignment, file, or executable.
	ErrNotFound = errors.New("not found")

	// ErrFormat marks a spreadsheet with no sheets or subprocess output
	// that is not parseable JSON.
	ErrFormat = errors.New("bad format")

	// ErrIO marks a file copy/read/write failure.
	ErrIO = errors.New("io failure")

	// ErrProcess marks a subprocess spawn failure or non-zero exit.
	ErrProcess = errors.New("process failure")
)
