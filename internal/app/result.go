package app

import (
	"encoding/json"
	"fmt"
	"io"
)

// Result is the uniform envelope the desktop front-end consumes. Every
// operation reports either success with an optional payload or failure
// with a message; raw Go errors never cross this boundary.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK wraps a payload in a successful envelope.
func OK(data any) *Result {
	return &Result{Success: true, Data: data}
}

// Fail wraps an error in a failed envelope.
func Fail(err error) *Result {
	return &Result{Success: false, Error: err.Error()}
}

// WriteJSON serializes the envelope to w.
func (r *Result) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}
