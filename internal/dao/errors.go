package dao

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// SerialVersionUID identifies the encoded form of Error. Bump it when the
	// JSON layout changes.
	SerialVersionUID int64 = 1
	// TypeTag is written to the "type" field of the encoded form.
	TypeTag = "dao.Error"
)

var (
	// ErrTypeMismatch is returned when decoding a payload that is not a dao.Error.
	ErrTypeMismatch = errors.New("payload is not a dao error")
	// ErrVersionMismatch is returned when decoding a payload written with a different SerialVersionUID.
	ErrVersionMismatch = errors.New("dao error version mismatch")
)

// Error reports a data-access failure.
type Error struct {
	message string
	cause   error
}

// New returns an Error carrying message and no cause.
func New(message string) *Error {
	return &Error{message: message}
}

// Wrap returns an Error carrying message and the failure that caused it.
func Wrap(message string, cause error) *Error {
	return &Error{message: message, cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Message returns the message without the cause appended.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Cause returns the wrapped failure, or nil.
func (e *Error) Cause() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// AsDaoError finds the first *Error in err's chain.
func AsDaoError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsDaoError reports whether err's chain contains an *Error.
func IsDaoError(err error) bool {
	_, ok := AsDaoError(err)
	return ok
}

type wireError struct {
	Type    string  `json:"type"`
	Version int64   `json:"version"`
	Message string  `json:"message"`
	Cause   *string `json:"cause,omitempty"`
}

// remoteCause stands in for a cause decoded from another process.
type remoteCause struct {
	text string
}

func (r *remoteCause) Error() string { return r.text }

// MarshalJSON encodes the error with its type tag and SerialVersionUID.
// The cause is reduced to its text.
func (e *Error) MarshalJSON() ([]byte, error) {
	w := wireError{
		Type:    TypeTag,
		Version: SerialVersionUID,
		Message: e.message,
	}
	if e.cause != nil {
		text := e.cause.Error()
		w.Cause = &text
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a payload written by MarshalJSON.
func (e *Error) UnmarshalJSON(data []byte) error {
	var w wireError
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode dao error: %w", err)
	}
	if w.Type != TypeTag {
		return fmt.Errorf("%w: got type %q", ErrTypeMismatch, w.Type)
	}
	if w.Version != SerialVersionUID {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, w.Version, SerialVersionUID)
	}

	e.message = w.Message
	e.cause = nil
	if w.Cause != nil {
		e.cause = &remoteCause{text: *w.Cause}
	}
	return nil
}
