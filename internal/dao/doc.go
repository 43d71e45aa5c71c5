// Package dao defines the error returned by data-access code. An *Error keeps
// the message and the original cause so callers higher up can inspect the
// underlying failure with errors.Is and errors.As.
package dao
