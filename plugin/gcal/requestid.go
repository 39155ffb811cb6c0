package gcal

import (
	"strings"

	"github.com/google/uuid"
)

// RequestIDLength is the length of a conference create-request ID.
const RequestIDLength = 32

// RequestIDGenerator produces the ID that makes a conference create request unique.
type RequestIDGenerator interface {
	NewRequestID() string
}

// RequestIDFunc adapts a function to RequestIDGenerator.
type RequestIDFunc func() string

// NewRequestID implements RequestIDGenerator.
func (f RequestIDFunc) NewRequestID() string {
	return f()
}

// UUIDRequestID generates random v4 UUIDs in their 32-character hex form.
type UUIDRequestID struct{}

// NewRequestID implements RequestIDGenerator.
func (UUIDRequestID) NewRequestID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
