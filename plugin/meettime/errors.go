package meettime

import (
	"errors"
	"fmt"
)

// Kind identifies which token of the input failed to parse.
type Kind int

const (
	// KindTimeFormat means the time token is not a valid 24-hour HH:MM.
	KindTimeFormat Kind = iota + 1
	// KindDateFormat means the date token is not a valid DD/MM/YYYY date.
	KindDateFormat
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindTimeFormat:
		return "time format"
	case KindDateFormat:
		return "date format"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseError reports a rejected time or date token.
type ParseError struct {
	Kind   Kind
	Token  string
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.Token, e.Reason)
}

// IsKind reports whether err is a ParseError of the given kind.
func IsKind(err error, kind Kind) bool {
	var pErr *ParseError
	if errors.As(err, &pErr) {
		return pErr.Kind == kind
	}
	return false
}

func timeError(token, reason string) *ParseError {
	return &ParseError{Kind: KindTimeFormat, Token: token, Reason: reason}
}

func dateError(token, reason string) *ParseError {
	return &ParseError{Kind: KindDateFormat, Token: token, Reason: reason}
}
