package hoppie

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindMissingCredential ErrorKind = iota + 1
	KindTimeout
	KindUnreachable
	KindServerRejected
	KindRejected
	KindMalformed
)

var kindNames = map[ErrorKind]string{
	KindMissingCredential: "missing credential",
	KindTimeout:           "timeout",
	KindUnreachable:       "unreachable",
	KindServerRejected:    "server rejected",
	KindRejected:          "rejected",
	KindMalformed:         "malformed",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type returned by the codec and the transport.
// Status is set for KindServerRejected, Body for KindRejected and Line for
// KindMalformed.
type Error struct {
	Kind   ErrorKind
	Status int
	Body   string
	Line   string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServerRejected:
		return fmt.Sprintf("hoppie: server rejected request with status %d", e.Status)
	case KindRejected:
		return fmt.Sprintf("hoppie: request rejected: %q", e.Body)
	case KindMalformed:
		return fmt.Sprintf("hoppie: malformed line %q", e.Line)
	}

	if e.Err != nil {
		return fmt.Sprintf("hoppie: %s: %v", e.Kind, e.Err)
	}
	return "hoppie: " + e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, so errors.Is(err, ErrTimeout) works for any timeout.
// A target with a non-zero Status also has to match the status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Status == 0 || t.Status == e.Status
}

var (
	ErrMissingCredential = &Error{Kind: KindMissingCredential}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrUnreachable       = &Error{Kind: KindUnreachable}
	ErrServerRejected    = &Error{Kind: KindServerRejected}
	ErrRejected          = &Error{Kind: KindRejected}
	ErrMalformed         = &Error{Kind: KindMalformed}

	ErrInvalidStation = errors.New("hoppie: from and to stations are required")
)

// KindOf extracts the taxonomy kind from err.
func KindOf(err error) (ErrorKind, bool) {
	var herr *Error
	if errors.As(err, &herr) {
		return herr.Kind, true
	}
	return 0, false
}

// IsRetryable reports whether a caller may try the same request again.
// Only connection level failures qualify; a server or protocol rejection
// will not change on a second attempt.
func IsRetryable(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == KindTimeout || kind == KindUnreachable
}
