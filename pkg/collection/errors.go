package collection

import "fmt"

// ErrorKind classifies errors surfaced at the repository boundary.
type ErrorKind int

// Error kinds
const (
	KindUnknown ErrorKind = iota
	KindOfflineNoCache
	KindTransportFailure
	KindInvalidData
	KindNotFound
	KindCancelled
)

var kindNames = map[ErrorKind]string{
	KindUnknown:          "unknown",
	KindOfflineNoCache:   "offline_no_cache",
	KindTransportFailure: "transport_failure",
	KindInvalidData:      "invalid_data",
	KindNotFound:         "not_found",
	KindCancelled:        "cancelled",
}

// String returns the snake_case name of the kind
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a domain error. Remote API faults are mapped into these.
type Error struct {
	Kind    ErrorKind
	Message string
}

// Sentinel errors, one per kind. errors.Is matches any *Error of the same kind.
var (
	ErrOfflineNoCache   = &Error{Kind: KindOfflineNoCache}
	ErrTransportFailure = &Error{Kind: KindTransportFailure}
	ErrInvalidData      = &Error{Kind: KindInvalidData}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrCancelled        = &Error{Kind: KindCancelled}
	ErrUnknown          = &Error{Kind: KindUnknown}
)

// TransportFailure returns a transport error with the given message
func TransportFailure(message string) *Error {
	return &Error{Kind: KindTransportFailure, Message: message}
}

// Unknown returns a catch-all error with the given message
func Unknown(message string) *Error {
	return &Error{Kind: KindUnknown, Message: message}
}

// Error returns a human-readable summary.
func (e *Error) Error() string {
	switch e.Kind {
	case KindOfflineNoCache:
		return "You're offline and no cache is available."
	case KindTransportFailure:
		if e.Message != "" {
			return e.Message
		}
		return "Network error. Please try again."
	case KindInvalidData:
		return "Couldn't read data from server."
	case KindNotFound:
		return "Not found."
	case KindCancelled:
		return "Cancelled."
	default:
		return "Something went wrong."
	}
}

// Is reports whether target is a domain error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
