// Package status defines the HAP per-characteristic JSON status codes
// returned in /characteristics responses and the JSON error bodies of
// other HTTP endpoints; pairing TLV8 errors use their own codes.
package status

// Code is a HAP status code embedded in a characteristic JSON response.
type Code int

const (
	Success                    Code = 0
	InsufficientPrivileges     Code = -70401
	UnableToCommunicate        Code = -70402
	ResourceBusy               Code = -70403
	ReadOnly                   Code = -70404
	WriteOnly                  Code = -70405
	NotificationsUnsupported   Code = -70406
	OutOfResources             Code = -70407
	Timeout                    Code = -70408
	NoResource                 Code = -70409
	InvalidValue               Code = -70410
	InsufficientAuthorization  Code = -70411
)

// Error adapts a Code to the error interface so characteristic coercion
// and controller code can return it through normal Go error plumbing
// while the HTTP layer still recovers the original numeric code.
type Error struct {
	Code Code
}

func (e *Error) Error() string {
	switch e.Code {
	case InsufficientPrivileges:
		return "insufficient privileges"
	case UnableToCommunicate:
		return "unable to communicate"
	case ResourceBusy:
		return "resource busy"
	case ReadOnly:
		return "read-only characteristic"
	case WriteOnly:
		return "write-only characteristic"
	case NotificationsUnsupported:
		return "notifications unsupported"
	case OutOfResources:
		return "out of resources"
	case Timeout:
		return "timeout"
	case NoResource:
		return "no such resource"
	case InvalidValue:
		return "invalid value"
	case InsufficientAuthorization:
		return "insufficient authorization"
	default:
		return "unknown status"
	}
}

// New wraps code as an error.
func New(code Code) error { return &Error{Code: code} }

// From extracts the Code from err, defaulting to UnableToCommunicate if
// err is not a *Error.
func From(err error) Code {
	if err == nil {
		return Success
	}
	if se, ok := err.(*Error); ok {
		return se.Code
	}
	return UnableToCommunicate
}
