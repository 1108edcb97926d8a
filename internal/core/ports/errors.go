// Package ports defines the interfaces each core component exposes to and
// consumes from its neighbors, and the shared error taxonomy (§7) every
// component classifies its failures into.
package ports

import "errors"

// Kind is the exhaustive classification of a core error, per §7. Never
// passed as a free string: a CoreError carries exactly one Kind, which
// KindOf reads back; errors that carry none report KindToolFailure.
type Kind int

const (
	// KindHostSafety is the only fatal category: an attempt to mutate the
	// management NIC, or to enumerate the currently-associated SSID. The
	// Interface Registry is the only component permitted to panic/abort on
	// this kind — the alternative is a silent operator lockout.
	KindHostSafety Kind = iota
	// KindToolMissing: a required external binary is absent. Scoped to the
	// affected engine; the orchestrator continues with the remaining ones.
	KindToolMissing
	// KindToolFailure: non-zero exit or malformed tool output.
	KindToolFailure
	// KindVerificationNegative: no handshake yet. Normal; keep polling.
	KindVerificationNegative
	// KindTimeout: an operation exceeded its configured budget.
	KindTimeout
	// KindStoreConflict: e.g. an illegal Handshake status transition.
	KindStoreConflict
	// KindCancelled: cooperative shutdown. Not an error; propagates silently.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindHostSafety:
		return "host_safety"
	case KindToolMissing:
		return "tool_missing"
	case KindToolFailure:
		return "tool_failure"
	case KindVerificationNegative:
		return "verification_negative"
	case KindTimeout:
		return "timeout"
	case KindStoreConflict:
		return "store_conflict"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CoreError pairs a Kind with the underlying cause, so callers can branch
// on classification without string matching. Not every component error is
// one: some paths (e.g. the enumeration phase, the store) return plain
// wrapped errors.
type CoreError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *CoreError) Unwrap() error { return e.Cause }

// NewError builds a CoreError of the given kind.
func NewError(kind Kind, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *CoreError, otherwise reports KindToolFailure as the conservative default.
func KindOf(err error) Kind {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindToolFailure
}

// IsHostSafety is a convenience guard used at every call site that takes a
// NIC name, per the Interface Registry's non-negotiable safety gate.
func IsHostSafety(err error) bool {
	return KindOf(err) == KindHostSafety
}
