// ============================================================================
// KVS Error Taxonomy
// Purpose: Define the error kinds the core can produce, and the typed
//          error carrying them across package boundaries.
// ============================================================================

package kvs

import (
	"errors"
	"fmt"
)

// Kind identifies a member of the error taxonomy. Reserved kinds
// (EncryptionFailed, QuotaExceeded, AuthenticationFailed, etc.) are
// intentionally absent: the core never produces them.
type Kind int

const (
	KindUnmapped Kind = iota
	KindFileNotFound
	KindKvsFileReadError
	KindKvsHashFileReadError
	KindJsonParserError
	KindJsonGeneratorError
	KindPhysicalStorageFailure
	KindValidationFailed
	KindKeyNotFound
	KindKeyDefaultNotFound
	KindInvalidSnapshotID
	KindInvalidValueType
	KindMutexLockFailed
)

func (k Kind) String() string {
	switch k {
	case KindFileNotFound:
		return "FileNotFound"
	case KindKvsFileReadError:
		return "KvsFileReadError"
	case KindKvsHashFileReadError:
		return "KvsHashFileReadError"
	case KindJsonParserError:
		return "JsonParserError"
	case KindJsonGeneratorError:
		return "JsonGeneratorError"
	case KindPhysicalStorageFailure:
		return "PhysicalStorageFailure"
	case KindValidationFailed:
		return "ValidationFailed"
	case KindKeyNotFound:
		return "KeyNotFound"
	case KindKeyDefaultNotFound:
		return "KeyDefaultNotFound"
	case KindInvalidSnapshotID:
		return "InvalidSnapshotId"
	case KindInvalidValueType:
		return "InvalidValueType"
	case KindMutexLockFailed:
		return "MutexLockFailed"
	default:
		return "UnmappedError"
	}
}

// Error is the core's error type: a taxonomy Kind plus a message and an
// optional wrapped cause, a single struct covering every Kind instead of
// one type per kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("kvs: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("kvs: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, kvs.ErrKeyNotFound)-style matching work against
// the sentinel vars below: two *Error values compare equal by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Sentinel instances for errors.Is comparisons against a bare Kind,
// e.g. errors.Is(err, kvs.ErrKeyNotFound).
var (
	ErrFileNotFound          = newErr(KindFileNotFound, "file not found", nil)
	ErrKvsFileReadError      = newErr(KindKvsFileReadError, "kvs file read error", nil)
	ErrKvsHashFileReadError  = newErr(KindKvsHashFileReadError, "hash file read error", nil)
	ErrJsonParserError       = newErr(KindJsonParserError, "json parser error", nil)
	ErrJsonGeneratorError    = newErr(KindJsonGeneratorError, "json generator error", nil)
	ErrPhysicalStorageFailure = newErr(KindPhysicalStorageFailure, "physical storage failure", nil)
	ErrValidationFailed      = newErr(KindValidationFailed, "validation failed", nil)
	ErrKeyNotFound           = newErr(KindKeyNotFound, "key not found", nil)
	ErrKeyDefaultNotFound    = newErr(KindKeyDefaultNotFound, "key has no default", nil)
	ErrInvalidSnapshotID     = newErr(KindInvalidSnapshotID, "invalid snapshot id", nil)
	ErrInvalidValueType      = newErr(KindInvalidValueType, "invalid value type", nil)
	ErrMutexLockFailed       = newErr(KindMutexLockFailed, "mutex lock failed", nil)
)

// WrapPhysicalStorageFailure builds a PhysicalStorageFailure carrying cause.
func WrapPhysicalStorageFailure(msg string, cause error) error {
	return newErr(KindPhysicalStorageFailure, msg, cause)
}

// WrapKvsFileReadError builds a KvsFileReadError carrying cause.
func WrapKvsFileReadError(msg string, cause error) error {
	return newErr(KindKvsFileReadError, msg, cause)
}

// WrapKvsHashFileReadError builds a KvsHashFileReadError carrying cause.
func WrapKvsHashFileReadError(msg string, cause error) error {
	return newErr(KindKvsHashFileReadError, msg, cause)
}

// WrapJsonParserError builds a JsonParserError carrying cause.
func WrapJsonParserError(msg string, cause error) error {
	return newErr(KindJsonParserError, msg, cause)
}

// WrapJsonGeneratorError builds a JsonGeneratorError carrying cause.
func WrapJsonGeneratorError(msg string, cause error) error {
	return newErr(KindJsonGeneratorError, msg, cause)
}

// WrapInvalidValueType builds an InvalidValueType carrying cause.
func WrapInvalidValueType(msg string, cause error) error {
	return newErr(KindInvalidValueType, msg, cause)
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error, otherwise KindUnmapped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnmapped
}
