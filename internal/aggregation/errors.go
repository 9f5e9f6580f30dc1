package aggregation

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord marks a record that cannot be keyed. It is skipped
	// and counted, the load carries on.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrKeyUniverseMismatch means a derived key was not part of the key
	// universe computed from the same records. It aborts the load.
	ErrKeyUniverseMismatch = errors.New("key not in key universe")
)

// Reason classifies why a record was skipped
type Reason string

const (
	ReasonMissingCoordinates Reason = "missing_coordinates"
	ReasonInvalidCoordinates Reason = "invalid_coordinates"
	ReasonUnresolvedDate     Reason = "unresolved_date"
	ReasonUnparseableDate    Reason = "unparseable_date"
)

// RecordError describes a malformed record
type RecordError struct {
	Index  int // Position in the input, -1 when unknown
	Reason Reason
	Detail string
}

func (e *RecordError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("record %d: %s: %s", e.Index, e.Reason, e.Detail)
}

// Unwrap lets errors.Is(err, ErrMalformedRecord) match
func (e *RecordError) Unwrap() error {
	return ErrMalformedRecord
}

func malformed(reason Reason, format string, args ...interface{}) *RecordError {
	return &RecordError{Index: -1, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func mismatch(kind string, key fmt.Stringer) error {
	return fmt.Errorf("%w: %s %s", ErrKeyUniverseMismatch, kind, key)
}
