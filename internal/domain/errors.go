package domain

import (
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindValidation       ErrorKind = "validation_error"
	KindWorkingHours     ErrorKind = "working_hours_violation"
	KindBreakConflict    ErrorKind = "break_conflict"
	KindSlotConflict     ErrorKind = "slot_conflict"
	KindHistoryLock      ErrorKind = "history_lock"
	KindNotFound         ErrorKind = "not_found"
	KindInvalidReference ErrorKind = "invalid_organization_reference"
	KindInvalidData      ErrorKind = "invalid_data"
)

// Error is an expected business-rule rejection. Anything else reaching the
// transport is an unclassified failure.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string

	// Date is the occurrence the rejection refers to, when there is one.
	Date *Date

	// Summary is attached when a recurring batch ends with nothing created.
	Summary *BatchSummary

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Conflicting reports whether the error is a per-occurrence rejection that a
// skip-conflicts batch may step over.
func (e *Error) Conflicting() bool {
	switch e.Kind {
	case KindWorkingHours, KindBreakConflict, KindSlotConflict:
		return true
	}
	return false
}

func ValidationError(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidRangeError is returned when a date range ends before it starts.
type InvalidRangeError struct {
	Start Date
	End   Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: %s is before %s", e.End, e.Start)
}

// BatchSummary reports the outcome of a multi-row mutation.
type BatchSummary struct {
	Requested    int    `json:"requested"`
	Created      int    `json:"created"`
	Updated      int    `json:"updated"`
	Deleted      int    `json:"deleted"`
	SkippedCount int    `json:"skippedCount"`
	SkippedDates []Date `json:"skippedDates"`
}
