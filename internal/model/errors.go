package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedBar marks a bar that breaks the OHLC or ordering invariants.
	ErrMalformedBar = errors.New("malformed bar")
	// ErrParameterOutOfRange marks a strategy parameter rejected at call time.
	ErrParameterOutOfRange = errors.New("parameter out of range")
)

// MalformedBarError describes the first bad bar of a series.
type MalformedBarError struct {
	Index  int
	Time   time.Time
	Reason string
}

func (e *MalformedBarError) Error() string {
	return fmt.Sprintf("malformed bar #%d at %s: %s", e.Index, e.Time.Format("2006-01-02 15:04"), e.Reason)
}

func (e *MalformedBarError) Unwrap() error { return ErrMalformedBar }

func outOfRange(field string, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrParameterOutOfRange, field, fmt.Sprintf(format, args...))
}
