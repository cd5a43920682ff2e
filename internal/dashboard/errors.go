package dashboard

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidKey     = errors.New("invalid dashboard selection")
	ErrNoSelection    = errors.New("no dashboard selection")
	ErrStaleSelection = errors.New("dashboard selection changed during load")
)

// TotalLoadError means the month summary could not be fetched and no calendar
// can be shown.
type TotalLoadError struct {
	Key Key
	Err error
}

func (e *TotalLoadError) Error() string {
	return fmt.Sprintf("load dashboard %s: %v", e.Key, e.Err)
}

func (e *TotalLoadError) Unwrap() error {
	return e.Err
}

// TransientFetchError is a per-day detail failure. It is logged and the day
// keeps its month summary count.
type TransientFetchError struct {
	Date string
	Err  error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch day detail %s: %v", e.Date, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}
