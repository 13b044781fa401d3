package tracker

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrDataIntegrity          = errors.New("data integrity violation")
	ErrScheduleLookup         = errors.New("schedule lookup failed")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrHolderHasDevice        = errors.New("holder already holds another device")

	// ErrNoChange is returned by a Mutation to commit nothing. The store
	// returns the current device and a nil error.
	ErrNoChange = errors.New("no change")
)

// DeviceError is a per-device reconciliation failure. errors.Is matches
// both Kind and the underlying cause.
type DeviceError struct {
	DeviceID string
	Kind     error
	Err      error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("device %s: %v", e.DeviceID, e.Kind)
	}
	return fmt.Sprintf("device %s: %v: %v", e.DeviceID, e.Kind, e.Err)
}

func (e *DeviceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName is a short label for logs and metrics.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDataIntegrity):
		return "data_integrity"
	case errors.Is(err, ErrScheduleLookup):
		return "schedule_lookup"
	case errors.Is(err, ErrConcurrentModification):
		return "concurrent_modification"
	default:
		return "other"
	}
}
