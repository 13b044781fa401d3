package tracker

import (
	"context"
	"time"

	"Gin_postgres_redis_device_tracker/models"
)

// EventLog is the checkout history as seen from inside one atomic device
// update. Reads and appends join the update's transaction.
type EventLog interface {
	// FindRecent returns the newest matching event at or after since, or nil.
	FindRecent(deviceID, holderID string, action models.EventAction, since time.Time) (*models.CheckoutEvent, error)
	Append(ev *models.CheckoutEvent) error
}

// Mutation edits d in place. Returning an error aborts the whole unit;
// returning ErrNoChange commits nothing.
type Mutation func(d *models.Device, events EventLog) error

// Store is the persistence the ledger and reconciler need.
type Store interface {
	ReadDevice(ctx context.Context, id string) (*models.Device, error)
	ListDevices(ctx context.Context) ([]models.Device, error)
	ListDevicesByStatus(ctx context.Context, statuses ...models.DeviceStatus) ([]models.Device, error)
	ListDevicesByHolder(ctx context.Context, holderID string) ([]models.Device, error)

	// AtomicUpdateDevice locks the device, runs fn and persists the device
	// together with any appended events, all or nothing. Conflicting
	// concurrent writers surface as ErrConcurrentModification and a missing
	// device as ErrNotFound.
	AtomicUpdateDevice(ctx context.Context, id string, fn Mutation) (*models.Device, error)
}

// ScheduleLookup returns a holder's sessions for one weekday. No sessions
// is an empty slice, not an error.
type ScheduleLookup interface {
	SessionsForHolderOnDay(ctx context.Context, holderID string, day models.Weekday) ([]models.ScheduleSession, error)
}

type HolderDirectory interface {
	HolderExists(ctx context.Context, holderID string) (bool, error)
}
