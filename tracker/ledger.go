package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Gin_postgres_redis_device_tracker/logger"
	"Gin_postgres_redis_device_tracker/metrics"
	"Gin_postgres_redis_device_tracker/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxAttempts bounds internal retries of one atomic unit on
// ErrConcurrentModification.
const maxAttempts = 3

// Ledger applies checkout and return transitions. All device writes go
// through Store.AtomicUpdateDevice.
type Ledger struct {
	store     Store
	schedules ScheduleLookup
	holders   HolderDirectory
	policy    Policy
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger
}

func NewLedger(store Store, schedules ScheduleLookup, holders HolderDirectory, opts Options) *Ledger {
	opts = opts.withDefaults()
	return &Ledger{
		store:     store,
		schedules: schedules,
		holders:   holders,
		policy:    opts.Policy,
		loc:       opts.Location,
		now:       opts.Clock,
		log:       logger.WithComponent("ledger"),
	}
}

func (l *Ledger) clock() time.Time { return l.now().In(l.loc) }

// Checkout marks the device in_use by the holder and records a pickup
// event, unless an identical pickup was recorded within the duplicate
// window, in which case only the device fields are refreshed.
func (l *Ledger) Checkout(ctx context.Context, deviceID, holderID, holderName string) (*models.Device, error) {
	dev, suppressed, err := l.checkout(ctx, deviceID, holderID, holderName)
	switch {
	case err != nil:
		metrics.CheckoutsTotal.WithLabelValues("failed").Inc()
	case suppressed:
		metrics.CheckoutsTotal.WithLabelValues("suppressed").Inc()
	default:
		metrics.CheckoutsTotal.WithLabelValues("recorded").Inc()
	}
	return dev, err
}

func (l *Ledger) checkout(ctx context.Context, deviceID, holderID, holderName string) (*models.Device, bool, error) {
	if deviceID == "" || holderID == "" {
		return nil, false, fmt.Errorf("%w: device id and holder id are required", ErrInvalidArgument)
	}
	if err := l.requireHolder(ctx, holderID); err != nil {
		return nil, false, err
	}

	now := l.clock()
	sessions, err := l.schedules.SessionsForHolderOnDay(ctx, holderID, DayOf(now))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrScheduleLookup, err)
	}
	windows, err := Windows(sessions)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrScheduleLookup, err)
	}
	expected := l.policy.ExpectedReturn(now, windows).UTC()
	at := now.UTC()

	if err := l.requireNoOtherDevice(ctx, deviceID, holderID); err != nil {
		return nil, false, err
	}

	var suppressed bool
	dev, err := l.update(ctx, deviceID, func(d *models.Device, events EventLog) error {
		prev, err := events.FindRecent(deviceID, holderID, models.ActionPickup, at.Add(-l.policy.DuplicateWindow))
		if err != nil {
			return err
		}
		if d.Status.CheckedOut() && d.HolderID != nil && *d.HolderID != holderID {
			l.log.Warn().Str("device_id", deviceID).Str("previous_holder", *d.HolderID).
				Str("holder_id", holderID).Msg("checkout replaces current holder")
		}

		d.Status = models.DeviceInUse
		d.HolderID = strPtr(holderID)
		d.HolderName = strPtr(holderName)
		d.CheckedOutAt = timePtr(at)
		d.ExpectedReturnAt = timePtr(expected)

		suppressed = prev != nil
		if suppressed {
			return nil
		}
		return events.Append(&models.CheckoutEvent{
			ID:         uuid.NewString(),
			DeviceID:   deviceID,
			HolderID:   holderID,
			HolderName: holderName,
			Action:     models.ActionPickup,
			At:         at,
		})
	})
	if err != nil {
		return nil, false, err
	}
	l.log.Info().Str("device_id", deviceID).Str("holder_id", holderID).
		Bool("suppressed", suppressed).Time("expected_return", expected).Msg("checkout")
	return dev, suppressed, nil
}

// ReturnDevice clears the holder fields, records the audit fields and a
// return event. It works from in_use and overdue alike and does not check
// who is returning.
func (l *Ledger) ReturnDevice(ctx context.Context, deviceID, holderID, holderName string) (*models.Device, error) {
	dev, suppressed, err := l.returnDevice(ctx, deviceID, holderID, holderName)
	switch {
	case err != nil:
		metrics.ReturnsTotal.WithLabelValues("failed").Inc()
	case suppressed:
		metrics.ReturnsTotal.WithLabelValues("suppressed").Inc()
	default:
		metrics.ReturnsTotal.WithLabelValues("recorded").Inc()
	}
	return dev, err
}

func (l *Ledger) returnDevice(ctx context.Context, deviceID, holderID, holderName string) (*models.Device, bool, error) {
	if deviceID == "" || holderID == "" {
		return nil, false, fmt.Errorf("%w: device id and holder id are required", ErrInvalidArgument)
	}
	if err := l.requireHolder(ctx, holderID); err != nil {
		return nil, false, err
	}
	at := l.clock().UTC()

	var suppressed bool
	dev, err := l.update(ctx, deviceID, func(d *models.Device, events EventLog) error {
		prev, err := events.FindRecent(deviceID, holderID, models.ActionReturn, at.Add(-l.policy.DuplicateWindow))
		if err != nil {
			return err
		}
		if d.Status == models.DeviceAvailable && prev == nil {
			l.log.Warn().Str("device_id", deviceID).Str("holder_id", holderID).Msg("return of a device that is not checked out")
		}

		d.Status = models.DeviceAvailable
		d.HolderID = nil
		d.HolderName = nil
		d.CheckedOutAt = nil
		d.ExpectedReturnAt = nil
		d.LastReturnedAt = timePtr(at)
		d.LastHolderID = strPtr(holderID)
		d.LastHolderName = strPtr(holderName)

		suppressed = prev != nil
		if suppressed {
			return nil
		}
		return events.Append(&models.CheckoutEvent{
			ID:         uuid.NewString(),
			DeviceID:   deviceID,
			HolderID:   holderID,
			HolderName: holderName,
			Action:     models.ActionReturn,
			At:         at,
		})
	})
	if err != nil {
		return nil, false, err
	}
	l.log.Info().Str("device_id", deviceID).Str("holder_id", holderID).
		Bool("suppressed", suppressed).Msg("return")
	return dev, suppressed, nil
}

func (l *Ledger) requireHolder(ctx context.Context, holderID string) error {
	ok, err := l.holders.HolderExists(ctx, holderID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: holder %s", ErrNotFound, holderID)
	}
	return nil
}

// requireNoOtherDevice enforces one checked-out device per holder. The
// persistence layer backs this with a partial unique index for the race
// this read cannot see.
func (l *Ledger) requireNoOtherDevice(ctx context.Context, deviceID, holderID string) error {
	held, err := l.store.ListDevicesByHolder(ctx, holderID)
	if err != nil {
		return err
	}
	for _, d := range held {
		if d.ID != deviceID && d.Status.CheckedOut() {
			return fmt.Errorf("%w: %s", ErrHolderHasDevice, d.Label)
		}
	}
	return nil
}

func (l *Ledger) update(ctx context.Context, deviceID string, fn Mutation) (*models.Device, error) {
	return updateWithRetry(ctx, l.store, deviceID, fn)
}

func updateWithRetry(ctx context.Context, store Store, deviceID string, fn Mutation) (*models.Device, error) {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var dev *models.Device
		dev, err = store.AtomicUpdateDevice(ctx, deviceID, fn)
		if !errors.Is(err, ErrConcurrentModification) {
			return dev, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, err
}

func strPtr(s string) *string        { return &s }
func timePtr(t time.Time) *time.Time { return &t }
