package tracker

import (
	"context"
	"fmt"
	"time"

	"Gin_postgres_redis_device_tracker/metrics"
	"Gin_postgres_redis_device_tracker/models"
)

type Options struct {
	Policy Policy
	// Location is the zone that sessions' days and times are expressed in.
	Location *time.Location
	// Interval is the background reconciliation period.
	Interval time.Duration
	// Parallelism bounds concurrent per-device work in one pass.
	Parallelism int
	Clock       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Policy == (Policy{}) {
		o.Policy = DefaultPolicy()
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Interval <= 0 {
		o.Interval = DefaultReconcileInterval
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 4
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Service is the caller-facing surface: checkout, return, reconcile and
// listing. It is built once at startup and owns the background loop.
type Service struct {
	store      Store
	ledger     *Ledger
	reconciler *Reconciler
}

func NewService(store Store, schedules ScheduleLookup, holders HolderDirectory, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		store:      store,
		ledger:     NewLedger(store, schedules, holders, opts),
		reconciler: NewReconciler(store, schedules, opts),
	}
}

func (s *Service) Start(ctx context.Context) { s.reconciler.Start(ctx) }
func (s *Service) Stop()                     { s.reconciler.Stop() }

func (s *Service) Checkout(ctx context.Context, deviceID, holderID, holderName string) (*models.Device, error) {
	return s.ledger.Checkout(ctx, deviceID, holderID, holderName)
}

func (s *Service) ReturnDevice(ctx context.Context, deviceID, holderID, holderName string) (*models.Device, error) {
	return s.ledger.ReturnDevice(ctx, deviceID, holderID, holderName)
}

func (s *Service) ReconcileAll(ctx context.Context) (*PassReport, error) {
	return s.reconciler.ReconcileAll(ctx)
}

// ListDevices runs a full reconciliation pass and then reads every device,
// so the listing is never staler than this call.
func (s *Service) ListDevices(ctx context.Context) ([]models.Device, error) {
	if _, err := s.reconciler.ReconcileAll(ctx); err != nil {
		return nil, err
	}
	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	counts := map[models.DeviceStatus]int{
		models.DeviceAvailable: 0, models.DeviceInUse: 0, models.DeviceOverdue: 0,
	}
	for _, d := range devices {
		counts[d.Status]++
	}
	for st, n := range counts {
		metrics.DevicesByStatus.WithLabelValues(string(st)).Set(float64(n))
	}
	return devices, nil
}

func (s *Service) Device(ctx context.Context, id string) (*models.Device, error) {
	return s.store.ReadDevice(ctx, id)
}

func (s *Service) DevicesHeldBy(ctx context.Context, holderID string) ([]models.Device, error) {
	return s.store.ListDevicesByHolder(ctx, holderID)
}
