package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Gin_postgres_redis_device_tracker/logger"
	"Gin_postgres_redis_device_tracker/metrics"
	"Gin_postgres_redis_device_tracker/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PassReport summarises one reconciliation pass.
type PassReport struct {
	StartedAt      time.Time      `json:"startedAt"`
	Scanned        int            `json:"scanned"`
	Flagged        int            `json:"flagged"`
	AlreadyOverdue int            `json:"alreadyOverdue"`
	Skipped        int            `json:"skipped"`
	Errors         []*DeviceError `json:"-"`
}

// ErrorView is the serialisable form of a DeviceError.
type ErrorView struct {
	DeviceID string `json:"deviceId"`
	Kind     string `json:"kind"`
	Error    string `json:"error"`
}

func (r *PassReport) ErrorViews() []ErrorView {
	out := make([]ErrorView, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, ErrorView{DeviceID: e.DeviceID, Kind: KindName(e), Error: e.Error()})
	}
	return out
}

func (r *PassReport) record(o outcome) {
	switch o {
	case outcomeFlagged:
		r.Flagged++
	case outcomeAlreadyOverdue:
		r.AlreadyOverdue++
	case outcomeSkipped:
		r.Skipped++
	}
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeFlagged
	outcomeAlreadyOverdue
	outcomeSkipped
)

// Reconciler flags checked-out devices whose holder should have returned
// them. It never clears overdue; only a return does.
type Reconciler struct {
	store       Store
	schedules   ScheduleLookup
	policy      Policy
	loc         *time.Location
	now         func() time.Time
	interval    time.Duration
	parallelism int
	log         zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReconciler(store Store, schedules ScheduleLookup, opts Options) *Reconciler {
	opts = opts.withDefaults()
	return &Reconciler{
		store:       store,
		schedules:   schedules,
		policy:      opts.Policy,
		loc:         opts.Location,
		now:         opts.Clock,
		interval:    opts.Interval,
		parallelism: opts.Parallelism,
		log:         logger.WithComponent("reconciler"),
	}
}

// Start runs a pass every interval until Stop or ctx is done. Calling
// Start on a running reconciler is a no-op.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, r.done)
	r.log.Info().Dur("interval", r.interval).Msg("reconciler started")
}

// Stop cancels the loop and waits for an in-flight pass to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.log.Info().Msg("reconciler stopped")
}

func (r *Reconciler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.ReconcileAll(ctx); err != nil && ctx.Err() == nil {
				r.log.Error().Err(err).Msg("reconcile pass failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// ReconcileAll scans every in_use/overdue device once. Per-device failures
// are collected in the report; only a failure to list devices is returned.
func (r *Reconciler) ReconcileAll(ctx context.Context) (*PassReport, error) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconcileDuration)
		metrics.ReconcilePassesTotal.Inc()
	}()

	now := r.now().In(r.loc)
	report := &PassReport{StartedAt: now}

	devices, err := r.store.ListDevicesByStatus(ctx, models.DeviceInUse, models.DeviceOverdue)
	if err != nil {
		return report, fmt.Errorf("list checked-out devices: %w", err)
	}
	report.Scanned = len(devices)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for i := range devices {
		d := devices[i]
		g.Go(func() error {
			o, err := r.reconcileDevice(ctx, now, &d)
			mu.Lock()
			defer mu.Unlock()
			report.record(o)
			if err != nil {
				var de *DeviceError
				if !errors.As(err, &de) {
					de = &DeviceError{DeviceID: d.ID, Kind: kindOf(err), Err: err}
				}
				report.Errors = append(report.Errors, de)
				metrics.ReconcileErrorsTotal.WithLabelValues(KindName(de)).Inc()
				r.log.Warn().Str("device_id", d.ID).Str("kind", KindName(de)).Err(de.Err).Msg("device skipped")
			}
			return nil
		})
	}
	_ = g.Wait()

	r.log.Debug().Int("scanned", report.Scanned).Int("flagged", report.Flagged).
		Int("already_overdue", report.AlreadyOverdue).Int("skipped", report.Skipped).
		Int("errors", len(report.Errors)).Msg("reconcile pass")
	return report, nil
}

func (r *Reconciler) reconcileDevice(ctx context.Context, now time.Time, d *models.Device) (outcome, error) {
	if d.HolderID == nil || *d.HolderID == "" || d.CheckedOutAt == nil {
		return outcomeSkipped, &DeviceError{DeviceID: d.ID, Kind: ErrDataIntegrity,
			Err: errors.New("checked-out device without holder id or checkout time")}
	}
	holderID, checkedOutAt := *d.HolderID, *d.CheckedOutAt

	sessions, err := r.schedules.SessionsForHolderOnDay(ctx, holderID, DayOf(now))
	if err != nil {
		return outcomeSkipped, &DeviceError{DeviceID: d.ID, Kind: ErrScheduleLookup, Err: err}
	}
	windows, err := Windows(sessions)
	if err != nil {
		return outcomeSkipped, &DeviceError{DeviceID: d.ID, Kind: ErrScheduleLookup, Err: err}
	}

	dec := r.policy.Evaluate(now, d, windows)
	switch dec.Verdict {
	case NotOverdue:
		return outcomeUnchanged, nil
	case AlreadyOverdue:
		return outcomeAlreadyOverdue, nil
	}

	flagged := false
	_, err = updateWithRetry(ctx, r.store, d.ID, func(cur *models.Device, _ EventLog) error {
		// the device may have been returned or re-issued since the listing
		if cur.Status != models.DeviceInUse || cur.HolderID == nil || *cur.HolderID != holderID ||
			cur.CheckedOutAt == nil || !cur.CheckedOutAt.Equal(checkedOutAt) {
			flagged = false
			return ErrNoChange
		}
		cur.Status = models.DeviceOverdue
		flagged = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// deleted mid-pass
			return outcomeUnchanged, nil
		}
		return outcomeSkipped, err
	}
	if !flagged {
		return outcomeUnchanged, nil
	}
	metrics.DevicesFlaggedOverdue.Inc()
	r.log.Info().Str("device_id", d.ID).Str("holder_id", holderID).
		Str("reason", string(dec.Reason)).Int("mins_since_ended", dec.MinsSinceEnded).Msg("device overdue")
	return outcomeFlagged, nil
}

func kindOf(err error) error {
	for _, k := range []error{ErrNotFound, ErrDataIntegrity, ErrScheduleLookup, ErrConcurrentModification} {
		if errors.Is(err, k) {
			return k
		}
	}
	return errors.New("unexpected")
}
