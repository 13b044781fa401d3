package tracker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"Gin_postgres_redis_device_tracker/models"
)

// memStore is an in-process Store. One mutex makes every AtomicUpdateDevice
// a serialisable unit; conflicts injects ErrConcurrentModification.
type memStore struct {
	mu        sync.Mutex
	devices   map[string]models.Device
	events    []models.CheckoutEvent
	conflicts int
	listErr   error
	// beforeUpdate runs outside the lock ahead of each AtomicUpdateDevice.
	beforeUpdate func(id string)
}

func newMemStore(devices ...models.Device) *memStore {
	m := &memStore{devices: map[string]models.Device{}}
	for _, d := range devices {
		if d.Status == "" {
			d.Status = models.DeviceAvailable
		}
		m.devices[d.ID] = d
	}
	return m
}

func (m *memStore) ReadDevice(_ context.Context, id string) (*models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *memStore) ListDevices(_ context.Context) ([]models.Device, error) {
	return m.filter(func(models.Device) bool { return true })
}

func (m *memStore) ListDevicesByStatus(_ context.Context, statuses ...models.DeviceStatus) ([]models.Device, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.filter(func(d models.Device) bool {
		for _, s := range statuses {
			if d.Status == s {
				return true
			}
		}
		return false
	})
}

func (m *memStore) ListDevicesByHolder(_ context.Context, holderID string) ([]models.Device, error) {
	return m.filter(func(d models.Device) bool { return d.HolderID != nil && *d.HolderID == holderID })
}

func (m *memStore) filter(keep func(models.Device) bool) ([]models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Device
	for _, d := range m.devices {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (m *memStore) AtomicUpdateDevice(_ context.Context, id string, fn Mutation) (*models.Device, error) {
	if m.beforeUpdate != nil {
		m.beforeUpdate(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts > 0 {
		m.conflicts--
		return nil, ErrConcurrentModification
	}
	cur, ok := m.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cur
	log := &memEventLog{committed: m.events}
	if err := fn(&next, log); err != nil {
		if errors.Is(err, ErrNoChange) {
			return &cur, nil
		}
		return nil, err
	}
	if next.Status.CheckedOut() && next.HolderID != nil {
		for oid, o := range m.devices {
			if oid != id && o.Status.CheckedOut() && o.HolderID != nil && *o.HolderID == *next.HolderID {
				return nil, ErrHolderHasDevice
			}
		}
	}
	next.Version++
	m.devices[id] = next
	m.events = append(m.events, log.pending...)
	return &next, nil
}

func (m *memStore) device(id string) models.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devices[id]
}

func (m *memStore) put(d models.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[d.ID] = d
}

func (m *memStore) eventsFor(deviceID string, action models.EventAction) []models.CheckoutEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CheckoutEvent
	for _, e := range m.events {
		if e.DeviceID == deviceID && e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type memEventLog struct {
	committed []models.CheckoutEvent
	pending   []models.CheckoutEvent
}

func (l *memEventLog) FindRecent(deviceID, holderID string, action models.EventAction, since time.Time) (*models.CheckoutEvent, error) {
	var best *models.CheckoutEvent
	for _, list := range [][]models.CheckoutEvent{l.committed, l.pending} {
		for i := range list {
			e := list[i]
			if e.DeviceID == deviceID && e.HolderID == holderID && e.Action == action && !e.At.Before(since) {
				if best == nil || e.At.After(best.At) {
					best = &e
				}
			}
		}
	}
	return best, nil
}

func (l *memEventLog) Append(ev *models.CheckoutEvent) error {
	l.pending = append(l.pending, *ev)
	return nil
}

type fakeSchedules struct {
	mu       sync.Mutex
	sessions []models.ScheduleSession
	failFor  map[string]error
}

func (f *fakeSchedules) add(holderID string, day models.Weekday, start, end string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, models.ScheduleSession{
		ID: holderID + "-" + start, HolderID: holderID, Course: "Course " + start,
		Day: day, StartTime: start, EndTime: end,
	})
}

func (f *fakeSchedules) SessionsForHolderOnDay(_ context.Context, holderID string, day models.Weekday) ([]models.ScheduleSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[holderID]; err != nil {
		return nil, err
	}
	out := []models.ScheduleSession{}
	for _, s := range f.sessions {
		if s.HolderID == holderID && s.Day == day {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeHolders map[string]bool

func (f fakeHolders) HolderExists(_ context.Context, holderID string) (bool, error) {
	return f[holderID], nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// monday builds a time on Monday 2026-10-19 in UTC.
func monday(hour, min int) time.Time {
	return time.Date(2026, 10, 19, hour, min, 0, 0, time.UTC)
}

func checkedOut(id, label, holderID string, status models.DeviceStatus, at time.Time) models.Device {
	name := "Holder " + holderID
	return models.Device{
		ID: id, Label: label, Status: status,
		HolderID: &holderID, HolderName: &name, CheckedOutAt: &at,
	}
}
