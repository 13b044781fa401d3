package tracker

import (
	"fmt"
	"sort"
	"time"

	"Gin_postgres_redis_device_tracker/models"
)

const (
	// OverdueBuffer is the grace period after a session ends before the
	// device is flagged overdue.
	OverdueBuffer = 5 * time.Minute
	// NoScheduleTimeout is how long a holder with no sessions today may keep a device.
	NoScheduleTimeout = 60 * time.Minute
	// DuplicateSuppressionWindow is the window in which a repeated
	// checkout/return for the same device, holder and action writes no new event.
	DuplicateSuppressionWindow = 5 * time.Minute
	// HistoryDedupWindow is used by the offline history pruning job only.
	HistoryDedupWindow = 30 * time.Second
	// DefaultReconcileInterval is the background pass period.
	DefaultReconcileInterval = 60 * time.Second
)

// Policy carries the tunable time constants. The zero value is not useful;
// start from DefaultPolicy.
type Policy struct {
	OverdueBuffer     time.Duration
	NoScheduleTimeout time.Duration
	DuplicateWindow   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		OverdueBuffer:     OverdueBuffer,
		NoScheduleTimeout: NoScheduleTimeout,
		DuplicateWindow:   DuplicateSuppressionWindow,
	}
}

func (p Policy) bufferMinutes() int { return int(p.OverdueBuffer / time.Minute) }

// ToMinutes converts "HH:MM" to minutes since midnight.
func ToMinutes(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", clock, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// MinutesOf returns the minute offset of t since midnight in t's location.
func MinutesOf(t time.Time) int { return t.Hour()*60 + t.Minute() }

// DayOf maps t (in its own location) to the canonical weekday name stored
// on schedule sessions. Every day lookup in the module goes through here.
func DayOf(t time.Time) models.Weekday {
	return models.Weekday(t.Weekday().String())
}

// Window is a session reduced to minute offsets, Start < End.
type Window struct {
	Start int
	End   int
}

// Windows converts sessions to minute windows, rejecting malformed entries.
func Windows(sessions []models.ScheduleSession) ([]Window, error) {
	out := make([]Window, 0, len(sessions))
	for _, s := range sessions {
		start, err := ToMinutes(s.StartTime)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", s.ID, err)
		}
		end, err := ToMinutes(s.EndTime)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", s.ID, err)
		}
		if start >= end {
			return nil, fmt.Errorf("session %s: start %s not before end %s", s.ID, s.StartTime, s.EndTime)
		}
		out = append(out, Window{Start: start, End: end})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// ExpectedReturn is the latest session end today plus the buffer, or
// now + NoScheduleTimeout when there are no sessions.
func (p Policy) ExpectedReturn(now time.Time, windows []Window) time.Time {
	if len(windows) == 0 {
		return now.Add(p.NoScheduleTimeout)
	}
	latest := windows[0].End
	for _, w := range windows[1:] {
		if w.End > latest {
			latest = w.End
		}
	}
	// wall clock, not elapsed time since midnight
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, latest, 0, 0, now.Location()).Add(p.OverdueBuffer)
}
