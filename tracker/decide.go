package tracker

import (
	"time"

	"Gin_postgres_redis_device_tracker/models"
)

type Verdict int

const (
	NotOverdue Verdict = iota
	Overdue
	// AlreadyOverdue is Overdue for a device whose status already says so.
	AlreadyOverdue
)

func (v Verdict) String() string {
	switch v {
	case Overdue:
		return "overdue"
	case AlreadyOverdue:
		return "already_overdue"
	default:
		return "not_overdue"
	}
}

type Reason string

const (
	ReasonNoScheduleWithinTimeout Reason = "no_schedule_within_timeout"
	ReasonNoScheduleTimedOut      Reason = "no_schedule_timed_out"
	ReasonInSession               Reason = "in_session"
	ReasonBeforeFirstSession      Reason = "before_first_session"
	ReasonNextSessionSoon         Reason = "next_session_within_buffer"
	ReasonWithinBuffer            Reason = "within_buffer"
	ReasonSessionEnded            Reason = "session_ended"
)

type Decision struct {
	Verdict Verdict
	Reason  Reason
	// MinsSinceEnded is set once a session has concluded today.
	MinsSinceEnded int
}

// Decide reports whether a device checked out at checkedOutAt should already
// be back at now, given the holder's sessions for now's day. now must be in
// the schedule's time zone. windows may be in any order.
func (p Policy) Decide(now, checkedOutAt time.Time, windows []Window) Decision {
	if len(windows) == 0 {
		if now.Sub(checkedOutAt) > p.NoScheduleTimeout {
			return Decision{Verdict: Overdue, Reason: ReasonNoScheduleTimedOut}
		}
		return Decision{Verdict: NotOverdue, Reason: ReasonNoScheduleWithinTimeout}
	}

	nowMin := MinutesOf(now)
	for _, w := range windows {
		// both ends inclusive
		if w.Start <= nowMin && nowMin <= w.End {
			return Decision{Verdict: NotOverdue, Reason: ReasonInSession}
		}
	}

	lastEnd := -1
	for _, w := range windows {
		if w.End < nowMin && w.End > lastEnd {
			lastEnd = w.End
		}
	}
	if lastEnd < 0 {
		return Decision{Verdict: NotOverdue, Reason: ReasonBeforeFirstSession}
	}
	since := nowMin - lastEnd

	nextStart := -1
	for _, w := range windows {
		if w.Start > nowMin && (nextStart < 0 || w.Start < nextStart) {
			nextStart = w.Start
		}
	}
	buffer := p.bufferMinutes()
	if nextStart >= 0 && nextStart-nowMin <= buffer {
		return Decision{Verdict: NotOverdue, Reason: ReasonNextSessionSoon, MinsSinceEnded: since}
	}
	if since > buffer {
		return Decision{Verdict: Overdue, Reason: ReasonSessionEnded, MinsSinceEnded: since}
	}
	return Decision{Verdict: NotOverdue, Reason: ReasonWithinBuffer, MinsSinceEnded: since}
}

// Evaluate runs Decide for a checked-out device and folds in its current
// status. The device must have a checkout timestamp.
func (p Policy) Evaluate(now time.Time, d *models.Device, windows []Window) Decision {
	dec := p.Decide(now, *d.CheckedOutAt, windows)
	if dec.Verdict == Overdue && d.Status == models.DeviceOverdue {
		dec.Verdict = AlreadyOverdue
	}
	return dec
}
