package db

import (
	"context"
	"testing"

	"Gin_postgres_redis_device_tracker/models"
	"Gin_postgres_redis_device_tracker/tracker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addSession(t *testing.T, r *Repo, holderID string, day models.Weekday, start, end string) *models.ScheduleSession {
	t.Helper()
	s := &models.ScheduleSession{HolderID: holderID, Course: "CS " + start, Day: day, StartTime: start, EndTime: end}
	require.NoError(t, r.CreateSession(context.Background(), s))
	return s
}

func TestSessionsForHolderOnDay(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := seedUser(t, r, "alice")
	bob := seedUser(t, r, "bob")

	addSession(t, r, alice.ID, models.Monday, "13:00", "14:00")
	addSession(t, r, alice.ID, models.Monday, "09:00", "10:00")
	addSession(t, r, alice.ID, models.Tuesday, "09:00", "10:00")
	addSession(t, r, bob.ID, models.Monday, "08:00", "09:00")

	ss, err := r.SessionsForHolderOnDay(ctx, alice.ID, models.Monday)
	require.NoError(t, err)
	require.Len(t, ss, 2)
	assert.Equal(t, "09:00", ss[0].StartTime)
	assert.Equal(t, "13:00", ss[1].StartTime)
	assert.Equal(t, "Alice", ss[0].HolderName)

	ss, err = r.SessionsForHolderOnDay(ctx, alice.ID, models.Sunday)
	require.NoError(t, err)
	assert.NotNil(t, ss)
	assert.Empty(t, ss)
}

func TestCreateSessionValidation(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := seedUser(t, r, "alice")

	cases := map[string]models.ScheduleSession{
		"no course":        {HolderID: alice.ID, Day: models.Monday, StartTime: "09:00", EndTime: "10:00"},
		"bad day":          {HolderID: alice.ID, Course: "x", Day: "Funday", StartTime: "09:00", EndTime: "10:00"},
		"bad clock":        {HolderID: alice.ID, Course: "x", Day: models.Monday, StartTime: "9am", EndTime: "10:00"},
		"end before start": {HolderID: alice.ID, Course: "x", Day: models.Monday, StartTime: "11:00", EndTime: "10:00"},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			s := s
			assert.ErrorIs(t, r.CreateSession(ctx, &s), tracker.ErrInvalidArgument)
		})
	}

	unknown := &models.ScheduleSession{HolderID: uuid.NewString(), Course: "x", Day: models.Monday, StartTime: "09:00", EndTime: "10:00"}
	assert.ErrorIs(t, r.CreateSession(ctx, unknown), tracker.ErrNotFound)

	lower := &models.ScheduleSession{HolderID: alice.ID, Course: "x", Day: "monday", StartTime: "09:00", EndTime: "10:00"}
	require.NoError(t, r.CreateSession(ctx, lower))
	assert.Equal(t, models.Monday, lower.Day)
}

func TestUpdateAndDeleteSession(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := seedUser(t, r, "alice")
	s := addSession(t, r, alice.ID, models.Monday, "09:00", "10:00")

	upd := &models.ScheduleSession{ID: s.ID, HolderID: alice.ID, Course: "Physics", Day: models.Wednesday, StartTime: "10:00", EndTime: "11:30"}
	prev, err := r.UpdateSession(ctx, upd)
	require.NoError(t, err)
	assert.Equal(t, models.Monday, prev.Day)
	assert.Equal(t, models.Wednesday, upd.Day)
	assert.Equal(t, "Alice", upd.HolderName)

	got, err := r.ListSessions(ctx, ScheduleQuery{HolderID: alice.ID, Day: models.Wednesday})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Physics", got[0].Course)

	deleted, err := r.DeleteSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Wednesday, deleted.Day)

	_, err = r.FindSession(ctx, s.ID)
	assert.ErrorIs(t, err, tracker.ErrNotFound)
	_, err = r.DeleteSession(ctx, s.ID)
	assert.ErrorIs(t, err, tracker.ErrNotFound)
}
