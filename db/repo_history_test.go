package db

import (
	"context"
	"testing"
	"time"

	"Gin_postgres_redis_device_tracker/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertEvent(t *testing.T, r *Repo, deviceID, holderID string, action models.EventAction, at time.Time) {
	t.Helper()
	require.NoError(t, r.DB.Create(&models.CheckoutEvent{
		ID: uuid.NewString(), DeviceID: deviceID, HolderID: holderID, HolderName: "x",
		Action: action, At: at.UTC(),
	}).Error)
}

func TestListHistoryFiltersAndOrder(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	d1, d2 := uuid.NewString(), uuid.NewString()
	h := uuid.NewString()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	insertEvent(t, r, d1, h, models.ActionPickup, base)
	insertEvent(t, r, d1, h, models.ActionReturn, base.Add(time.Hour))
	insertEvent(t, r, d2, h, models.ActionPickup, base.Add(2*time.Hour))

	all, err := r.ListHistory(ctx, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, d2, all[0].DeviceID)

	byDevice, err := r.ListHistory(ctx, HistoryQuery{DeviceID: d1})
	require.NoError(t, err)
	assert.Len(t, byDevice, 2)

	pickups, err := r.ListHistory(ctx, HistoryQuery{HolderID: h, Action: models.ActionPickup, Limit: 1})
	require.NoError(t, err)
	require.Len(t, pickups, 1)
	assert.Equal(t, d2, pickups[0].DeviceID)
}

func TestPruneDuplicateEvents(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	d, h := uuid.NewString(), uuid.NewString()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	insertEvent(t, r, d, h, models.ActionPickup, base)
	insertEvent(t, r, d, h, models.ActionPickup, base.Add(10*time.Second)) // dup
	insertEvent(t, r, d, h, models.ActionPickup, base.Add(30*time.Second)) // dup, 30s from kept
	insertEvent(t, r, d, h, models.ActionPickup, base.Add(45*time.Second)) // kept, 45s from kept
	insertEvent(t, r, d, h, models.ActionReturn, base.Add(50*time.Second)) // other action
	insertEvent(t, r, uuid.NewString(), h, models.ActionPickup, base.Add(5*time.Second))

	n, err := r.PruneDuplicateEvents(ctx, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := r.ListHistory(ctx, HistoryQuery{DeviceID: d, Action: models.ActionPickup})
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.True(t, left[0].At.Equal(base.Add(45*time.Second)))
	assert.True(t, left[1].At.Equal(base))

	n, err = r.PruneDuplicateEvents(ctx, 30*time.Second)
	require.NoError(t, err)
	assert.Zero(t, n)
}
