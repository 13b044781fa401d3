package tracker

import (
	"testing"
	"time"
	_ "time/tzdata"

	"Gin_postgres_redis_device_tracker/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinutes(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:05", want: 545},
		{in: "23:59", want: 1439},
		{in: "24:00", wantErr: true},
		{in: "9am", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToMinutes(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDayOfUsesTheTimesLocation(t *testing.T) {
	assert.Equal(t, models.Monday, DayOf(monday(10, 0)))

	// 23:30 UTC Monday is already Tuesday in Shanghai
	shanghai := time.FixedZone("CST", 8*3600)
	assert.Equal(t, models.Tuesday, DayOf(monday(23, 30).In(shanghai)))
}

func TestDayOfMatchesStoredNames(t *testing.T) {
	for i := 0; i < 7; i++ {
		d := DayOf(monday(12, 0).AddDate(0, 0, i))
		parsed, ok := models.ParseWeekday(string(d))
		require.True(t, ok, d)
		assert.Equal(t, d, parsed)
	}
}

func TestWindowsRejectsMalformedSessions(t *testing.T) {
	_, err := Windows([]models.ScheduleSession{{ID: "s1", StartTime: "10:00", EndTime: "09:00"}})
	assert.Error(t, err)

	_, err = Windows([]models.ScheduleSession{{ID: "s2", StartTime: "10:00", EndTime: "noon"}})
	assert.Error(t, err)
}

func TestExpectedReturn(t *testing.T) {
	p := DefaultPolicy()
	now := monday(8, 15)

	got := p.ExpectedReturn(now, w(t, "13:00", "14:30", "09:00", "10:00"))
	assert.Equal(t, monday(14, 35), got)

	assert.Equal(t, monday(9, 15), p.ExpectedReturn(now, nil))
}

func TestExpectedReturnOnClockChangeDays(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	p := DefaultPolicy()
	sessions := w(t, "14:00", "15:00")

	for _, tc := range []struct {
		name string
		day  time.Time
	}{
		{"spring forward", time.Date(2026, 3, 8, 9, 0, 0, 0, ny)},
		{"fall back", time.Date(2026, 11, 1, 9, 0, 0, 0, ny)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := p.ExpectedReturn(tc.day, sessions)
			assert.Equal(t, 15, got.Hour())
			assert.Equal(t, 5, got.Minute())
			assert.Equal(t, tc.day.Day(), got.Day())
		})
	}
}
