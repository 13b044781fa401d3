package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"Gin_postgres_redis_device_tracker/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *tracker.PassReport {
	return &tracker.PassReport{
		StartedAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		Scanned:   3,
		Flagged:   1,
		Skipped:   1,
		Errors: []*tracker.DeviceError{
			{DeviceID: "d2", Kind: tracker.ErrScheduleLookup, Err: errors.New("lookup timed out")},
		},
	}
}

func TestWriteReportJSONIncludesDeviceErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), true))

	var got struct {
		Scanned int                 `json:"scanned"`
		Flagged int                 `json:"flagged"`
		Errors  []tracker.ErrorView `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 3, got.Scanned)
	assert.Equal(t, 1, got.Flagged)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "d2", got.Errors[0].DeviceID)
	assert.Equal(t, "schedule_lookup", got.Errors[0].Kind)
	assert.Contains(t, got.Errors[0].Error, "lookup timed out")
}

func TestWriteReportJSONEmptyErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, &tracker.PassReport{Scanned: 2}, true))
	assert.Contains(t, buf.String(), `"errors": []`)
}

func TestWriteReportText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), false))
	out := buf.String()
	assert.Contains(t, out, "Flagged overdue: 1")
	assert.Contains(t, out, "d2")
	assert.Contains(t, out, "[schedule_lookup]")
}
