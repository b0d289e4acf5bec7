package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSettingsNormalize(t *testing.T) {
	s := Settings{Enabled: true}
	s.Normalize()
	assert.Equal(t, DefaultCheckIntervalMinutes, s.CheckIntervalMinutes)
	assert.Equal(t, DefaultFailureThreshold, s.FailureThreshold)

	s = Settings{CheckIntervalMinutes: 5, FailureThreshold: 1}
	s.Normalize()
	assert.Equal(t, 5, s.CheckIntervalMinutes)
	assert.Equal(t, 1, s.FailureThreshold)
}

func TestNewHealthRecordInitialState(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewHealthRecord("lnk_1", "https://example.com", Settings{Enabled: true}, now)

	assert.True(t, r.CurrentStatus.IsHealthy)
	assert.Nil(t, r.CurrentStatus.LastCheckedAt)
	assert.Equal(t, 0, r.CurrentStatus.ConsecutiveFailures)
	assert.Empty(t, r.CheckHistory)
	assert.Empty(t, r.Alerts)
	assert.Equal(t, DefaultCheckIntervalMinutes, r.Settings.CheckIntervalMinutes)
}

func TestDueSelection(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	settings := Settings{Enabled: true, CheckIntervalMinutes: 60, FailureThreshold: 3}

	never := NewHealthRecord("lnk_never", "https://example.com", settings, now)
	assert.True(t, never.Due(now), "a never-checked record is due")

	recent := NewHealthRecord("lnk_recent", "https://example.com", settings, now)
	checkedAt := now.Add(-30 * time.Minute)
	recent.CurrentStatus.LastCheckedAt = &checkedAt
	assert.False(t, recent.Due(now), "checked 30 minutes ago with a 60-minute interval is not due")

	stale := NewHealthRecord("lnk_stale", "https://example.com", settings, now)
	staleAt := now.Add(-61 * time.Minute)
	stale.CurrentStatus.LastCheckedAt = &staleAt
	assert.True(t, stale.Due(now), "checked 61 minutes ago with a 60-minute interval is due")

	disabled := NewHealthRecord("lnk_disabled", "https://example.com", settings, now)
	disabled.Settings.Enabled = false
	assert.False(t, disabled.Due(now), "disabled records are never due")
}

func TestUnacknowledgedAlertCount(t *testing.T) {
	r := NewHealthRecord("lnk_1", "https://example.com", DefaultSettings(), time.Now())
	assert.Equal(t, 0, r.UnacknowledgedAlertCount())

	r.Alerts = []Alert{
		{ID: "a1", Type: AlertTypeDown},
		{ID: "a2", Type: AlertTypeRecovered, Acknowledged: true},
		{ID: "a3", Type: AlertTypeSlow},
	}
	assert.Equal(t, 2, r.UnacknowledgedAlertCount())
}
