package monitor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkhealth/internal/models"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestRecord(settings models.Settings) *models.HealthRecord {
	return models.NewHealthRecord("lnk_1", "https://example.com/page", settings, testBase)
}

func healthyCheck(ts time.Time, statusCode int, responseTimeMS int64) models.CheckResult {
	return models.CheckResult{
		Timestamp:      ts,
		StatusCode:     statusCode,
		ResponseTimeMS: responseTimeMS,
		IsHealthy:      true,
	}
}

func failedCheck(ts time.Time, statusCode int, errMsg string) models.CheckResult {
	return models.CheckResult{
		Timestamp:      ts,
		StatusCode:     statusCode,
		ResponseTimeMS: 50,
		IsHealthy:      false,
		ErrorMessage:   &errMsg,
	}
}

func alertsOfType(record *models.HealthRecord, alertType string) []models.Alert {
	var matched []models.Alert
	for _, a := range record.Alerts {
		if a.Type == alertType {
			matched = append(matched, a)
		}
	}
	return matched
}

func TestThresholdDebounce(t *testing.T) {
	record := newTestRecord(models.Settings{Enabled: true, NotifyOnFailure: true, FailureThreshold: 3})

	ApplyCheck(record, failedCheck(testBase, 500, "HTTP 500"), testBase)
	assert.True(t, record.CurrentStatus.IsHealthy)
	assert.Equal(t, 1, record.CurrentStatus.ConsecutiveFailures)

	ApplyCheck(record, failedCheck(testBase.Add(time.Minute), 500, "HTTP 500"), testBase.Add(time.Minute))
	assert.True(t, record.CurrentStatus.IsHealthy)
	assert.Equal(t, 2, record.CurrentStatus.ConsecutiveFailures)

	ApplyCheck(record, healthyCheck(testBase.Add(2*time.Minute), 200, 120), testBase.Add(2*time.Minute))
	assert.True(t, record.CurrentStatus.IsHealthy)
	assert.Equal(t, 0, record.CurrentStatus.ConsecutiveFailures)
	assert.Empty(t, record.Alerts)
	assert.Nil(t, record.Statistics.LastDowntimeAt)
}

func TestEdgeTriggeredDown(t *testing.T) {
	record := newTestRecord(models.Settings{Enabled: true, NotifyOnFailure: true, FailureThreshold: 3})

	for i := 0; i < 3; i++ {
		ApplyCheck(record, failedCheck(testBase.Add(time.Duration(i)*time.Minute), 503, "HTTP 503"), testBase)
	}
	require.False(t, record.CurrentStatus.IsHealthy)
	require.Len(t, alertsOfType(record, models.AlertTypeDown), 1)
	require.NotNil(t, record.Statistics.LastDowntimeAt)

	// Further failures while already down append nothing.
	for i := 3; i < 8; i++ {
		ApplyCheck(record, failedCheck(testBase.Add(time.Duration(i)*time.Minute), 503, "HTTP 503"), testBase)
	}
	assert.False(t, record.CurrentStatus.IsHealthy)
	assert.Equal(t, 8, record.CurrentStatus.ConsecutiveFailures)
	assert.Len(t, alertsOfType(record, models.AlertTypeDown), 1)
}

func TestEdgeTriggeredRecovery(t *testing.T) {
	record := newTestRecord(models.Settings{Enabled: true, NotifyOnFailure: true, FailureThreshold: 2})
	ApplyCheck(record, failedCheck(testBase, 0, "timeout"), testBase)
	ApplyCheck(record, failedCheck(testBase, 0, "timeout"), testBase)
	require.False(t, record.CurrentStatus.IsHealthy)

	appended := ApplyCheck(record, healthyCheck(testBase.Add(time.Minute), 200, 90), testBase.Add(time.Minute))
	require.Len(t, appended, 1)
	assert.Equal(t, models.AlertTypeRecovered, appended[0].Type)
	assert.True(t, record.CurrentStatus.IsHealthy)
	assert.Equal(t, 0, record.CurrentStatus.ConsecutiveFailures)

	// One recovery alert only, even across further healthy checks.
	ApplyCheck(record, healthyCheck(testBase.Add(2*time.Minute), 200, 90), testBase.Add(2*time.Minute))
	assert.Len(t, alertsOfType(record, models.AlertTypeRecovered), 1)
}

func TestFlappingGuardScenario(t *testing.T) {
	record := newTestRecord(models.Settings{Enabled: true, NotifyOnFailure: true, FailureThreshold: 2})

	ApplyCheck(record, failedCheck(testBase, 500, "HTTP 500"), testBase)
	ApplyCheck(record, failedCheck(testBase, 500, "HTTP 500"), testBase)
	require.False(t, record.CurrentStatus.IsHealthy)
	require.Len(t, alertsOfType(record, models.AlertTypeDown), 1)

	ApplyCheck(record, healthyCheck(testBase, 200, 100), testBase)
	assert.True(t, record.CurrentStatus.IsHealthy)
	assert.Len(t, alertsOfType(record, models.AlertTypeRecovered), 1)
	assert.Equal(t, 0, record.CurrentStatus.ConsecutiveFailures)
}

func TestBoundedHistory(t *testing.T) {
	record := newTestRecord(models.DefaultSettings())
	for i := 0; i < 150; i++ {
		ApplyCheck(record, healthyCheck(testBase.Add(time.Duration(i)*time.Minute), 200, int64(i)), testBase)
	}
	require.Len(t, record.CheckHistory, models.HistoryLimit)
	// FIFO eviction: the oldest 50 are gone, entries 50..149 remain in order.
	assert.Equal(t, int64(50), record.CheckHistory[0].ResponseTimeMS)
	assert.Equal(t, int64(149), record.CheckHistory[len(record.CheckHistory)-1].ResponseTimeMS)
}

func TestLifetimeUptime(t *testing.T) {
	record := newTestRecord(models.Settings{Enabled: true, FailureThreshold: 100})
	for i := 0; i < 7; i++ {
		ApplyCheck(record, healthyCheck(testBase, 200, 100), testBase)
	}
	for i := 0; i < 3; i++ {
		ApplyCheck(record, failedCheck(testBase, 500, "HTTP 500"), testBase)
	}
	assert.Equal(t, int64(10), record.Statistics.TotalChecks)
	assert.Equal(t, int64(7), record.Statistics.SuccessfulChecks)
	assert.Equal(t, int64(3), record.Statistics.FailedChecks)
	assert.InDelta(t, 70, record.Statistics.UptimePercent, 1e-9)
}

func TestAverageLatencyWindow(t *testing.T) {
	record := newTestRecord(models.DefaultSettings())
	for i := 0; i < 5; i++ {
		ApplyCheck(record, healthyCheck(testBase, 200, 100), testBase)
	}
	for i := 0; i < 20; i++ {
		ApplyCheck(record, healthyCheck(testBase, 200, 1000), testBase)
	}
	// Only the last 20 entries count, so the early 100ms checks are excluded.
	assert.Equal(t, int64(1000), record.Statistics.AverageResponseTimeMS)
}

func TestSlowAlertIndependentOfHealth(t *testing.T) {
	record := newTestRecord(models.Settings{Enabled: true, NotifyOnFailure: true, FailureThreshold: 3})

	appended := ApplyCheck(record, healthyCheck(testBase, 200, 6000), testBase)
	require.Len(t, appended, 1)
	assert.Equal(t, models.AlertTypeSlow, appended[0].Type)
	assert.True(t, record.CurrentStatus.IsHealthy)

	// Consecutive slow checks are not deduplicated.
	ApplyCheck(record, healthyCheck(testBase, 200, 7000), testBase)
	assert.Len(t, alertsOfType(record, models.AlertTypeSlow), 2)
}

func TestSlowAndRecoveredCoOccur(t *testing.T) {
	record := newTestRecord(models.Settings{Enabled: true, NotifyOnFailure: true, FailureThreshold: 1})
	ApplyCheck(record, failedCheck(testBase, 500, "HTTP 500"), testBase)
	require.False(t, record.CurrentStatus.IsHealthy)

	appended := ApplyCheck(record, healthyCheck(testBase, 200, 8000), testBase)
	require.Len(t, appended, 2)
	assert.Equal(t, models.AlertTypeRecovered, appended[0].Type)
	assert.Equal(t, models.AlertTypeSlow, appended[1].Type)
	assert.True(t, record.CurrentStatus.IsHealthy)
}

func TestDownAlertGatedOnNotifySetting(t *testing.T) {
	record := newTestRecord(models.Settings{Enabled: true, NotifyOnFailure: false, FailureThreshold: 2})
	ApplyCheck(record, failedCheck(testBase, 502, "HTTP 502"), testBase)
	ApplyCheck(record, failedCheck(testBase, 502, "HTTP 502"), testBase)

	// The transition still happens; only the alert is suppressed.
	assert.False(t, record.CurrentStatus.IsHealthy)
	assert.NotNil(t, record.Statistics.LastDowntimeAt)
	assert.Empty(t, record.Alerts)
}

func TestSlowAlertGatedOnNotifySetting(t *testing.T) {
	record := newTestRecord(models.Settings{Enabled: true, NotifyOnFailure: false, FailureThreshold: 3})
	ApplyCheck(record, healthyCheck(testBase, 200, 9000), testBase)
	assert.Empty(t, record.Alerts)
}

func TestStatusFieldsUpdatedUnconditionally(t *testing.T) {
	record := newTestRecord(models.DefaultSettings())
	checkedAt := testBase.Add(5 * time.Minute)
	ApplyCheck(record, failedCheck(checkedAt, 404, "HTTP 404"), checkedAt)

	require.NotNil(t, record.CurrentStatus.LastCheckedAt)
	assert.Equal(t, checkedAt, *record.CurrentStatus.LastCheckedAt)
	require.NotNil(t, record.CurrentStatus.LastStatusCode)
	assert.Equal(t, 404, *record.CurrentStatus.LastStatusCode)
	require.NotNil(t, record.CurrentStatus.LastResponseTimeMS)
}

func TestAlertMessagesIncludeContext(t *testing.T) {
	record := newTestRecord(models.Settings{Enabled: true, NotifyOnFailure: true, FailureThreshold: 2})
	ApplyCheck(record, failedCheck(testBase, 503, "HTTP 503"), testBase)
	ApplyCheck(record, failedCheck(testBase, 503, "HTTP 503"), testBase)

	down := alertsOfType(record, models.AlertTypeDown)
	require.Len(t, down, 1)
	assert.Contains(t, down[0].Message, fmt.Sprintf("%d consecutive", 2))
	assert.Contains(t, down[0].Message, "503")
	assert.NotEmpty(t, down[0].ID)
	assert.False(t, down[0].Acknowledged)
}
