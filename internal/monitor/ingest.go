package monitor

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"linkhealth/internal/models"
)

// SlowResponseMS is the response time above which a healthy check raises a
// slow alert.
const SlowResponseMS = 5000

// ApplyCheck applies one probe result to a health record and returns the
// alerts appended by this check. It is the single mutation point for a
// record's monitoring state; the caller owns persistence and per-record
// serialization.
//
// Transitions are edge-triggered: crossing the failure threshold while
// healthy flips the record down exactly once, and the first healthy check
// while down flips it back up exactly once. Repeated checks on either side
// of a transition append no further down/recovered alerts.
func ApplyCheck(record *models.HealthRecord, check models.CheckResult, now time.Time) []models.Alert {
	var appended []models.Alert

	record.CheckHistory = append(record.CheckHistory, check)
	if len(record.CheckHistory) > models.HistoryLimit {
		record.CheckHistory = record.CheckHistory[len(record.CheckHistory)-models.HistoryLimit:]
	}

	status := &record.CurrentStatus
	checkedAt := check.Timestamp
	status.LastCheckedAt = &checkedAt
	statusCode := check.StatusCode
	status.LastStatusCode = &statusCode
	responseTime := check.ResponseTimeMS
	status.LastResponseTimeMS = &responseTime

	if check.IsHealthy {
		status.ConsecutiveFailures = 0
		if !status.IsHealthy {
			status.IsHealthy = true
			appended = append(appended, newAlert(
				models.AlertTypeRecovered,
				fmt.Sprintf("Link is back up (HTTP %d)", check.StatusCode),
				now,
			))
		}
	} else {
		status.ConsecutiveFailures++
		if status.ConsecutiveFailures >= record.Settings.FailureThreshold && status.IsHealthy {
			status.IsHealthy = false
			downAt := now
			record.Statistics.LastDowntimeAt = &downAt
			if record.Settings.NotifyOnFailure {
				appended = append(appended, newAlert(
					models.AlertTypeDown,
					fmt.Sprintf("Link is down after %d consecutive failed checks (HTTP %d)",
						record.Settings.FailureThreshold, check.StatusCode),
					now,
				))
			}
		}
	}

	stats := &record.Statistics
	stats.TotalChecks++
	if check.IsHealthy {
		stats.SuccessfulChecks++
	} else {
		stats.FailedChecks++
	}
	stats.UptimePercent = float64(stats.SuccessfulChecks) / float64(stats.TotalChecks) * 100
	stats.AverageResponseTimeMS = averageResponseTime(record.CheckHistory)

	if check.IsHealthy && check.ResponseTimeMS > SlowResponseMS && record.Settings.NotifyOnFailure {
		appended = append(appended, newAlert(
			models.AlertTypeSlow,
			fmt.Sprintf("Slow response: %dms (HTTP %d)", check.ResponseTimeMS, check.StatusCode),
			now,
		))
	}

	record.Alerts = append(record.Alerts, appended...)
	record.UpdatedAt = now
	return appended
}

// averageResponseTime is the arithmetic mean over the most recent window of
// history entries, rounded to the nearest integer.
func averageResponseTime(history []models.CheckResult) int64 {
	if len(history) == 0 {
		return 0
	}
	window := history
	if len(window) > models.LatencyWindow {
		window = window[len(window)-models.LatencyWindow:]
	}
	var sum int64
	for _, c := range window {
		sum += c.ResponseTimeMS
	}
	return int64(math.Round(float64(sum) / float64(len(window))))
}

func newAlert(alertType, message string, now time.Time) models.Alert {
	return models.Alert{
		ID:        uuid.NewString(),
		Type:      alertType,
		Message:   message,
		Timestamp: now,
	}
}
