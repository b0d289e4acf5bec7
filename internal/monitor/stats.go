package monitor

import (
	"time"

	"linkhealth/internal/models"
)

// UptimePercentage computes uptime over the history entries within the last
// given number of days. An empty window reports 100: a link with no recent
// checks is considered fully up rather than unknown.
func UptimePercentage(record *models.HealthRecord, days int, now time.Time) float64 {
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	var total, successful int
	for _, c := range record.CheckHistory {
		if c.Timestamp.Before(cutoff) {
			continue
		}
		total++
		if c.IsHealthy {
			successful++
		}
	}
	if total == 0 {
		return 100
	}
	return float64(successful) / float64(total) * 100
}

// RecentChecks returns up to n history entries, most recent first.
func RecentChecks(record *models.HealthRecord, n int) []models.CheckResult {
	history := record.CheckHistory
	if n > len(history) {
		n = len(history)
	}
	recent := make([]models.CheckResult, 0, n)
	for i := len(history) - 1; i >= len(history)-n; i-- {
		recent = append(recent, history[i])
	}
	return recent
}
