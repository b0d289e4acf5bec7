package models

import "time"

// Alert types appended by check ingestion.
const (
	AlertTypeDown      = "down"
	AlertTypeSlow      = "slow"
	AlertTypeRecovered = "recovered"
)

// Default monitoring settings applied when a record is created without
// explicit values.
const (
	DefaultCheckIntervalMinutes = 60
	DefaultFailureThreshold     = 3
)

// HistoryLimit caps the number of retained check results per record.
// Eviction is FIFO by insertion order.
const HistoryLimit = 100

// LatencyWindow is the number of most recent history entries used when
// computing the average response time.
const LatencyWindow = 20

// CheckResult stores the outcome of a single probe of a destination URL.
// StatusCode is 0 when no response was received (transport failure).
type CheckResult struct {
	Timestamp      time.Time `json:"timestamp"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMS int64     `json:"response_time_ms"`
	IsHealthy      bool      `json:"is_healthy"`
	ErrorMessage   *string   `json:"error_message"` // Pointer to allow for null on success
}

// Alert is one entry in a record's append-only alert ledger.
type Alert struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Message        string     `json:"message"`
	Timestamp      time.Time  `json:"timestamp"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at"`
}

// CurrentStatus is the live state of a monitored link.
type CurrentStatus struct {
	IsHealthy           bool       `json:"is_healthy"`
	LastCheckedAt       *time.Time `json:"last_checked_at"`
	LastStatusCode      *int       `json:"last_status_code"`
	LastResponseTimeMS  *int64     `json:"last_response_time_ms"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

// Statistics holds lifetime counters and derived values. UptimePercent is
// computed from the lifetime counters, not the bounded history;
// AverageResponseTimeMS is computed from the recent history window only.
type Statistics struct {
	TotalChecks           int64      `json:"total_checks"`
	SuccessfulChecks      int64      `json:"successful_checks"`
	FailedChecks          int64      `json:"failed_checks"`
	UptimePercent         float64    `json:"uptime_percent"`
	AverageResponseTimeMS int64      `json:"average_response_time_ms"`
	LastDowntimeAt        *time.Time `json:"last_downtime_at"`
}

// Settings controls how a link is monitored.
type Settings struct {
	CheckIntervalMinutes int  `json:"check_interval_minutes"`
	Enabled              bool `json:"enabled"`
	NotifyOnFailure      bool `json:"notify_on_failure"`
	FailureThreshold     int  `json:"failure_threshold"`
}

// DefaultSettings returns the settings applied when monitoring is enabled
// without explicit values.
func DefaultSettings() Settings {
	return Settings{
		CheckIntervalMinutes: DefaultCheckIntervalMinutes,
		Enabled:              true,
		NotifyOnFailure:      true,
		FailureThreshold:     DefaultFailureThreshold,
	}
}

// Normalize fills zero-valued fields with defaults.
func (s *Settings) Normalize() {
	if s.CheckIntervalMinutes <= 0 {
		s.CheckIntervalMinutes = DefaultCheckIntervalMinutes
	}
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = DefaultFailureThreshold
	}
}

// HealthRecord is the durable monitoring state for one link, unique by
// LinkID. It is mutated only by check ingestion, settings changes, and
// alert acknowledgement.
type HealthRecord struct {
	LinkID         string        `json:"link_id"`
	DestinationURL string        `json:"destination_url"`
	CurrentStatus  CurrentStatus `json:"current_status"`
	Statistics     Statistics    `json:"statistics"`
	CheckHistory   []CheckResult `json:"check_history"`
	Settings       Settings      `json:"settings"`
	Alerts         []Alert       `json:"alerts"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewHealthRecord creates a record in its initial state: healthy, never
// checked, empty history.
func NewHealthRecord(linkID, destinationURL string, settings Settings, now time.Time) *HealthRecord {
	settings.Normalize()
	return &HealthRecord{
		LinkID:         linkID,
		DestinationURL: destinationURL,
		CurrentStatus:  CurrentStatus{IsHealthy: true},
		Settings:       settings,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Due reports whether the record should be probed at the given time,
// honoring the per-record check interval.
func (r *HealthRecord) Due(now time.Time) bool {
	if !r.Settings.Enabled {
		return false
	}
	if r.CurrentStatus.LastCheckedAt == nil {
		return true
	}
	interval := time.Duration(r.Settings.CheckIntervalMinutes) * time.Minute
	return now.Sub(*r.CurrentStatus.LastCheckedAt) >= interval
}

// UnacknowledgedAlertCount counts alerts not yet acknowledged.
func (r *HealthRecord) UnacknowledgedAlertCount() int {
	n := 0
	for _, a := range r.Alerts {
		if !a.Acknowledged {
			n++
		}
	}
	return n
}
