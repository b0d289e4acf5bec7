// Package monitor implements the link health monitoring core: the check
// ingestion state machine, statistics aggregation, and the operation surface
// exposed to collaborators.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"linkhealth/internal/models"
	"linkhealth/internal/storage"
)

var (
	// ErrNotMonitored is returned when an operation targets a link that has
	// no health record.
	ErrNotMonitored = errors.New("link is not monitored")
	// ErrAlertNotFound is returned when acknowledging an unknown alert id.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrInvalidInput is returned for malformed identifiers or settings.
	ErrInvalidInput = errors.New("invalid input")
)

// Prober performs one outbound check against a destination URL.
type Prober interface {
	Check(ctx context.Context, url string) models.CheckResult
}

// StatusReport is the read-side view of one monitored link.
type StatusReport struct {
	LinkID                   string               `json:"link_id"`
	CurrentStatus            models.CurrentStatus `json:"current_status"`
	Statistics               models.Statistics    `json:"statistics"`
	RecentChecks             []models.CheckResult `json:"recent_checks"`
	Uptime7d                 float64              `json:"uptime_7d"`
	Uptime30d                float64              `json:"uptime_30d"`
	UnacknowledgedAlertCount int                  `json:"unacknowledged_alert_count"`
}

// recentChecksLimit is how many history entries a status report includes.
const recentChecksLimit = 10

// Service owns all reads and writes of health records. Ingestion for a given
// link is serialized by a keyed lock, so a scheduled check racing a manual
// trigger cannot apply results out of order.
type Service struct {
	store    storage.Storer
	prober   Prober
	resolver LinkResolver
	notifier Notifier
	logger   *zap.Logger
	locks    *keyedMutex
	now      func() time.Time
}

// NewService creates the monitoring service. A nil notifier falls back to
// logging alerts.
func NewService(store storage.Storer, prober Prober, resolver LinkResolver, notifier Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &Service{
		store:    store,
		prober:   prober,
		resolver: resolver,
		notifier: notifier,
		logger:   logger,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// validateDestination requires an absolute http or https URL.
func validateDestination(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: failed to parse url: %v", ErrInvalidInput, err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: url must be an absolute http or https url", ErrInvalidInput)
	}
	return nil
}

// EnableMonitoring creates a health record for the link, or updates the
// settings and destination of an existing one. It is idempotent. Returns
// the record and whether it was newly created.
func (s *Service) EnableMonitoring(ctx context.Context, linkID, destinationURL string, settings *models.Settings) (*models.HealthRecord, bool, error) {
	if linkID == "" {
		return nil, false, fmt.Errorf("%w: link id is required", ErrInvalidInput)
	}
	if err := validateDestination(destinationURL); err != nil {
		return nil, false, err
	}

	s.locks.Lock(linkID)
	defer s.locks.Unlock(linkID)

	applied := models.DefaultSettings()
	if settings != nil {
		applied = *settings
		applied.Enabled = true
		applied.Normalize()
	}

	record, err := s.store.GetRecord(ctx, linkID)
	if errors.Is(err, storage.ErrNotFound) {
		record = models.NewHealthRecord(linkID, destinationURL, applied, s.now().UTC())
		if err := s.store.CreateRecord(ctx, record); err != nil {
			return nil, false, fmt.Errorf("failed to create health record: %w", err)
		}
		return record, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load health record: %w", err)
	}

	record.DestinationURL = destinationURL
	record.Settings = applied
	record.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateRecord(ctx, record); err != nil {
		return nil, false, fmt.Errorf("failed to update health record: %w", err)
	}
	return record, false, nil
}

// DisableMonitoring turns checking off for the link. The record and its
// history are retained.
func (s *Service) DisableMonitoring(ctx context.Context, linkID string) error {
	s.locks.Lock(linkID)
	defer s.locks.Unlock(linkID)

	record, err := s.store.GetRecord(ctx, linkID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotMonitored
	}
	if err != nil {
		return fmt.Errorf("failed to load health record: %w", err)
	}
	record.Settings.Enabled = false
	record.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to update health record: %w", err)
	}
	return nil
}

// TriggerCheck probes the link immediately, bypassing the schedule, and
// ingests the result. If the link was never enabled for monitoring, the
// record is created first using the link registry's destination URL.
func (s *Service) TriggerCheck(ctx context.Context, linkID string) (models.CheckResult, error) {
	if linkID == "" {
		return models.CheckResult{}, fmt.Errorf("%w: link id is required", ErrInvalidInput)
	}

	record, err := s.store.GetRecord(ctx, linkID)
	if errors.Is(err, storage.ErrNotFound) {
		destination, rerr := s.resolver.Resolve(ctx, linkID)
		if rerr != nil {
			return models.CheckResult{}, fmt.Errorf("%w: %v", ErrNotMonitored, rerr)
		}
		record = models.NewHealthRecord(linkID, destination, models.DefaultSettings(), s.now().UTC())
		if cerr := s.store.CreateRecord(ctx, record); cerr != nil && !errors.Is(cerr, storage.ErrDuplicateKey) {
			return models.CheckResult{}, fmt.Errorf("failed to create health record: %w", cerr)
		}
	} else if err != nil {
		return models.CheckResult{}, fmt.Errorf("failed to load health record: %w", err)
	}

	result := s.prober.Check(ctx, record.DestinationURL)
	if err := s.Ingest(ctx, linkID, result); err != nil {
		return result, err
	}
	return result, nil
}

// ProcessRecord probes one record and ingests the result. It is the unit of
// work the scheduler dispatches per due record.
func (s *Service) ProcessRecord(ctx context.Context, record models.HealthRecord) error {
	result := s.prober.Check(ctx, record.DestinationURL)
	return s.Ingest(ctx, record.LinkID, result)
}

// Ingest applies a check result to the link's record and persists it in a
// single read-modify-write, serialized per link. Appended alerts are handed
// to the notification sink after the record is durable.
func (s *Service) Ingest(ctx context.Context, linkID string, result models.CheckResult) error {
	s.locks.Lock(linkID)
	defer s.locks.Unlock(linkID)

	record, err := s.store.GetRecord(ctx, linkID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotMonitored
		}
		return fmt.Errorf("failed to load health record: %w", err)
	}

	appended := ApplyCheck(record, result, s.now().UTC())
	if err := s.store.UpdateRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to persist check result: %w", err)
	}

	for _, alert := range appended {
		if err := s.notifier.Notify(ctx, alert, record); err != nil {
			s.logger.Warn("alert delivery failed",
				zap.String("link_id", linkID),
				zap.String("alert_id", alert.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// GetStatus assembles the read-side report for one link.
func (s *Service) GetStatus(ctx context.Context, linkID string) (*StatusReport, error) {
	record, err := s.store.GetRecord(ctx, linkID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotMonitored
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load health record: %w", err)
	}
	now := s.now().UTC()
	return &StatusReport{
		LinkID:                   record.LinkID,
		CurrentStatus:            record.CurrentStatus,
		Statistics:               record.Statistics,
		RecentChecks:             RecentChecks(record, recentChecksLimit),
		Uptime7d:                 UptimePercentage(record, 7, now),
		Uptime30d:                UptimePercentage(record, 30, now),
		UnacknowledgedAlertCount: record.UnacknowledgedAlertCount(),
	}, nil
}

// ListMonitored returns the health records for an externally supplied set of
// link ids, optionally filtered by current health state.
func (s *Service) ListMonitored(ctx context.Context, linkIDs []string, filter storage.HealthFilter) ([]models.HealthRecord, error) {
	switch filter {
	case storage.FilterAll, storage.FilterHealthy, storage.FilterUnhealthy:
	case "":
		filter = storage.FilterAll
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidInput, filter)
	}
	records, err := s.store.ListRecords(ctx, storage.ListParams{LinkIDs: linkIDs, Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("failed to list health records: %w", err)
	}
	return records, nil
}

// AcknowledgeAlert marks one alert as acknowledged.
func (s *Service) AcknowledgeAlert(ctx context.Context, linkID, alertID string) error {
	s.locks.Lock(linkID)
	defer s.locks.Unlock(linkID)

	record, err := s.store.GetRecord(ctx, linkID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotMonitored
	}
	if err != nil {
		return fmt.Errorf("failed to load health record: %w", err)
	}

	found := false
	now := s.now().UTC()
	for i := range record.Alerts {
		if record.Alerts[i].ID == alertID {
			record.Alerts[i].Acknowledged = true
			record.Alerts[i].AcknowledgedAt = &now
			found = true
			break
		}
	}
	if !found {
		return ErrAlertNotFound
	}
	record.UpdatedAt = now
	if err := s.store.UpdateRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to update health record: %w", err)
	}
	return nil
}
