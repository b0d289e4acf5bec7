package storage

import (
	"context"
	"errors"
	"time"

	"linkhealth/internal/models"
)

var (
	// ErrNotFound is returned when a requested health record is not found
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned when attempting to create a record for a
	// link that already has one
	ErrDuplicateKey = errors.New("duplicate")
)

// HealthFilter selects records by current health state when listing.
type HealthFilter string

const (
	FilterAll       HealthFilter = "all"
	FilterHealthy   HealthFilter = "healthy"
	FilterUnhealthy HealthFilter = "unhealthy"
)

// ListParams contains parameters for listing health records scoped by an
// externally supplied set of link IDs.
type ListParams struct {
	LinkIDs []string
	Filter  HealthFilter
}

// Storer defines the interface for storage operations on health records.
// Implementations must guarantee one record per link ID and atomic
// replacement of a record on Update.
type Storer interface {
	CreateRecord(ctx context.Context, record *models.HealthRecord) error
	GetRecord(ctx context.Context, linkID string) (*models.HealthRecord, error)
	UpdateRecord(ctx context.Context, record *models.HealthRecord) error
	ListRecords(ctx context.Context, params ListParams) ([]models.HealthRecord, error)

	// ListDue returns every enabled record whose per-record check interval
	// has elapsed at the given time (or that has never been checked).
	ListDue(ctx context.Context, now time.Time) ([]models.HealthRecord, error)
}
