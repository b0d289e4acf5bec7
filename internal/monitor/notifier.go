package monitor

import (
	"context"

	"go.uber.org/zap"

	"linkhealth/internal/models"
)

// Notifier is the external delivery sink for alerts. Recipient resolution
// and transport (email, SMS) are the sink's concern, not this core's.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert, record *models.HealthRecord) error
}

// LinkResolver looks up the destination URL for a link in the external link
// registry. Used when an on-demand check targets a link that was never
// enabled for monitoring.
type LinkResolver interface {
	Resolve(ctx context.Context, linkID string) (string, error)
}

// ResolverFunc adapts a function to the LinkResolver interface.
type ResolverFunc func(ctx context.Context, linkID string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, linkID string) (string, error) {
	return f(ctx, linkID)
}

// LogNotifier writes alerts to the logger. It is the default sink when no
// delivery integration is wired.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, alert models.Alert, record *models.HealthRecord) error {
	n.logger.Info("alert raised",
		zap.String("link_id", record.LinkID),
		zap.String("alert_id", alert.ID),
		zap.String("type", alert.Type),
		zap.String("message", alert.Message),
	)
	return nil
}
