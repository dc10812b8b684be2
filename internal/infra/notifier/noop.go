package notifier

import (
	"context"
)

// NoOpNotifier is a no-operation implementation of the report.Notifier
// interface. It is used when session notifications are disabled so callers
// never need nil checks. This follows the Null Object pattern.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier instance.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// NotifyFailure does nothing and returns nil immediately.
func (n *NoOpNotifier) NotifyFailure(ctx context.Context, meta map[string]any, kind, message, errorID string) error {
	// No-op: intentionally does nothing
	return nil
}
