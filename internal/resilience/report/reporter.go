// Package report turns dependency failures into immutable audit records and
// forwards them to the audit and notification collaborators.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionKey is the metadata key carrying the client session identifier
// used for notification routing. Absence of a session is not an error; the
// notification is simply skipped.
const SessionKey = "session_id"

// Record is the immutable description of one dependency failure. The audit
// sink is the system of record; the core keeps no copy.
type Record struct {
	ErrorID    string         `json:"error_id"`
	Service    string         `json:"service"`
	Operation  string         `json:"operation"`
	Kind       string         `json:"kind"`
	Message    string         `json:"message"`
	Context    map[string]any `json:"context,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// AuditSink persists failure records. Implementations may queue writes.
// Sink failures are logged and swallowed by the Reporter, never surfaced,
// so they cannot compound the original failure.
type AuditSink interface {
	Record(ctx context.Context, rec Record) error
}

// Notifier pushes a degraded/failure message toward the client session
// identified in the call metadata.
type Notifier interface {
	NotifyFailure(ctx context.Context, meta map[string]any, kind, message, errorID string) error
}

// Reporter formats failures and dispatches them to the collaborators.
// Dispatch is fire-and-forget: Report returns as soon as the record is
// built, and a slow or unavailable sink never stalls the critical path.
type Reporter struct {
	audit           AuditSink
	notifier        Notifier
	logger          *slog.Logger
	dispatchTimeout time.Duration

	wg sync.WaitGroup
}

// New creates a reporter over the given collaborators. Either collaborator
// may be nil, disabling that dispatch path.
func New(audit AuditSink, notifier Notifier, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		audit:           audit,
		notifier:        notifier,
		logger:          logger,
		dispatchTimeout: 5 * time.Second,
	}
}

// Report builds the failure record for one dependency error, logs it, and
// dispatches it asynchronously to the audit and notification collaborators.
func (r *Reporter) Report(ctx context.Context, service, operation string, opErr error, meta map[string]any) Record {
	now := time.Now().UTC()
	rec := Record{
		ErrorID:    newErrorID(service, operation, now),
		Service:    service,
		Operation:  operation,
		Kind:       Classify(opErr),
		Message:    opErr.Error(),
		Context:    meta,
		OccurredAt: now,
	}

	r.logger.Error("dependency operation failed",
		slog.String("error_id", rec.ErrorID),
		slog.String("service", service),
		slog.String("operation", operation),
		slog.String("kind", rec.Kind),
		slog.Any("error", opErr))

	r.dispatch(rec, meta)
	return rec
}

// Flush waits for all in-flight dispatches to finish. Used at shutdown and
// in tests; callers never need it for correctness.
func (r *Reporter) Flush() {
	r.wg.Wait()
}

// dispatch forwards the record on a detached goroutine. The goroutine uses
// its own bounded context so a canceled request cannot abandon the audit
// write, and recovers panics from misbehaving collaborators.
func (r *Reporter) dispatch(rec Record, meta map[string]any) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.logger.Warn("collaborator panicked during dispatch",
					slog.String("error_id", rec.ErrorID),
					slog.Any("panic", p))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.dispatchTimeout)
		defer cancel()

		if r.audit != nil {
			if err := r.audit.Record(ctx, rec); err != nil {
				r.logger.Warn("audit sink rejected error record",
					slog.String("error_id", rec.ErrorID),
					slog.Any("error", err))
			}
		}

		if r.notifier != nil && meta[SessionKey] != nil {
			message := fmt.Sprintf("%s is temporarily unavailable", rec.Service)
			if err := r.notifier.NotifyFailure(ctx, meta, rec.Kind, message, rec.ErrorID); err != nil {
				r.logger.Warn("failure notification not delivered",
					slog.String("error_id", rec.ErrorID),
					slog.Any("error", err))
			}
		}
	}()
}

// newErrorID derives a unique identifier from the failure's coordinates.
// The UUID suffix disambiguates failures landing on the same nanosecond.
func newErrorID(service, operation string, ts time.Time) string {
	return fmt.Sprintf("%s-%s-%d-%s", service, operation, ts.UnixNano(), uuid.NewString()[:8])
}

// Classify derives an error kind from the error's own category rather than
// a closed enum, so new failure kinds from business logic pass through
// transparently.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	kind := fmt.Sprintf("%T", err)
	kind = strings.TrimPrefix(kind, "*")
	if i := strings.LastIndex(kind, "."); i >= 0 {
		kind = kind[i+1:]
	}
	// errors.New and fmt.Errorf both produce unexported stdlib types whose
	// names mean nothing to operators.
	if kind == "errorString" || kind == "wrapError" {
		return "error"
	}
	return kind
}
