package services

import (
	"context"
	"log/slog"

	"github.com/billingo/billingo-backend/internal/core/domain"
	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
)

// logNotifier is the default NotificationDispatcher: it records each event
// as a structured log line. Real delivery channels (email, webhooks) plug
// in behind the same interface without touching the services that raise
// events.
type logNotifier struct {
	BaseService
}

// NewLogNotifier creates a dispatcher that logs events.
func NewLogNotifier() portssvc.NotificationDispatcher {
	return &logNotifier{}
}

var _ portssvc.NotificationDispatcher = (*logNotifier)(nil)

func (n *logNotifier) Dispatch(ctx context.Context, event domain.Event) {
	attrs := []any{
		slog.String("event_type", string(event.Type)),
		slog.Time("occurred_at", event.OccurredAt),
		slog.String("user_id", event.UserID),
	}
	if event.InvoiceID != "" {
		attrs = append(attrs, slog.String("invoice_id", event.InvoiceID))
	}
	if event.PaymentID != "" {
		attrs = append(attrs, slog.String("payment_id", event.PaymentID))
	}
	if event.RecurringInvoiceID != "" {
		attrs = append(attrs, slog.String("recurring_invoice_id", event.RecurringInvoiceID))
	}
	n.GetLogger(ctx).Info("Domain event", attrs...)
}
