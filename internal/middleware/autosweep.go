package middleware

import (
	"log/slog"

	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/gin-gonic/gin"
)

// AutoSweep runs the bounded micro-sweep for the authenticated user before
// the request proceeds. It trades completeness for latency: limits are
// small, and every failure is logged per item inside the service, never
// surfaced to the request.
//
// Attach this to routes users land on to view their invoices, so overdue
// marking, reminders and recurring generation stay fresh for active
// accounts between scheduled runs.
func AutoSweep(automation portssvc.AutomationSvcFacade) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserIDFromContext(c)
		if ok {
			result := automation.RunMicroSweep(c.Request.Context(), userID)
			if result.Overdue.Processed+result.Reminders.Processed+result.Recurring.Processed > 0 {
				GetLoggerFromCtx(c.Request.Context()).Info("Micro-sweep applied changes",
					slog.Int("overdue", result.Overdue.Processed),
					slog.Int("reminders", result.Reminders.Processed),
					slog.Int("generated", result.Recurring.Processed),
				)
			}
		}
		c.Next()
	}
}
