package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/dto"
	"github.com/billingo/billingo-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// automationHandler exposes the idempotent sweeps over HTTP, scoped to the
// authenticated user. Cross-tenant runs stay on the CLI.
type automationHandler struct {
	automationService portssvc.AutomationSvcFacade
	recurringService  portssvc.RecurringSvcFacade
}

func newAutomationHandler(as portssvc.AutomationSvcFacade, rs portssvc.RecurringSvcFacade) *automationHandler {
	return &automationHandler{
		automationService: as,
		recurringService:  rs,
	}
}

// registerAutomationRoutes registers the manual sweep trigger routes.
func registerAutomationRoutes(rg *gin.RouterGroup, automationService portssvc.AutomationSvcFacade, recurringService portssvc.RecurringSvcFacade) {
	h := newAutomationHandler(automationService, recurringService)

	sweeps := rg.Group("/automation/sweeps")
	{
		sweeps.POST("/overdue", h.runOverdueSweep)
		sweeps.POST("/reminders", h.runReminderSweep)
		sweeps.POST("/recurring", h.runRecurringSweep)
	}
}

func (h *automationHandler) runOverdueSweep(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.automationService.RunOverdueSweep(c.Request.Context(), params.Limit, &userID)
	if err != nil {
		respondError(c, err, "Failed to run overdue sweep")
		return
	}

	logger.Info("Overdue sweep completed",
		slog.Int("processed", result.Processed),
		slog.Int("skipped", result.Skipped),
		slog.Int("errored", result.Errored),
	)
	c.JSON(http.StatusOK, result)
}

func (h *automationHandler) runReminderSweep(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.automationService.RunReminderSweep(c.Request.Context(), params.Limit, &userID)
	if err != nil {
		respondError(c, err, "Failed to run reminder sweep")
		return
	}

	logger.Info("Reminder sweep completed",
		slog.Int("processed", result.Processed),
		slog.Int("skipped", result.Skipped),
		slog.Int("errored", result.Errored),
	)
	c.JSON(http.StatusOK, result)
}

func (h *automationHandler) runRecurringSweep(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.recurringService.GenerateDueInvoices(c.Request.Context(), params.Limit, &userID)
	if err != nil {
		respondError(c, err, "Failed to run recurring generation")
		return
	}

	logger.Info("Recurring generation completed",
		slog.Int("processed", result.Processed),
		slog.Int("skipped", result.Skipped),
		slog.Int("errored", result.Errored),
	)
	c.JSON(http.StatusOK, result)
}
