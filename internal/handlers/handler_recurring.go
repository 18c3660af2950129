package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/dto"
	"github.com/billingo/billingo-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// recurringInvoiceHandler handles HTTP requests related to recurring
// invoice templates.
type recurringInvoiceHandler struct {
	recurringService portssvc.RecurringSvcFacade
}

func newRecurringInvoiceHandler(rs portssvc.RecurringSvcFacade) *recurringInvoiceHandler {
	return &recurringInvoiceHandler{recurringService: rs}
}

// registerRecurringInvoiceRoutes registers routes related to recurring
// invoice templates.
func registerRecurringInvoiceRoutes(rg *gin.RouterGroup, recurringService portssvc.RecurringSvcFacade) {
	h := newRecurringInvoiceHandler(recurringService)

	recurring := rg.Group("/recurring-invoices")
	{
		recurring.POST("", h.createRecurringInvoice)
		recurring.GET("", h.listRecurringInvoices)
		recurring.GET("/:id", h.getRecurringInvoice)
		recurring.PUT("/:id", h.updateRecurringInvoice)

		recurring.POST("/:id/pause", h.pauseRecurringInvoice)
		recurring.POST("/:id/resume", h.resumeRecurringInvoice)
		recurring.POST("/:id/cancel", h.cancelRecurringInvoice)
	}
}

func (h *recurringInvoiceHandler) createRecurringInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateRecurringInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateRecurringInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	template, err := h.recurringService.CreateRecurringInvoice(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "Failed to create recurring invoice")
		return
	}

	logger.Info("Recurring invoice created", slog.String("recurring_invoice_id", template.RecurringInvoiceID))
	c.JSON(http.StatusCreated, dto.ToRecurringInvoiceResponse(template))
}

func (h *recurringInvoiceHandler) listRecurringInvoices(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListRecurringInvoices", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	templates, nextToken, err := h.recurringService.ListRecurringInvoices(c.Request.Context(), userID, params.Limit, params.NextToken)
	if err != nil {
		respondError(c, err, "Failed to list recurring invoices")
		return
	}

	c.JSON(http.StatusOK, dto.ToListRecurringInvoicesResponse(templates, nextToken))
}

func (h *recurringInvoiceHandler) getRecurringInvoice(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	template, err := h.recurringService.GetRecurringInvoiceByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve recurring invoice")
		return
	}

	c.JSON(http.StatusOK, dto.ToRecurringInvoiceResponse(template))
}

func (h *recurringInvoiceHandler) updateRecurringInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UpdateRecurringInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateRecurringInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	template, err := h.recurringService.UpdateRecurringInvoice(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to update recurring invoice")
		return
	}

	logger.Info("Recurring invoice updated", slog.String("recurring_invoice_id", template.RecurringInvoiceID))
	c.JSON(http.StatusOK, dto.ToRecurringInvoiceResponse(template))
}

func (h *recurringInvoiceHandler) pauseRecurringInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	template, err := h.recurringService.PauseRecurringInvoice(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to pause recurring invoice")
		return
	}

	logger.Info("Recurring invoice paused", slog.String("recurring_invoice_id", template.RecurringInvoiceID))
	c.JSON(http.StatusOK, dto.ToRecurringInvoiceResponse(template))
}

func (h *recurringInvoiceHandler) resumeRecurringInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	template, err := h.recurringService.ResumeRecurringInvoice(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to resume recurring invoice")
		return
	}

	logger.Info("Recurring invoice resumed", slog.String("recurring_invoice_id", template.RecurringInvoiceID))
	c.JSON(http.StatusOK, dto.ToRecurringInvoiceResponse(template))
}

func (h *recurringInvoiceHandler) cancelRecurringInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	template, err := h.recurringService.CancelRecurringInvoice(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to cancel recurring invoice")
		return
	}

	logger.Info("Recurring invoice cancelled", slog.String("recurring_invoice_id", template.RecurringInvoiceID))
	c.JSON(http.StatusOK, dto.ToRecurringInvoiceResponse(template))
}
