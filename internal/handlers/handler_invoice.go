package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/dto"
	"github.com/billingo/billingo-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// invoiceHandler handles HTTP requests related to invoices and their
// nested payments.
type invoiceHandler struct {
	invoiceService portssvc.InvoiceSvcFacade
	paymentService portssvc.PaymentSvcFacade
}

func newInvoiceHandler(is portssvc.InvoiceSvcFacade, ps portssvc.PaymentSvcFacade) *invoiceHandler {
	return &invoiceHandler{
		invoiceService: is,
		paymentService: ps,
	}
}

// registerInvoiceRoutes registers routes related to invoice lifecycle,
// payments and the audit timeline. The list route runs the bounded
// micro-sweep first so active users see fresh statuses.
func registerInvoiceRoutes(rg *gin.RouterGroup, invoiceService portssvc.InvoiceSvcFacade, paymentService portssvc.PaymentSvcFacade, automationService portssvc.AutomationSvcFacade) {
	h := newInvoiceHandler(invoiceService, paymentService)

	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.createInvoice)
		invoices.GET("", middleware.AutoSweep(automationService), h.listInvoices)
		invoices.GET("/:id", h.getInvoice)
		invoices.PUT("/:id", h.updateInvoice)
		invoices.DELETE("/:id", h.deleteInvoice)

		invoices.POST("/:id/send", h.sendInvoice)
		invoices.POST("/:id/cancel", h.cancelInvoice)
		invoices.POST("/:id/mark-paid", h.markInvoicePaid)

		invoices.GET("/:id/activities", h.listActivities)
		invoices.POST("/:id/payments", h.recordPayment)
		invoices.GET("/:id/payments", h.listPayments)
	}
}

func (h *invoiceHandler) createInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoice, items, err := h.invoiceService.CreateInvoice(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "Failed to create invoice")
		return
	}

	logger.Info("Invoice created",
		slog.String("invoice_id", invoice.InvoiceID),
		slog.String("invoice_number", invoice.InvoiceNumber),
	)
	c.JSON(http.StatusCreated, dto.ToInvoiceResponse(invoice, items))
}

func (h *invoiceHandler) listInvoices(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListInvoices", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoices, nextToken, err := h.invoiceService.ListInvoices(c.Request.Context(), userID, params.Limit, params.NextToken)
	if err != nil {
		respondError(c, err, "Failed to list invoices")
		return
	}

	c.JSON(http.StatusOK, dto.ToListInvoicesResponse(invoices, nextToken))
}

func (h *invoiceHandler) getInvoice(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoice, items, err := h.invoiceService.GetInvoiceByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve invoice")
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice, items))
}

func (h *invoiceHandler) updateInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoice, items, err := h.invoiceService.UpdateInvoice(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to update invoice")
		return
	}

	logger.Info("Invoice updated", slog.String("invoice_id", invoice.InvoiceID))
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice, items))
}

func (h *invoiceHandler) deleteInvoice(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete invoice")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *invoiceHandler) sendInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoice, err := h.invoiceService.SendInvoice(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to send invoice")
		return
	}

	logger.Info("Invoice sent", slog.String("invoice_id", invoice.InvoiceID))
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice, nil))
}

func (h *invoiceHandler) cancelInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CancelInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CancelInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), userID, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err, "Failed to cancel invoice")
		return
	}

	logger.Info("Invoice cancelled", slog.String("invoice_id", invoice.InvoiceID))
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice, nil))
}

func (h *invoiceHandler) markInvoicePaid(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoice, err := h.invoiceService.MarkInvoicePaid(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to mark invoice paid")
		return
	}

	logger.Info("Invoice marked paid", slog.String("invoice_id", invoice.InvoiceID))
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice, nil))
}

func (h *invoiceHandler) listActivities(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListActivities", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	activities, err := h.invoiceService.ListActivities(c.Request.Context(), userID, c.Param("id"), params.Limit)
	if err != nil {
		respondError(c, err, "Failed to list invoice activities")
		return
	}

	c.JSON(http.StatusOK, gin.H{"activities": dto.ToActivityResponses(activities)})
}

func (h *invoiceHandler) recordPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecordPayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	payment, invoicePaid, err := h.paymentService.RecordPayment(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to record payment")
		return
	}

	logger.Info("Payment recorded",
		slog.String("payment_id", payment.PaymentID),
		slog.String("invoice_id", payment.InvoiceID),
		slog.Bool("invoice_paid", invoicePaid),
	)
	c.JSON(http.StatusCreated, dto.ToPaymentResponse(payment, invoicePaid))
}

func (h *invoiceHandler) listPayments(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	payments, err := h.paymentService.ListPayments(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to list payments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": dto.ToPaymentResponses(payments)})
}
