package handlers

import (
	"log/slog"
	"net/http"
	"time"

	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/dto"
	"github.com/billingo/billingo-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// exchangeRateHandler handles HTTP requests related to exchange rates and
// currency conversion.
type exchangeRateHandler struct {
	currencyService portssvc.CurrencySvcFacade
}

func newExchangeRateHandler(cs portssvc.CurrencySvcFacade) *exchangeRateHandler {
	return &exchangeRateHandler{currencyService: cs}
}

// registerExchangeRateRoutes registers routes related to exchange rates.
func registerExchangeRateRoutes(rg *gin.RouterGroup, currencyService portssvc.CurrencySvcFacade) {
	h := newExchangeRateHandler(currencyService)

	exchangeRates := rg.Group("/exchange-rates")
	{
		exchangeRates.POST("", h.createExchangeRate)
		exchangeRates.GET("/:from/:to", h.getExchangeRate)
		exchangeRates.POST("/convert", h.convert)
	}
}

func (h *exchangeRateHandler) createExchangeRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateExchangeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateExchangeRate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	createdRate, err := h.currencyService.CreateExchangeRate(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondError(c, err, "Failed to create exchange rate")
		return
	}

	logger.Info("Exchange rate created",
		slog.String("rate_id", createdRate.ExchangeRateID),
		slog.String("from", createdRate.FromCurrencyCode),
		slog.String("to", createdRate.ToCurrencyCode),
	)
	c.JSON(http.StatusCreated, dto.ToExchangeRateResponse(createdRate))
}

func (h *exchangeRateHandler) getExchangeRate(c *gin.Context) {
	fromCode := c.Param("from")
	toCode := c.Param("to")

	asOf := time.Time{}
	if raw := c.Query("asOf"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asOf date, expected YYYY-MM-DD"})
			return
		}
		asOf = parsed
	}

	rate, err := h.currencyService.GetExchangeRate(c.Request.Context(), fromCode, toCode, asOf)
	if err != nil {
		respondError(c, err, "Failed to retrieve exchange rate")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fromCurrencyCode": fromCode,
		"toCurrencyCode":   toCode,
		"rate":             rate,
	})
}

func (h *exchangeRateHandler) convert(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Convert", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	asOf := time.Time{}
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	rate, err := h.currencyService.GetExchangeRate(c.Request.Context(), req.FromCurrencyCode, req.ToCurrencyCode, asOf)
	if err != nil {
		respondError(c, err, "Failed to resolve exchange rate")
		return
	}

	converted, err := h.currencyService.Convert(c.Request.Context(), req.Amount, req.FromCurrencyCode, req.ToCurrencyCode, asOf)
	if err != nil {
		respondError(c, err, "Failed to convert amount")
		return
	}

	c.JSON(http.StatusOK, dto.ConvertResponse{
		Amount:           req.Amount,
		FromCurrencyCode: req.FromCurrencyCode,
		ToCurrencyCode:   req.ToCurrencyCode,
		Converted:        converted,
		Rate:             rate,
	})
}
