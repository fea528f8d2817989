package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rates-gateway/pkg/model"
)

// RateSource defines the aggregation operations needed by the handler.
type RateSource interface {
	FetchAllRates(ctx context.Context) []model.Rate
	UnsupportedAssets() []string
}

// RatesHandler handles HTTP API requests for rate queries.
type RatesHandler struct {
	logger *zap.Logger
	rates  RateSource
}

// NewRatesHandler creates a new RatesHandler.
func NewRatesHandler(logger *zap.Logger, rates RateSource) *RatesHandler {
	return &RatesHandler{
		logger: logger,
		rates:  rates,
	}
}

// GetRatesHandler runs one aggregation pass and returns the result.
func (h *RatesHandler) GetRatesHandler(c *fiber.Ctx) error {
	rates := h.rates.FetchAllRates(c.Context())
	if len(rates) == 0 {
		h.logger.Warn("api.rates_unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "rates unavailable",
		})
	}

	return c.JSON(fiber.Map{
		"rates":     rates,
		"count":     len(rates),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetUnsupportedHandler lists assets no provider currently offers.
func (h *RatesHandler) GetUnsupportedHandler(c *fiber.Ctx) error {
	assets := h.rates.UnsupportedAssets()
	return c.JSON(fiber.Map{
		"assets": assets,
		"count":  len(assets),
	})
}
