package validate

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/rates-gateway/pkg/model"
)

// Response checks an outbound envelope before it reaches a subscriber.
// universeSize is the number of assets a complete pass must cover. Any
// violation rejects the whole envelope; the reason is logged, never raised.
func Response(logger *zap.Logger, env model.Envelope, universeSize int) bool {
	if env.Channel != model.ChannelRates {
		logger.Error("validate.bad_channel", zap.String("channel", env.Channel))
		return false
	}

	switch env.Event {
	case model.EventData, model.EventUpdate:
	case model.EventError:
		if env.Message == "" {
			logger.Error("validate.error_without_message")
			return false
		}
		// Error envelopes carry no data worth inspecting
		return true
	default:
		logger.Error("validate.bad_event", zap.String("event", env.Event))
		return false
	}

	// A partial pass is rejected here rather than silently shipped;
	// an empty pass is allowed through as an explicit "nothing yet".
	if len(env.Data) != 0 && len(env.Data) != universeSize {
		logger.Error("validate.incomplete_data",
			zap.Int("rates", len(env.Data)),
			zap.Int("universe", universeSize))
		return false
	}

	for _, r := range env.Data {
		if !rate(logger, r) {
			return false
		}
	}
	return true
}

// rate checks one quote record.
func rate(logger *zap.Logger, r model.Rate) bool {
	if !strings.HasSuffix(r.Symbol, model.SettlementSuffix) {
		logger.Error("validate.bad_symbol", zap.String("symbol", r.Symbol))
		return false
	}
	if r.Ask < 0 || r.Bid < 0 || r.Spot < 0 {
		logger.Error("validate.negative_price", zap.String("symbol", r.Symbol))
		return false
	}
	if r.Ask < r.Bid {
		logger.Error("validate.ask_below_bid",
			zap.String("symbol", r.Symbol),
			zap.Float64("ask", r.Ask),
			zap.Float64("bid", r.Bid))
		return false
	}
	return true
}
