package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rates-gateway/pkg/model"
)

func validRate(asset string) model.Rate {
	return model.Rate{Symbol: model.SymbolFor(asset), Ask: 10, Bid: 9, Spot: 9.5, Change: -0.1}
}

func TestResponse(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name     string
		env      model.Envelope
		universe int
		want     bool
	}{
		{
			name:     "complete update",
			env:      model.UpdateEnvelope([]model.Rate{validRate("BTC"), validRate("ETH")}),
			universe: 2,
			want:     true,
		},
		{
			name:     "empty data allowed",
			env:      model.DataEnvelope(nil),
			universe: 2,
			want:     true,
		},
		{
			name:     "partial pass rejected",
			env:      model.DataEnvelope([]model.Rate{validRate("BTC")}),
			universe: 2,
			want:     false,
		},
		{
			name:     "wrong channel",
			env:      model.Envelope{Channel: "orders", Event: model.EventData},
			universe: 2,
			want:     false,
		},
		{
			name:     "unknown event",
			env:      model.Envelope{Channel: model.ChannelRates, Event: "snapshot"},
			universe: 2,
			want:     false,
		},
		{
			name:     "error with message",
			env:      model.ErrorEnvelope("upstream unavailable"),
			universe: 2,
			want:     true,
		},
		{
			name:     "error without message",
			env:      model.Envelope{Channel: model.ChannelRates, Event: model.EventError},
			universe: 2,
			want:     false,
		},
		{
			name: "placeholder rates pass",
			env: model.UpdateEnvelope([]model.Rate{
				validRate("BTC"), model.ZeroRate("QCAD"),
			}),
			universe: 2,
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Response(logger, tt.env, tt.universe))
		})
	}
}

func TestResponse_RateChecks(t *testing.T) {
	logger := zap.NewNop()

	badSuffix := validRate("BTC")
	badSuffix.Symbol = "BTC_USD"

	negative := validRate("BTC")
	negative.Spot = -1

	inverted := validRate("BTC")
	inverted.Ask = 8 // below bid 9

	for name, r := range map[string]model.Rate{
		"wrong settlement suffix": badSuffix,
		"negative price":          negative,
		"ask below bid":           inverted,
	} {
		t.Run(name, func(t *testing.T) {
			env := model.UpdateEnvelope([]model.Rate{r})
			assert.False(t, Response(logger, env, 1))
		})
	}
}
