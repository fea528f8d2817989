package venues

import "errors"

// Venue tags used for logging, metrics, and rate limiter keys.
const (
	VenueNewton  = "newton"
	VenueBinance = "binance"
	VenueKraken  = "kraken"
)

// ErrNotOffered signals that a venue structurally does not carry an asset,
// as opposed to a transient fetch failure. Callers must not retry it.
var ErrNotOffered = errors.New("asset not offered by venue")

// ErrEmptyQuote signals a successful-looking response whose price fields are
// all zero. Binance returns these for symbols it lists but has no data for.
var ErrEmptyQuote = errors.New("empty quote from venue")

// binanceTicker is the shape of Binance's /api/v3/ticker/24hr response.
// All prices come back as decimal strings.
type binanceTicker struct {
	Symbol             string `json:"symbol"`
	AskPrice           string `json:"askPrice"`
	BidPrice           string `json:"bidPrice"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// krakenTicker is one pair entry in Kraken's /0/public/Ticker response.
// a/b/c are [price, whole lot volume, lot volume] arrays, o is the day open.
type krakenTicker struct {
	Ask  []string `json:"a"`
	Bid  []string `json:"b"`
	Last []string `json:"c"`
	Open string   `json:"o"`
}

// krakenTickerResponse is the full Kraken ticker envelope. A pair absent from
// Result means the venue does not offer it.
type krakenTickerResponse struct {
	Error  []string                `json:"error"`
	Result map[string]krakenTicker `json:"result"`
}
