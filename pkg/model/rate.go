package model

import "strings"

// SettlementSuffix is the symbol suffix for the settlement currency.
// Every published quote is denominated in CAD.
const SettlementSuffix = "_CAD"

// Rate is one published quote for an asset against the settlement currency.
// Immutable once constructed; cached as JSON and shipped to subscribers as-is.
type Rate struct {
	Symbol string  `json:"symbol"` // canonical "<ASSET>_CAD" form
	Ask    float64 `json:"ask"`
	Bid    float64 `json:"bid"`
	Spot   float64 `json:"spot"`
	Change float64 `json:"change"` // 24h percentage change
}

// Asset returns the asset portion of the rate symbol ("BTC_CAD" -> "BTC").
func (r Rate) Asset() string {
	return strings.SplitN(r.Symbol, "_", 2)[0]
}

// SymbolFor builds the canonical settlement symbol for an asset.
func SymbolFor(asset string) string {
	return asset + SettlementSuffix
}

// ZeroRate builds the placeholder quote reported for an asset no venue supplies.
func ZeroRate(asset string) Rate {
	return Rate{Symbol: SymbolFor(asset)}
}
