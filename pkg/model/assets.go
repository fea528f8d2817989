package model

// SupportedAssets is the fixed universe the gateway reports on every complete
// pass. Newton stopped carrying some of these, so the cascade fills the gaps
// from Binance and Kraken. QCAD is not offered by any venue today.
var SupportedAssets = []string{
	"BTC", "ETH", "LTC", "XRP", "BCH", "USDC", "XMR", "XLM",
	"USDT", "QCAD", "DOGE", "LINK", "MATIC", "UNI", "COMP", "AAVE", "DAI",
	"SUSHI", "SNX", "CRV", "DOT", "YFI", "MKR", "PAXG", "ADA", "BAT", "ENJ",
	"AXS", "DASH", "EOS", "BAL", "KNC", "ZRX", "SAND", "GRT", "QNT", "ETC",
	"ETHW", "1INCH", "CHZ", "CHR", "SUPER", "ELF", "OMG", "FTM", "MANA",
	"SOL", "ALGO", "LUNC", "UST", "ZEC", "XTZ", "AMP", "REN", "UMA", "SHIB",
	"LRC", "ANKR", "HBAR", "EGLD", "AVAX", "ONE", "GALA", "ALICE", "ATOM",
	"DYDX", "CELO", "STORJ", "SKL", "CTSI", "BAND", "ENS", "RNDR", "MASK", "APE",
}

// AssetSet returns the universe as a membership set.
func AssetSet(assets []string) map[string]struct{} {
	set := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		set[a] = struct{}{}
	}
	return set
}
