package domain

// NewTokenEvent is an inbound token-launch event from the feed service.
type NewTokenEvent struct {
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	Mint         string  `json:"mint"`
	MarketCapSol float64 `json:"marketCapSol"`
}

// TradeSide is the direction of a trade event.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// TradeEvent is an inbound trade event for a subscribed token.
type TradeEvent struct {
	Mint            string    `json:"mint"`
	TraderPublicKey string    `json:"traderPublicKey"`
	TxType          TradeSide `json:"txType"`
	TokenAmount     float64   `json:"tokenAmount"`
	MarketCapSol    float64   `json:"marketCapSol"`
}
