package domain

// TradeTick is one observed trade for an archived token, as seen on the
// feed while a position in that token was being tracked.
type TradeTick struct {
	Mint         string
	Trader       string
	Side         TradeSide
	TokenAmount  float64
	MarketCapSol float64
	Timestamp    int64 // unix ms
}
