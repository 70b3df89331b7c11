package domain

// TradeType distinguishes buy and sell history records.
type TradeType string

const (
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
)

// HistoryRecord is one append-only buy/sell attempt.
// Amount == 0 marks a pending record awaiting on-chain reconciliation;
// reads resolve it from the transaction's post-trade balances or delete
// the record if the transaction cannot be found.
type HistoryRecord struct {
	ID           int64
	MemePadName  string
	Wallet       string
	TokenAddress string
	TokenSymbol  string
	Type         TradeType
	Amount       float64
	Signature    string
	Timestamp    int64 // unix ms
}
