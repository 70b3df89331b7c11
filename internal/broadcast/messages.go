package broadcast

// Message types pushed to UI clients.
const (
	TypeBalanceUpdate = "solana_balance_update"
	TypeTokenActivity = "token_activity"
)

// BalanceUpdate reports a wallet's SOL balance.
type BalanceUpdate struct {
	Type    string  `json:"type"`
	Wallet  string  `json:"wallet"`
	Balance float64 `json:"balance"`
}

// NewBalanceUpdate builds a typed balance update message.
func NewBalanceUpdate(wallet string, balance float64) BalanceUpdate {
	return BalanceUpdate{Type: TypeBalanceUpdate, Wallet: wallet, Balance: balance}
}

// TokenActivity reports the live state of a tracked position.
type TokenActivity struct {
	Type              string  `json:"type"`
	MemePad           string  `json:"memePad"`
	Wallet            string  `json:"wallet"`
	WalletBalance     float64 `json:"walletBalance"`
	TokenAddress      string  `json:"tokenAddress"`
	TokenSymbol       string  `json:"tokenSymbol"`
	TokenAmount       float64 `json:"tokenAmount"`
	TokenPrice        float64 `json:"tokenPrice"`
	TokenMarketCap    float64 `json:"tokenMarketCap"`
	PercentDifference float64 `json:"percentDifference"`
}
