package domain

// Chain identifies the blockchain a record belongs to.
type Chain string

const (
	ChainSolana Chain = "solana"
	ChainBSC    Chain = "bsc"
)

// BuyingType selects how the buy amount is computed.
type BuyingType string

const (
	// BuyingTypeRange draws a uniform random amount from [Min, Max] SOL.
	BuyingTypeRange BuyingType = "range"
	// BuyingTypePercentage spends a percentage of the wallet's current balance.
	BuyingTypePercentage BuyingType = "percentage"
)

// BuyingRange bounds the random draw for BuyingTypeRange, in SOL.
type BuyingRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Settings is the acquisition configuration of a MemePad.
type Settings struct {
	Platform         string       `json:"platform"`
	WalletsListName  string       `json:"walletsListName"`
	NamesToBuy       []string     `json:"namesToBuy"`
	HardNames        []bool       `json:"hardNames"`
	BuyingPerWallet  int          `json:"buyingPerWallet"`
	BuyingType       BuyingType   `json:"buyingType"`
	BuyingRange      *BuyingRange `json:"buyingRange,omitempty"`
	BuyingPercentage float64      `json:"buyingPercentage,omitempty"`
	Slippage         float64      `json:"slippage"`
	PurchaseActive   bool         `json:"purchaseActive"`
}

// DefaultSlippage is applied when Settings.Slippage is zero.
const DefaultSlippage = 30.0

// Position is an open holding created by a successful buy.
// BoughtMarketCapSol is the token market cap, in SOL, at purchase time
// and is never re-based by partial sells.
type Position struct {
	Wallet             string  `json:"wallet"`
	TokenAddress       string  `json:"tokenAddress"`
	TokenSymbol        string  `json:"tokenSymbol"`
	BoughtMarketCapSol float64 `json:"boughtMarketCapSol"`
}

// MemePad is a named acquisition campaign: rules, wallet group, strategy
// and the positions it currently holds.
type MemePad struct {
	Name      string
	Chain     Chain
	Settings  Settings
	Positions []Position
}

// Rules returns the memepad's name-matching rules in declaration order.
func (m *MemePad) Rules() []Rule {
	rules := make([]Rule, 0, len(m.Settings.NamesToBuy))
	for i, pattern := range m.Settings.NamesToBuy {
		exact := false
		if i < len(m.Settings.HardNames) {
			exact = m.Settings.HardNames[i]
		}
		rules = append(rules, Rule{Pattern: pattern, ExactMatch: exact})
	}
	return rules
}

// Rule matches a token name either exactly or by substring,
// case-insensitively in both modes.
type Rule struct {
	Pattern    string
	ExactMatch bool
}
