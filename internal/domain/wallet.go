package domain

// Wallet is a signing identity usable by memepads.
// PrivateKey holds the AES-encrypted base58 secret, never plaintext.
type Wallet struct {
	Address    string
	PrivateKey string
	Group      string
	Chain      Chain
	Purchases  int
}

// Group is a named set of wallets shared by one or more memepads.
type Group struct {
	Name         string
	Chain        Chain
	AddressCount int
}
