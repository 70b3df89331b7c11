package solana

import (
	"context"
	"fmt"
)

// GetWalletTokenHolding resolves the wallet's associated token account
// for the mint and returns its balance. Errors if the account does not
// exist or cannot be derived.
func (c *HTTPClient) GetWalletTokenHolding(ctx context.Context, wallet, mint string) (float64, error) {
	ata, err := AssociatedTokenAddress(wallet, mint)
	if err != nil {
		return 0, fmt.Errorf("derive token account: %w", err)
	}
	return c.GetTokenAccountBalance(ctx, ata)
}
