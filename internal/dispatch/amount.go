package dispatch

import (
	"fmt"
	"math/rand"

	"memepad-engine/internal/domain"
)

// LamportsPerSol is the lamport denomination of one SOL.
const LamportsPerSol = 1e9

// AmountByRange draws a uniform buy amount in SOL from [min, max].
func AmountByRange(r *domain.BuyingRange) (float64, error) {
	if r == nil {
		return 0, fmt.Errorf("buying range not configured")
	}
	if r.Min < 0 || r.Max < r.Min {
		return 0, fmt.Errorf("invalid buying range [%f, %f]", r.Min, r.Max)
	}
	return rand.Float64()*(r.Max-r.Min) + r.Min, nil
}

// AmountByPercentage computes a buy amount in SOL as a percentage of a
// wallet's lamport balance.
func AmountByPercentage(lamports uint64, percentage float64) (float64, error) {
	if percentage <= 0 || percentage > 100 {
		return 0, fmt.Errorf("invalid buying percentage %f", percentage)
	}
	return float64(lamports) / LamportsPerSol / 100 * percentage, nil
}

// AmountForSettings resolves the configured buy amount strategy.
// Percentage-based buys need the wallet's current lamport balance.
func AmountForSettings(s domain.Settings, lamports uint64) (float64, error) {
	switch s.BuyingType {
	case domain.BuyingTypeRange:
		return AmountByRange(s.BuyingRange)
	case domain.BuyingTypePercentage:
		return AmountByPercentage(lamports, s.BuyingPercentage)
	default:
		return 0, fmt.Errorf("unknown buying type %q", s.BuyingType)
	}
}
