package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program addresses used for associated token account derivation.
const (
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

// Keypair is an ed25519 signing identity.
type Keypair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// KeypairFromBase58 builds a Keypair from a base58-encoded 64-byte
// secret key (the format wallets export).
func KeypairFromBase58(secret string) (*Keypair, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid secret key length: %d", len(raw))
	}

	priv := ed25519.PrivateKey(raw)
	return &Keypair{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}, nil
}

// Address returns the base58 public key.
func (k *Keypair) Address() string {
	return base58.Encode(k.PublicKey)
}

// Sign signs a message with the keypair's private key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.PrivateKey, message)
}

// isOnCurve reports whether a 32-byte point decodes as a valid
// edwards25519 point. Program-derived addresses must be off-curve.
func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// createProgramAddress derives an address from seeds and a program ID.
// Fails if the derived point lands on the curve.
func createProgramAddress(seeds [][]byte, programID []byte) ([]byte, error) {
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > 32 {
			return nil, fmt.Errorf("seed exceeds 32 bytes")
		}
		h.Write(seed)
	}
	h.Write(programID)
	h.Write([]byte("ProgramDerivedAddress"))
	derived := h.Sum(nil)

	if isOnCurve(derived) {
		return nil, fmt.Errorf("derived address is on curve")
	}
	return derived, nil
}

// findProgramAddress searches bump seeds 255..0 for a valid
// program-derived address.
func findProgramAddress(seeds [][]byte, programID []byte) ([]byte, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := createProgramAddress(append(seeds, []byte{byte(bump)}), programID)
		if err == nil {
			return addr, nil
		}
	}
	return nil, fmt.Errorf("no valid program address found")
}

// AssociatedTokenAddress derives the associated token account for a
// wallet and mint. Pure; the result is deterministic per (wallet, mint).
func AssociatedTokenAddress(wallet, mint string) (string, error) {
	walletKey, err := base58.Decode(wallet)
	if err != nil {
		return "", fmt.Errorf("decode wallet address: %w", err)
	}
	mintKey, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint address: %w", err)
	}
	tokenProgram, err := base58.Decode(TokenProgramID)
	if err != nil {
		return "", fmt.Errorf("decode token program: %w", err)
	}
	ataProgram, err := base58.Decode(AssociatedTokenProgramID)
	if err != nil {
		return "", fmt.Errorf("decode associated token program: %w", err)
	}

	addr, err := findProgramAddress([][]byte{walletKey, tokenProgram, mintKey}, ataProgram)
	if err != nil {
		return "", fmt.Errorf("derive associated token address: %w", err)
	}
	return base58.Encode(addr), nil
}
