package solana

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Transaction is a wire-format Solana transaction split into its
// signature slots and message bytes. The relay returns transactions
// with empty signature slots; signing fills slot zero.
type Transaction struct {
	Signatures [][]byte
	Message    []byte
}

// ParseTransaction splits serialized transaction bytes into the
// compact signature array and the message.
func ParseTransaction(raw []byte) (*Transaction, error) {
	count, offset, err := decodeCompactU16(raw)
	if err != nil {
		return nil, fmt.Errorf("decode signature count: %w", err)
	}
	if count > 16 {
		return nil, fmt.Errorf("implausible signature count %d", count)
	}

	sigEnd := offset + count*64
	if len(raw) < sigEnd {
		return nil, fmt.Errorf("transaction truncated: %d bytes, need %d", len(raw), sigEnd)
	}

	tx := &Transaction{Message: raw[sigEnd:]}
	for i := 0; i < count; i++ {
		sig := make([]byte, 64)
		copy(sig, raw[offset+i*64:offset+(i+1)*64])
		tx.Signatures = append(tx.Signatures, sig)
	}
	return tx, nil
}

// ParseTransactionBase58 decodes and parses a base58 transaction blob.
func ParseTransactionBase58(encoded string) (*Transaction, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode transaction blob: %w", err)
	}
	return ParseTransaction(raw)
}

// Sign signs the message with the keypair and stores the signature in
// slot zero (the fee payer's slot).
func (t *Transaction) Sign(kp *Keypair) error {
	if len(t.Signatures) == 0 {
		return fmt.Errorf("transaction has no signature slots")
	}
	t.Signatures[0] = kp.Sign(t.Message)
	return nil
}

// Signature returns the base58 primary signature, which doubles as the
// transaction's identifier.
func (t *Transaction) Signature() string {
	if len(t.Signatures) == 0 {
		return ""
	}
	return base58.Encode(t.Signatures[0])
}

// Serialize re-encodes the transaction to wire format.
func (t *Transaction) Serialize() []byte {
	out := encodeCompactU16(len(t.Signatures))
	for _, sig := range t.Signatures {
		out = append(out, sig...)
	}
	return append(out, t.Message...)
}

// SerializeBase58 returns the base58 wire encoding.
func (t *Transaction) SerializeBase58() string {
	return base58.Encode(t.Serialize())
}

// decodeCompactU16 reads Solana's compact-u16 length prefix.
func decodeCompactU16(data []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("unexpected end of data")
		}
		b := int(data[i])
		value |= (b & 0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}

// encodeCompactU16 writes Solana's compact-u16 length prefix.
func encodeCompactU16(value int) []byte {
	var out []byte
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
