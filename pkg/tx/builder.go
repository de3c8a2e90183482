package tx

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/verimint/pkg/crypto"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx  *Transaction
	err error
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{
		tx: &Transaction{Version: 1},
	}
}

// SetNonce sets the transaction nonce. Two transactions with the same
// instructions must differ in nonce to both be executed.
func (b *Builder) SetNonce(nonce uint64) *Builder {
	b.tx.Nonce = nonce
	return b
}

// AddInstruction appends a raw instruction.
func (b *Builder) AddInstruction(ix Instruction) *Builder {
	b.tx.Instructions = append(b.tx.Instructions, ix)
	return b
}

// AddCall appends an instruction whose data is the JSON encoding of v.
func (b *Builder) AddCall(program types.Address, v interface{}) *Builder {
	data, err := json.Marshal(v)
	if err != nil {
		if b.err == nil {
			b.err = fmt.Errorf("encode instruction %d: %w", len(b.tx.Instructions), err)
		}
		return b
	}
	return b.AddInstruction(Instruction{Program: program, Data: data})
}

// Sign appends one signature per key over the current transaction hash.
// All instructions must be added before signing.
func (b *Builder) Sign(keys ...crypto.Signer) error {
	if b.err != nil {
		return b.err
	}
	hash := b.tx.Hash()
	for _, key := range keys {
		sig, err := key.Sign(hash[:])
		if err != nil {
			return fmt.Errorf("sign tx: %w", err)
		}
		b.tx.Signatures = append(b.tx.Signatures, Signature{
			PubKey:    key.PublicKey(),
			Signature: sig,
		})
	}
	return nil
}

// Build returns the constructed transaction.
func (b *Builder) Build() *Transaction {
	return b.tx
}

// Err returns the first encoding error recorded by AddCall.
func (b *Builder) Err() error {
	return b.err
}
