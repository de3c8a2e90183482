package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/verimint/config"
	"github.com/Klingon-tech/verimint/pkg/crypto"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// Validation errors.
var (
	ErrNoInstructions     = errors.New("transaction has no instructions")
	ErrNoSignatures       = errors.New("transaction has no signatures")
	ErrTooManyInstr       = errors.New("too many instructions")
	ErrTooManySignatures  = errors.New("too many signatures")
	ErrDataTooLarge       = errors.New("instruction data too large")
	ErrZeroProgram        = errors.New("instruction has zero program address")
	ErrDuplicateSigner    = errors.New("duplicate signer")
	ErrInvalidPubKey      = errors.New("invalid public key")
	ErrInvalidSig         = errors.New("invalid signature")
	ErrUnsupportedVersion = errors.New("unsupported transaction version")
)

// Validate checks transaction structure and limits. It does not verify
// signatures; see VerifySignatures.
func (tx *Transaction) Validate() error {
	if tx.Version != 1 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, tx.Version)
	}
	if len(tx.Instructions) == 0 {
		return ErrNoInstructions
	}
	if len(tx.Signatures) == 0 {
		return ErrNoSignatures
	}
	if len(tx.Instructions) > config.MaxInstructions {
		return fmt.Errorf("%w: %d, max %d", ErrTooManyInstr, len(tx.Instructions), config.MaxInstructions)
	}
	if len(tx.Signatures) > config.MaxSignatures {
		return fmt.Errorf("%w: %d, max %d", ErrTooManySignatures, len(tx.Signatures), config.MaxSignatures)
	}

	for i, ix := range tx.Instructions {
		if ix.Program.IsZero() {
			return fmt.Errorf("instruction %d: %w", i, ErrZeroProgram)
		}
		if len(ix.Data) > config.MaxInstructionData {
			return fmt.Errorf("instruction %d: %w: %d bytes, max %d", i, ErrDataTooLarge, len(ix.Data), config.MaxInstructionData)
		}
	}

	seen := make(map[types.Address]bool, len(tx.Signatures))
	for i, s := range tx.Signatures {
		if len(s.PubKey) != crypto.PublicKeySize {
			return fmt.Errorf("signature %d: %w: %d bytes", i, ErrInvalidPubKey, len(s.PubKey))
		}
		signer := s.Signer()
		if seen[signer] {
			return fmt.Errorf("signature %d: %w: %s", i, ErrDuplicateSigner, signer)
		}
		seen[signer] = true
	}
	return nil
}

// VerifySignatures checks every signature against the transaction hash.
func (tx *Transaction) VerifySignatures() error {
	hash := tx.Hash()
	for i, s := range tx.Signatures {
		if !crypto.VerifySignature(hash[:], s.Signature, s.PubKey) {
			return fmt.Errorf("signature %d (%s): %w", i, s.Signer(), ErrInvalidSig)
		}
	}
	return nil
}
