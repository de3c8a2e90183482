package pda

import (
	"fmt"

	"github.com/Klingon-tech/verimint/pkg/types"
	"github.com/gagliardetto/solana-go"
)

// SolanaName is the configuration name of the Solana scheme.
const SolanaName = "solana"

// Solana derives addresses exactly like Solana's program-derived
// addresses (SHA-256, ed25519 off-curve), so deployments can mirror
// accounts of an on-chain program byte for byte.
type Solana struct{}

// Name implements Scheme.
func (Solana) Name() string { return SolanaName }

// CreateProgramAddress implements Scheme.
func (Solana) CreateProgramAddress(seeds [][]byte, program types.Address) (types.Address, error) {
	if err := CheckSeeds(seeds); err != nil {
		return types.Address{}, err
	}
	pk, err := solana.CreateProgramAddress(seeds, solana.PublicKeyFromBytes(program[:]))
	if err != nil {
		// solana-go reports both seed errors (checked above) and on-curve
		// candidates through this path.
		return types.Address{}, fmt.Errorf("%w: %v", ErrOnCurve, err)
	}
	return types.Address(pk), nil
}
