package pda

import (
	"github.com/Klingon-tech/verimint/pkg/crypto"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// NativeName is the configuration name of the Native scheme.
const NativeName = "native"

// Native derives addresses as BLAKE3(seeds... || program || Marker) and
// rejects candidates that are valid secp256k1 x-only public keys.
type Native struct{}

// Name implements Scheme.
func (Native) Name() string { return NativeName }

// CreateProgramAddress implements Scheme.
func (Native) CreateProgramAddress(seeds [][]byte, program types.Address) (types.Address, error) {
	if err := CheckSeeds(seeds); err != nil {
		return types.Address{}, err
	}
	parts := make([][]byte, 0, len(seeds)+2)
	parts = append(parts, seeds...)
	parts = append(parts, program[:], []byte(Marker))
	h := crypto.HashParts(parts...)
	if crypto.IsOnCurve(h[:]) {
		return types.Address{}, ErrOnCurve
	}
	return types.Address(h), nil
}
