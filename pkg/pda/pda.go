// Package pda derives program addresses: deterministic, keyless account
// addresses computed from seeds and an owning program's identity.
//
// A program address is only ever "signed for" by the runtime on behalf of
// the program that owns it, when that program presents the same seeds
// (including the bump) from within its own invocation. No private key
// exists for it because every valid result is required to lie off the
// signature curve.
package pda

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/verimint/pkg/types"
)

// Derivation limits.
const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

// Marker is appended to every derivation so program addresses cannot
// collide with other hashes over the same bytes.
const Marker = "ProgramDerivedAddress"

// Derivation errors.
var (
	ErrMaxSeeds         = errors.New("too many seeds")
	ErrMaxSeedLength    = errors.New("seed too long")
	ErrOnCurve          = errors.New("derived address is on the curve")
	ErrBumpSeedNotFound = errors.New("no viable bump seed")
)

// Scheme computes a single candidate program address.
type Scheme interface {
	// Name identifies the scheme in configuration and logs.
	Name() string
	// CreateProgramAddress derives the address for exactly these seeds.
	// It returns ErrOnCurve when the candidate could be controlled by a key.
	CreateProgramAddress(seeds [][]byte, program types.Address) (types.Address, error)
}

// Result is a derived address together with the bump that produced it.
type Result struct {
	Address types.Address `json:"address"`
	Bump    uint8         `json:"bump"`
}

// CheckSeeds validates seed count and sizes.
func CheckSeeds(seeds [][]byte) error {
	if len(seeds) > MaxSeeds {
		return fmt.Errorf("%w: %d > %d", ErrMaxSeeds, len(seeds), MaxSeeds)
	}
	for i, s := range seeds {
		if len(s) > MaxSeedLength {
			return fmt.Errorf("%w: seed %d is %d bytes", ErrMaxSeedLength, i, len(s))
		}
	}
	return nil
}

// Find searches bumps from 255 down to 0, appending the bump as the final
// seed, and returns the first off-curve address.
func Find(s Scheme, seeds [][]byte, program types.Address) (Result, error) {
	if len(seeds) >= MaxSeeds {
		return Result{}, fmt.Errorf("%w: no room for bump", ErrMaxSeeds)
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := s.CreateProgramAddress(withBump, program)
		if errors.Is(err, ErrOnCurve) {
			continue
		}
		if err != nil {
			return Result{}, err
		}
		return Result{Address: addr, Bump: uint8(bump)}, nil
	}
	return Result{}, ErrBumpSeedNotFound
}

// MustFind is Find for fixed, known-good seeds. It panics on failure,
// which for static seeds means the bump space was exhausted.
func MustFind(s Scheme, seeds [][]byte, program types.Address) Result {
	r, err := Find(s, seeds, program)
	if err != nil {
		panic(fmt.Sprintf("pda: derive %q under %s: %v", seeds, program, err))
	}
	return r
}

// WithBump returns seeds followed by the one-byte bump seed.
func WithBump(seeds [][]byte, bump uint8) [][]byte {
	out := make([][]byte, len(seeds)+1)
	copy(out, seeds)
	out[len(seeds)] = []byte{bump}
	return out
}

// ByName returns the scheme registered under name.
func ByName(name string) (Scheme, error) {
	switch name {
	case "", NativeName:
		return Native{}, nil
	case SolanaName:
		return Solana{}, nil
	default:
		return nil, fmt.Errorf("unknown pda scheme %q", name)
	}
}
