package config

import "math"

// =============================================================================
// Protocol Rules (fixed, identical on every node)
// =============================================================================

// DefaultDecimals is the mint precision used when issuer.decimals is unset.
const DefaultDecimals = 9

// MaxDecimals bounds issuer.decimals so 10^decimals fits in a uint64.
const MaxDecimals = 19

// MaxTokenAmount is the ledger-wide cap on a mint's total supply and on any
// single account balance.
const MaxTokenAmount = math.MaxUint64 / 1000

// Transaction size limits.
const (
	MaxInstructions    = 64     // Max instructions per transaction
	MaxSignatures      = 16     // Max signatures per transaction
	MaxInstructionData = 16_384 // 16 KB max data per instruction
	MaxInvokeDepth     = 4      // Max nested cross-program invocations
)

// Derivation schemes for program-derived addresses.
const (
	SchemeNative = "native" // BLAKE3 + secp256k1 off-curve test
	SchemeSolana = "solana" // SHA-256 + ed25519 off-curve test
)

// Storage engines.
const (
	EngineBadger = "badger"
	EngineMemory = "memory"
)

// Verification predicates.
const (
	PredicateAcceptAll   = "accept-all"
	PredicateNonEmpty    = "non-empty"
	PredicateAttestation = "attestation"
	PredicateEngagement  = "engagement"
)
