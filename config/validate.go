package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Klingon-tech/verimint/pkg/types"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}

	switch cfg.Storage.Engine {
	case "":
		cfg.Storage.Engine = EngineBadger
	case EngineBadger, EngineMemory:
	default:
		return fmt.Errorf("storage.engine must be %q or %q", EngineBadger, EngineMemory)
	}

	switch cfg.Runtime.PDAScheme {
	case "":
		cfg.Runtime.PDAScheme = SchemeNative
	case SchemeNative, SchemeSolana:
	default:
		return fmt.Errorf("runtime.pda_scheme must be %q or %q", SchemeNative, SchemeSolana)
	}

	if cfg.Issuer.Decimals > MaxDecimals {
		return fmt.Errorf("issuer.decimals must be at most %d", MaxDecimals)
	}

	switch cfg.Verifier.Predicate {
	case PredicateAcceptAll, PredicateNonEmpty, PredicateEngagement:
	case PredicateAttestation:
		if len(cfg.Verifier.Attesters) == 0 {
			return fmt.Errorf("verifier.predicate=attestation requires at least one verifier.attesters key")
		}
	case "":
		return fmt.Errorf("verifier.predicate is required")
	default:
		return fmt.Errorf("unknown verifier.predicate %q", cfg.Verifier.Predicate)
	}

	if err := validateKeys(cfg.Verifier.Attesters, "verifier.attesters"); err != nil {
		return err
	}
	if err := validateAddresses(cfg.Verifier.Bootstrap, "verifier.bootstrap"); err != nil {
		return err
	}

	return nil
}

func validateKeys(keys []string, field string) error {
	seen := make(map[string]struct{}, len(keys))
	for i, k := range keys {
		s := strings.ToLower(strings.TrimSpace(k))
		if s == "" {
			return fmt.Errorf("%s[%d] is empty", field, i)
		}
		b, err := hex.DecodeString(s)
		if err != nil || len(b) != types.AddressSize {
			return fmt.Errorf("%s[%d] must be a 32-byte hex public key", field, i)
		}
		if _, ok := seen[s]; ok {
			return fmt.Errorf("%s has duplicate key %q", field, s)
		}
		seen[s] = struct{}{}
		keys[i] = s
	}
	return nil
}

func validateAddresses(addrs []string, field string) error {
	for i, a := range addrs {
		if _, err := types.ParseAddress(strings.TrimSpace(a)); err != nil {
			return fmt.Errorf("%s[%d]: %w", field, i, err)
		}
	}
	return nil
}
