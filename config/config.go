// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Protocol rules: fixed constants (see protocol.go), identical on every node
//   - Node settings: runtime configuration, can vary per node
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// =============================================================================
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Storage backend
	Storage StorageConfig

	// RPC server
	RPC RPCConfig

	// Program runtime
	Runtime RuntimeConfig

	// Token issuer program
	Issuer IssuerConfig

	// Verifier program
	Verifier VerifierConfig

	// Logging
	Log LogConfig
}

// StorageConfig selects the account store.
type StorageConfig struct {
	Engine string `conf:"storage.engine"` // badger or memory
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// RuntimeConfig holds program runtime settings.
type RuntimeConfig struct {
	PDAScheme string `conf:"runtime.pda_scheme"` // native or solana
}

// IssuerConfig holds token issuer settings.
type IssuerConfig struct {
	Decimals uint8 `conf:"issuer.decimals"`
}

// VerifierConfig holds verifier program settings.
type VerifierConfig struct {
	Predicate string   `conf:"verifier.predicate"`
	Attesters []string `conf:"verifier.attesters"` // Hex x-only pubkeys (attestation predicate)
	Bootstrap []string `conf:"verifier.bootstrap"` // Addresses allowed to initialize (empty = any signer)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.verimint
//	macOS:   ~/Library/Application Support/Verimint
//	Windows: %APPDATA%\Verimint
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".verimint"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Verimint")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Verimint")
		}
		return filepath.Join(home, "AppData", "Roaming", "Verimint")
	default:
		return filepath.Join(home, ".verimint")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// StateDir returns the account database directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.NetworkDataDir(), "state")
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "verimint.conf")
}
