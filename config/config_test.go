package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testAttester = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.conf")
	content := `# comment
network = testnet

rpc.port = 9000
verifier.predicate = "non-empty"
verifier.bootstrap = a, b ,c
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if values["network"] != "testnet" {
		t.Errorf("network = %q", values["network"])
	}
	if values["verifier.predicate"] != "non-empty" {
		t.Errorf("quotes should be stripped, got %q", values["verifier.predicate"])
	}

	cfg := Default(Testnet)
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.RPC.Port != 9000 {
		t.Errorf("rpc.port = %d, want 9000", cfg.RPC.Port)
	}
	if got := strings.Join(cfg.Verifier.Bootstrap, "|"); got != "a|b|c" {
		t.Errorf("bootstrap = %q", got)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "nope.conf"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("expected empty map, got %v", values)
	}
}

func TestLoadFile_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	if err := os.WriteFile(path, []byte("no equals sign\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyFileConfig_BadDecimals(t *testing.T) {
	cfg := Default(Mainnet)
	if err := ApplyFileConfig(cfg, map[string]string{"issuer.decimals": "300"}); err == nil {
		t.Error("decimals out of uint8 range should fail")
	}
}

func TestDefaults(t *testing.T) {
	main := Default(Mainnet)
	if main.Issuer.Decimals != DefaultDecimals {
		t.Errorf("decimals = %d, want %d", main.Issuer.Decimals, DefaultDecimals)
	}
	if main.Storage.Engine != EngineBadger {
		t.Errorf("engine = %q", main.Storage.Engine)
	}
	test := Default(Testnet)
	if test.RPC.Port == main.RPC.Port {
		t.Error("testnet and mainnet should use different RPC ports")
	}
	if err := Validate(test); err != nil {
		t.Errorf("testnet defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"testnet defaults", func(c *Config) {}, false},
		{"bad network", func(c *Config) { c.Network = "devnet" }, true},
		{"bad port", func(c *Config) { c.RPC.Port = 70000 }, true},
		{"bad engine", func(c *Config) { c.Storage.Engine = "sqlite" }, true},
		{"memory engine", func(c *Config) { c.Storage.Engine = EngineMemory }, false},
		{"solana scheme", func(c *Config) { c.Runtime.PDAScheme = SchemeSolana }, false},
		{"bad scheme", func(c *Config) { c.Runtime.PDAScheme = "sha3" }, true},
		{"too many decimals", func(c *Config) { c.Issuer.Decimals = MaxDecimals + 1 }, true},
		{"unknown predicate", func(c *Config) { c.Verifier.Predicate = "oracle" }, true},
		{"empty predicate", func(c *Config) { c.Verifier.Predicate = "" }, true},
		{"attestation without attesters", func(c *Config) { c.Verifier.Predicate = PredicateAttestation }, true},
		{"attestation with attester", func(c *Config) {
			c.Verifier.Predicate = PredicateAttestation
			c.Verifier.Attesters = []string{testAttester}
		}, false},
		{"short attester", func(c *Config) { c.Verifier.Attesters = []string{"abcd"} }, true},
		{"duplicate attester", func(c *Config) {
			c.Verifier.Attesters = []string{testAttester, strings.ToUpper(testAttester)}
		}, true},
		{"bad bootstrap", func(c *Config) { c.Verifier.Bootstrap = []string{"not-an-address"} }, true},
		{"hex bootstrap", func(c *Config) { c.Verifier.Bootstrap = []string{testAttester} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(Testnet)
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	f, err := parseFlags([]string{"--testnet", "--rpc=false", "--decimals=0", "--predicate=non-empty", "--storage=memory"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg := Default(Testnet)
	ApplyFlags(cfg, f)
	if f.Network != "testnet" {
		t.Errorf("network = %q", f.Network)
	}
	if cfg.RPC.Enabled {
		t.Error("--rpc=false should disable RPC")
	}
	if cfg.Issuer.Decimals != 0 {
		t.Errorf("explicit --decimals=0 should apply, got %d", cfg.Issuer.Decimals)
	}
	if cfg.Verifier.Predicate != PredicateNonEmpty {
		t.Errorf("predicate = %q", cfg.Verifier.Predicate)
	}
	if cfg.Storage.Engine != EngineMemory {
		t.Errorf("engine = %q", cfg.Storage.Engine)
	}
}

func TestParseFlags_StrayPositional(t *testing.T) {
	if _, err := parseFlags([]string{"--rpc", "oops", "--testnet"}); err == nil {
		t.Error("expected error for flag after positional argument")
	}
}

func TestLoadWithFlags_CreatesDataDir(t *testing.T) {
	dir := t.TempDir()
	f, err := parseFlags([]string{"--testnet", "--datadir=" + dir, "--rpc-port=9100"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg, err := LoadWithFlags(f)
	if err != nil {
		t.Fatalf("LoadWithFlags: %v", err)
	}
	if cfg.RPC.Port != 9100 {
		t.Errorf("flag should override file, port = %d", cfg.RPC.Port)
	}
	if _, err := os.Stat(cfg.ConfigFile()); err != nil {
		t.Errorf("default config file not written: %v", err)
	}
	if _, err := os.Stat(cfg.StateDir()); err != nil {
		t.Errorf("state dir not created: %v", err)
	}

	// The written default file must load back cleanly.
	values, err := LoadFile(cfg.ConfigFile())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	reloaded := Default(Testnet)
	if err := ApplyFileConfig(reloaded, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if err := Validate(reloaded); err != nil {
		t.Errorf("default testnet file should validate: %v", err)
	}
}
