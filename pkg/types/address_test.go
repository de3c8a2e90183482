package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAddress_IsZero(t *testing.T) {
	var zero Address
	if !zero.IsZero() {
		t.Error("zero-value Address should be zero")
	}

	nonZero := Address{0x01}
	if nonZero.IsZero() {
		t.Error("non-zero Address should not be zero")
	}
}

func TestAddress_Base58_Roundtrip(t *testing.T) {
	a := Address{0x8f, 0x3a, 0x44, 0xb8, 0x05, 0x6c, 0xaf, 0xec, 0x36, 0x8d,
		0xea, 0x0c, 0xbe, 0x0a, 0xd1, 0xd9, 0xbc, 0x3f, 0x43, 0x05}
	a[31] = 0x77

	s := a.String()
	parsed, err := ParseAddress(s)
	if err != nil {
		t.Fatalf("ParseAddress(%q): %v", s, err)
	}
	if parsed != a {
		t.Errorf("roundtrip mismatch: got %x, want %x", parsed, a)
	}
}

func TestAddress_Hex(t *testing.T) {
	a := Address{0xab, 0xcd}
	h := a.Hex()
	if len(h) != 64 {
		t.Errorf("Hex() length = %d, want 64", len(h))
	}
	if !strings.HasPrefix(h, "abcd") {
		t.Errorf("Hex() should start with 'abcd', got %s", h[:4])
	}
}

func TestAddress_Bytes(t *testing.T) {
	a := Address{0x01, 0x02, 0x03}
	b := a.Bytes()

	if len(b) != AddressSize {
		t.Errorf("Bytes() length = %d, want %d", len(b), AddressSize)
	}

	// Ensure it's a copy
	b[0] = 0xFF
	if a[0] == 0xFF {
		t.Error("Bytes() should return a copy, not a reference")
	}
}

func TestParseAddress(t *testing.T) {
	rawHex := strings.Repeat("0123456789abcdef", 4)
	a, err := HexToAddress(rawHex)
	if err != nil {
		t.Fatalf("HexToAddress: %v", err)
	}

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"raw hex", rawHex, false},
		{"base58", a.String(), false},
		{"invalid base58", "0OIl", true},
		{"short base58", "abc", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAddress(%q) should have returned error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddress(%q): %v", tt.input, err)
			}
			if got != a {
				t.Errorf("ParseAddress(%q) = %x, want %x", tt.input, got, a)
			}
		})
	}
}

func TestAddress_JSON(t *testing.T) {
	a := Address{0x10, 0x20}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Address
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != a {
		t.Errorf("got %x, want %x", got, a)
	}

	m := map[Address]uint64{a: 5}
	data, err = json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal map: %v", err)
	}
	back := map[Address]uint64{}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal map: %v", err)
	}
	if back[a] != 5 {
		t.Errorf("map roundtrip: got %v", back)
	}
}

func TestAddressFromBytes(t *testing.T) {
	if _, err := AddressFromBytes(make([]byte, 31)); err == nil {
		t.Error("expected error for 31-byte input")
	}
	a, err := AddressFromBytes(make([]byte, AddressSize))
	if err != nil {
		t.Fatalf("AddressFromBytes: %v", err)
	}
	if !a.IsZero() {
		t.Error("expected zero address")
	}
}
