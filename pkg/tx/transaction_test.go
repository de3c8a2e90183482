package tx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/Klingon-tech/verimint/pkg/crypto"
	"github.com/Klingon-tech/verimint/pkg/types"
)

var testProgram = types.Address{0x42}

func TestTransaction_Hash_Deterministic(t *testing.T) {
	tx := &Transaction{
		Version:      1,
		Nonce:        7,
		Instructions: []Instruction{{Program: testProgram, Data: []byte(`{"op":"a"}`)}},
	}

	h1 := tx.Hash()
	h2 := tx.Hash()
	if h1 != h2 {
		t.Error("Hash() should be deterministic")
	}
	if h1.IsZero() {
		t.Error("Hash() should not be zero")
	}
}

func TestTransaction_Hash_ChangesWithContent(t *testing.T) {
	base := func() *Transaction {
		return &Transaction{
			Version:      1,
			Nonce:        1,
			Instructions: []Instruction{{Program: testProgram, Data: []byte("x")}},
		}
	}

	tx1 := base()
	tx2 := base()
	tx2.Nonce = 2
	tx3 := base()
	tx3.Instructions[0].Data = []byte("y")
	tx4 := base()
	tx4.Instructions[0].Program = types.Address{0x43}

	h := tx1.Hash()
	for i, other := range []*Transaction{tx2, tx3, tx4} {
		if other.Hash() == h {
			t.Errorf("variant %d should have a different hash", i)
		}
	}
}

func TestTransaction_Hash_IgnoresSignatures(t *testing.T) {
	tx := &Transaction{
		Version:      1,
		Instructions: []Instruction{{Program: testProgram}},
	}
	h1 := tx.Hash()
	tx.Signatures = []Signature{{PubKey: []byte("k"), Signature: []byte("s")}}
	if tx.Hash() != h1 {
		t.Error("Hash() should not depend on signatures")
	}
}

func TestInstruction_JSON(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"json object", []byte(`{"op":"mint_to","amount":5}`)},
		{"binary", []byte{0x00, 0xff, 0x10}},
		{"empty", nil},
		{"json with whitespace", []byte("{\"op\": \"mint_to\",\n \"amount\": 5}")},
		{"json with html characters", []byte(`{"memo":"<a&b>"}`)},
		{"json with line separator", []byte("{\"memo\":\"a\u2028b\"}")},
		{"json null", []byte("null")},
		{"json with escaped html", []byte(`{"memo":"\u003ca\u003e"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := Instruction{Program: testProgram, Data: tt.data}
			enc, err := json.Marshal(ix)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var got Instruction
			if err := json.Unmarshal(enc, &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if got.Program != ix.Program {
				t.Errorf("program = %s, want %s", got.Program, ix.Program)
			}
			if !bytes.Equal(got.Data, tt.data) {
				t.Errorf("data = %q, want %q", got.Data, tt.data)
			}
		})
	}
}

func TestInstruction_JSON_Encoding(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantHex bool
	}{
		{"compact object", []byte(`{"op":"x"}`), false},
		{"number", []byte("42"), false},
		{"whitespace", []byte(`{"op": "x"}`), true},
		{"trailing newline", []byte("{\"op\":\"x\"}\n"), true},
		{"ampersand", []byte(`"a&b"`), true},
		{"null", []byte("null"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := json.Marshal(Instruction{Program: testProgram, Data: tt.data})
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(enc, &fields); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			_, hasHex := fields["data_hex"]
			if hasHex != tt.wantHex {
				t.Errorf("data_hex present = %v, want %v (%s)", hasHex, tt.wantHex, enc)
			}
		})
	}
}

// Signed bytes that the JSON encoder would rewrite still verify after a
// JSON roundtrip.
func TestTransaction_JSON_NonCanonicalData(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	for _, data := range [][]byte{
		[]byte(`{"op": "init", "params": {}}`),
		[]byte(`{"op":"init","memo":"<b>&"}`),
	} {
		b := NewBuilder().SetNonce(7).AddInstruction(Instruction{Program: testProgram, Data: data})
		if err := b.Sign(key); err != nil {
			t.Fatalf("Sign: %v", err)
		}
		orig := b.Build()

		enc, err := json.Marshal(orig)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var decoded Transaction
		if err := json.Unmarshal(enc, &decoded); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if !bytes.Equal(decoded.Instructions[0].Data, data) {
			t.Errorf("data = %q, want %q", decoded.Instructions[0].Data, data)
		}
		if decoded.Hash() != orig.Hash() {
			t.Errorf("%q: hash changed across JSON roundtrip", data)
		}
		if err := decoded.VerifySignatures(); err != nil {
			t.Errorf("%q: signatures should still verify: %v", data, err)
		}
	}
}

func TestTransaction_JSON_PreservesHash(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	b := NewBuilder().SetNonce(99).AddCall(testProgram, map[string]string{"op": "init"})
	if err := b.Sign(key); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	orig := b.Build()

	enc, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Transaction
	if err := json.Unmarshal(enc, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Hash() != orig.Hash() {
		t.Error("hash changed across JSON roundtrip")
	}
	if err := decoded.VerifySignatures(); err != nil {
		t.Errorf("signatures should still verify: %v", err)
	}
	if decoded.Signers()[0] != key.Address() {
		t.Errorf("signer = %s, want %s", decoded.Signers()[0], key.Address())
	}
}
