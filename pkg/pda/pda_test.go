package pda

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Klingon-tech/verimint/pkg/crypto"
	"github.com/Klingon-tech/verimint/pkg/types"
	"github.com/gagliardetto/solana-go"
)

var testProgram = types.Address(crypto.Hash([]byte("program:test")))

func TestFind_Deterministic(t *testing.T) {
	for _, s := range []Scheme{Native{}, Solana{}} {
		t.Run(s.Name(), func(t *testing.T) {
			seeds := [][]byte{[]byte("verifier")}
			r1, err := Find(s, seeds, testProgram)
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			r2, err := Find(s, seeds, testProgram)
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			if r1 != r2 {
				t.Errorf("Find is not deterministic: %+v != %+v", r1, r2)
			}
		})
	}
}

func TestFind_RecreatesWithBump(t *testing.T) {
	for _, s := range []Scheme{Native{}, Solana{}} {
		t.Run(s.Name(), func(t *testing.T) {
			seeds := [][]byte{[]byte("verifier")}
			r, err := Find(s, seeds, testProgram)
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			got, err := s.CreateProgramAddress(WithBump(seeds, r.Bump), testProgram)
			if err != nil {
				t.Fatalf("CreateProgramAddress: %v", err)
			}
			if got != r.Address {
				t.Errorf("CreateProgramAddress = %s, want %s", got, r.Address)
			}
		})
	}
}

func TestFind_DistinctInputs(t *testing.T) {
	s := Native{}
	a := MustFind(s, [][]byte{[]byte("verifier")}, testProgram)
	b := MustFind(s, [][]byte{[]byte("mint")}, testProgram)
	other := types.Address(crypto.Hash([]byte("program:other")))
	c := MustFind(s, [][]byte{[]byte("verifier")}, other)

	if a.Address == b.Address {
		t.Error("different seeds produced the same address")
	}
	if a.Address == c.Address {
		t.Error("different programs produced the same address")
	}
}

func TestNative_OffCurve(t *testing.T) {
	// Every address Find accepts must not be a usable public key.
	for i := 0; i < 32; i++ {
		r := MustFind(Native{}, [][]byte{{byte(i)}}, testProgram)
		if crypto.IsOnCurve(r.Address[:]) {
			t.Fatalf("seed %d: derived address is on the curve", i)
		}
	}
}

func TestNative_SkipsOnCurveBumps(t *testing.T) {
	// Roughly half of all candidates are valid x coordinates, so across a
	// few seeds the search must have skipped at least one bump.
	skipped := false
	for i := 0; i < 16 && !skipped; i++ {
		r := MustFind(Native{}, [][]byte{{byte(i)}}, testProgram)
		if r.Bump != 255 {
			skipped = true
			_, err := Native{}.CreateProgramAddress(WithBump([][]byte{{byte(i)}}, 255), testProgram)
			if !errors.Is(err, ErrOnCurve) {
				t.Errorf("bump 255 for seed %d should be on curve, got %v", i, err)
			}
		}
	}
	if !skipped {
		t.Error("expected at least one seed to need a bump below 255")
	}
}

func TestSolana_MatchesSolanaGo(t *testing.T) {
	program := solana.PublicKeyFromBytes(testProgram[:])
	want, wantBump, err := solana.FindProgramAddress([][]byte{[]byte("verifier")}, program)
	if err != nil {
		t.Fatalf("solana.FindProgramAddress: %v", err)
	}
	got, err := Find(Solana{}, [][]byte{[]byte("verifier")}, testProgram)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !bytes.Equal(got.Address[:], want[:]) || got.Bump != wantBump {
		t.Errorf("got %s/%d, want %s/%d", got.Address, got.Bump, want, wantBump)
	}
}

func TestCheckSeeds(t *testing.T) {
	tests := []struct {
		name    string
		seeds   [][]byte
		wantErr error
	}{
		{"none", nil, nil},
		{"max length", [][]byte{make([]byte, MaxSeedLength)}, nil},
		{"too long", [][]byte{make([]byte, MaxSeedLength+1)}, ErrMaxSeedLength},
		{"too many", make([][]byte, MaxSeeds+1), ErrMaxSeeds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSeeds(tt.seeds)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckSeeds() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFind_NoRoomForBump(t *testing.T) {
	_, err := Find(Native{}, make([][]byte, MaxSeeds), testProgram)
	if !errors.Is(err, ErrMaxSeeds) {
		t.Errorf("Find() = %v, want ErrMaxSeeds", err)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", NativeName, SolanaName} {
		if _, err := ByName(name); err != nil {
			t.Errorf("ByName(%q): %v", name, err)
		}
	}
	if _, err := ByName("ed448"); err == nil {
		t.Error("ByName should reject unknown scheme")
	}
}
