package verifier

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Klingon-tech/verimint/config"
	"github.com/Klingon-tech/verimint/pkg/crypto"
	"github.com/Klingon-tech/verimint/pkg/types"
)

func newKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	k, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return k
}

func TestBuiltinPredicates(t *testing.T) {
	tests := []struct {
		pred    Predicate
		payload []byte
		want    bool
	}{
		{AcceptAll{}, nil, true},
		{AcceptAll{}, []byte("test data"), true},
		{NonEmpty{}, nil, false},
		{NonEmpty{}, []byte{}, false},
		{NonEmpty{}, []byte{0}, true},
	}
	for _, tt := range tests {
		if got := tt.pred.Verify(tt.payload); got != tt.want {
			t.Errorf("%s.Verify(%q) = %v, want %v", tt.pred.Name(), tt.payload, got, tt.want)
		}
	}
}

func TestAttestationPredicate(t *testing.T) {
	attester, stranger := newKey(t), newKey(t)
	p, err := NewAttestationPredicate([]string{hex.EncodeToString(attester.PublicKey())})
	if err != nil {
		t.Fatalf("NewAttestationPredicate: %v", err)
	}
	recipient := newKey(t).Address()

	good, err := Attest(attester, []byte("session 42"), 100, recipient)
	if err != nil {
		t.Fatalf("Attest: %v", err)
	}
	foreign, _ := Attest(stranger, []byte("session 42"), 100, recipient)
	tamper := func(edit func(*Attestation)) []byte {
		var att Attestation
		if err := json.Unmarshal(good, &att); err != nil {
			t.Fatal(err)
		}
		edit(&att)
		b, err := json.Marshal(att)
		if err != nil {
			t.Fatal(err)
		}
		return b
	}

	tests := []struct {
		name    string
		payload []byte
		want    bool
	}{
		{"valid", good, true},
		{"unknown attester", foreign, false},
		{"tampered data", tamper(func(a *Attestation) { a.Data = hex.EncodeToString([]byte("session 43")) }), false},
		{"tampered amount", tamper(func(a *Attestation) { a.Amount = 101 }), false},
		{"tampered recipient", tamper(func(a *Attestation) { a.Recipient = types.Address{1} }), false},
		{"nil", nil, false},
		{"not json", []byte("test data"), false},
		{"bad hex", []byte(`{"data":"zz"}`), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Verify(tt.payload); got != tt.want {
				t.Errorf("Verify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAttestationPredicate_VerifyClaim(t *testing.T) {
	attester := newKey(t)
	p, err := NewAttestationPredicate([]string{hex.EncodeToString(attester.PublicKey())})
	if err != nil {
		t.Fatalf("NewAttestationPredicate: %v", err)
	}
	alice, bob := newKey(t).Address(), newKey(t).Address()
	payload, err := Attest(attester, []byte("d"), 100, alice)
	if err != nil {
		t.Fatalf("Attest: %v", err)
	}

	tests := []struct {
		name  string
		claim MintClaim
		want  bool
	}{
		{"matching", MintClaim{payload, 100, alice}, true},
		{"wrong amount", MintClaim{payload, 99, alice}, false},
		{"wrong recipient", MintClaim{payload, 100, bob}, false},
		{"garbage", MintClaim{[]byte("x"), 100, alice}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest, ok := p.VerifyClaim(tt.claim)
			if ok != tt.want {
				t.Fatalf("VerifyClaim = %v, want %v", ok, tt.want)
			}
			if ok && digest != StatementDigest([]byte("d"), 100, alice) {
				t.Errorf("digest = %s", digest)
			}
			if !ok && !digest.IsZero() {
				t.Errorf("rejected claim returned digest %s", digest)
			}
		})
	}
}

func TestStatementDigest_BindsFields(t *testing.T) {
	alice, bob := newKey(t).Address(), newKey(t).Address()
	base := StatementDigest([]byte("d"), 1, alice)
	for name, d := range map[string]types.Hash{
		"data":      StatementDigest([]byte("e"), 1, alice),
		"amount":    StatementDigest([]byte("d"), 2, alice),
		"recipient": StatementDigest([]byte("d"), 1, bob),
	} {
		if d == base {
			t.Errorf("changing %s kept the digest", name)
		}
	}
}

func TestNewAttestationPredicate_Errors(t *testing.T) {
	tests := []struct {
		name string
		keys []string
	}{
		{"none", nil},
		{"not hex", []string{"xyz"}},
		{"short", []string{"abcd"}},
		{"off curve", []string{strings.Repeat("ff", 32)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAttestationPredicate(tt.keys); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func engagement(typ string, conf, dur, intensity float64, ts int64) Engagement {
	e := Engagement{
		EngagementType: typ,
		Metrics:        EngagementMetrics{Confidence: conf, Duration: dur, Intensity: intensity},
		Timestamp:      ts,
	}
	e.Proof = e.ProofDigest()
	return e
}

func TestEngagement_ProofDigest(t *testing.T) {
	tests := []struct {
		e    Engagement
		want string
	}{
		{
			engagement("FOCUSED", 0.85, 5, 0.7, 1700000000),
			"c79c0437ee474686253a9fec627f304692d050742d5929569622db0c484a8de7",
		},
		{
			engagement("YAWNING", 1e-05, 120.5, 1, 1),
			"a58b34456e46132d87e2786e0138415df0ed3ea7cbdb081b70993a431ef665c8",
		},
	}
	for _, tt := range tests {
		if got := tt.e.ProofDigest(); got != tt.want {
			t.Errorf("%s digest = %s, want %s", tt.e.EngagementType, got, tt.want)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{5, "5.0"},
		{0.85, "0.85"},
		{1e-05, "1e-05"},
		{1e16, "1e+16"},
		{123456789, "123456789.0"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.in); got != tt.want {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEngagementPredicate(t *testing.T) {
	p := NewEngagementPredicate()
	marshal := func(e Engagement) []byte {
		b, err := json.Marshal(e)
		if err != nil {
			t.Fatal(err)
		}
		return b
	}

	wrongProof := engagement("FOCUSED", 0.9, 10, 0.5, 1700000000)
	wrongProof.Metrics.Duration = 11
	upper := engagement("TAKING_NOTES", 0.5, 3, 0.5, 1700000000)
	upper.Proof = strings.ToUpper(upper.Proof)

	tests := []struct {
		name    string
		payload []byte
		want    bool
	}{
		{"valid", marshal(engagement("FOCUSED", 0.9, 10, 0.5, 1700000000)), true},
		{"uppercase proof", marshal(upper), true},
		{"unknown type", marshal(engagement("SLEEPING", 0.9, 10, 0.5, 1700000000)), false},
		{"confidence above one", marshal(engagement("FOCUSED", 1.5, 10, 0.5, 1700000000)), false},
		{"negative intensity", marshal(engagement("FOCUSED", 0.5, 10, -0.1, 1700000000)), false},
		{"zero duration", marshal(engagement("FOCUSED", 0.5, 0, 0.5, 1700000000)), false},
		{"zero timestamp", marshal(engagement("FOCUSED", 0.5, 1, 0.5, 0)), false},
		{"proof mismatch", marshal(wrongProof), false},
		{"not json", []byte("test data"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Verify(tt.payload); got != tt.want {
				t.Errorf("Verify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAll(t *testing.T) {
	attester := newKey(t)
	att, err := NewAttestationPredicate([]string{hex.EncodeToString(attester.PublicKey())})
	if err != nil {
		t.Fatal(err)
	}
	p := All(NonEmpty{}, att)
	if p.Name() != "all(non-empty,attestation)" {
		t.Errorf("Name = %q", p.Name())
	}
	recipient := newKey(t).Address()
	good, _ := Attest(attester, []byte("x"), 5, recipient)
	if !p.Verify(good) {
		t.Error("conjunction rejected a payload both accept")
	}
	if p.Verify([]byte("x")) {
		t.Error("conjunction accepted a payload one rejects")
	}
	if !All().Verify(nil) {
		t.Error("empty conjunction should accept")
	}

	cv, ok := p.(ClaimVerifier)
	if !ok {
		t.Fatal("conjunction does not bind claims")
	}
	digest, ok := cv.VerifyClaim(MintClaim{good, 5, recipient})
	if !ok || digest != StatementDigest([]byte("x"), 5, recipient) {
		t.Errorf("VerifyClaim = %s, %v", digest, ok)
	}
	if _, ok := cv.VerifyClaim(MintClaim{good, 6, recipient}); ok {
		t.Error("conjunction accepted a claim its attestation does not cover")
	}
	if digest, ok := All(NonEmpty{}).(ClaimVerifier).VerifyClaim(MintClaim{Payload: []byte("x")}); !ok || !digest.IsZero() {
		t.Errorf("unbound conjunction = %s, %v", digest, ok)
	}
}

func TestNewPredicate(t *testing.T) {
	key := hex.EncodeToString(newKey(t).PublicKey())
	for _, name := range []string{
		config.PredicateAcceptAll,
		config.PredicateNonEmpty,
		config.PredicateAttestation,
		config.PredicateEngagement,
	} {
		p, err := NewPredicate(name, []string{key})
		if err != nil {
			t.Fatalf("NewPredicate(%q): %v", name, err)
		}
		if p.Name() != name {
			t.Errorf("Name = %q, want %q", p.Name(), name)
		}
	}
	if _, err := NewPredicate("oracle", nil); err == nil {
		t.Error("unknown predicate accepted")
	}
	if _, err := NewPredicate(config.PredicateAttestation, nil); err == nil {
		t.Error("attestation without attesters accepted")
	}
}
