package verifier

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Klingon-tech/verimint/config"
	"github.com/Klingon-tech/verimint/pkg/crypto"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// Predicate decides whether a verification payload authorizes a mint.
// Implementations must be deterministic and side-effect free.
type Predicate interface {
	Name() string
	Verify(payload []byte) bool
}

// AcceptAll accepts every payload.
type AcceptAll struct{}

func (AcceptAll) Name() string         { return config.PredicateAcceptAll }
func (AcceptAll) Verify(_ []byte) bool { return true }

// NonEmpty accepts any payload with at least one byte.
type NonEmpty struct{}

func (NonEmpty) Name() string               { return config.PredicateNonEmpty }
func (NonEmpty) Verify(payload []byte) bool { return len(payload) > 0 }

// MintClaim is the mint a verify_and_mint asks a predicate to authorize.
type MintClaim struct {
	Payload   []byte
	Amount    uint64
	Recipient types.Address
}

// ClaimVerifier is a Predicate whose approval is bound to a specific claim.
// The returned digest identifies the approval; the verifier accepts each
// nonzero digest once.
type ClaimVerifier interface {
	Predicate
	VerifyClaim(claim MintClaim) (types.Hash, bool)
}

// verifyClaim runs pred over claim, binding it when pred supports that.
func verifyClaim(pred Predicate, claim MintClaim) (types.Hash, bool) {
	if cv, ok := pred.(ClaimVerifier); ok {
		return cv.VerifyClaim(claim)
	}
	return types.Hash{}, pred.Verify(claim.Payload)
}

// attestationDomain prefixes every signed attestation statement.
var attestationDomain = []byte("verimint/attestation/v1")

// Attestation is an attester's signed approval to mint Amount to Recipient
// on the strength of Data.
type Attestation struct {
	Data      string        `json:"data"` // hex
	Amount    uint64        `json:"amount"`
	Recipient types.Address `json:"recipient"`
	PubKey    string        `json:"pubkey"`    // hex x-only key
	Signature string        `json:"signature"` // hex Schnorr signature over StatementDigest
}

// StatementDigest is the hash an attester signs.
func StatementDigest(data []byte, amount uint64, recipient types.Address) types.Hash {
	var amt [8]byte
	binary.BigEndian.PutUint64(amt[:], amount)
	return crypto.HashParts(attestationDomain, recipient[:], amt[:], data)
}

// AttestationPredicate accepts payloads signed by a configured attester.
type AttestationPredicate struct {
	attesters map[types.Address]bool
}

// NewAttestationPredicate creates a predicate trusting the given hex keys.
func NewAttestationPredicate(keys []string) (*AttestationPredicate, error) {
	p := &AttestationPredicate{attesters: make(map[types.Address]bool, len(keys))}
	for i, k := range keys {
		b, err := hex.DecodeString(strings.TrimSpace(k))
		if err != nil || len(b) != crypto.PublicKeySize {
			return nil, fmt.Errorf("attester %d: must be %d-byte hex key", i, crypto.PublicKeySize)
		}
		if !crypto.IsOnCurve(b) {
			return nil, fmt.Errorf("attester %d: not a valid public key", i)
		}
		var a types.Address
		copy(a[:], b)
		p.attesters[a] = true
	}
	if len(p.attesters) == 0 {
		return nil, fmt.Errorf("attestation predicate needs at least one attester")
	}
	return p, nil
}

func (p *AttestationPredicate) Name() string { return config.PredicateAttestation }

// Verify checks that payload is an attestation signed by a trusted key. It
// does not check what the attestation authorizes; see VerifyClaim.
func (p *AttestationPredicate) Verify(payload []byte) bool {
	_, _, ok := p.open(payload)
	return ok
}

// VerifyClaim accepts an attestation only for the amount and recipient it
// was signed for.
func (p *AttestationPredicate) VerifyClaim(claim MintClaim) (types.Hash, bool) {
	att, digest, ok := p.open(claim.Payload)
	if !ok || att.Amount != claim.Amount || att.Recipient != claim.Recipient {
		return types.Hash{}, false
	}
	return digest, true
}

func (p *AttestationPredicate) open(payload []byte) (*Attestation, types.Hash, bool) {
	var att Attestation
	if err := json.Unmarshal(payload, &att); err != nil {
		return nil, types.Hash{}, false
	}
	data, err := hex.DecodeString(att.Data)
	if err != nil {
		return nil, types.Hash{}, false
	}
	pub, err := hex.DecodeString(att.PubKey)
	if err != nil || len(pub) != crypto.PublicKeySize {
		return nil, types.Hash{}, false
	}
	sig, err := hex.DecodeString(att.Signature)
	if err != nil {
		return nil, types.Hash{}, false
	}
	var signer types.Address
	copy(signer[:], pub)
	if !p.attesters[signer] {
		return nil, types.Hash{}, false
	}
	digest := StatementDigest(data, att.Amount, att.Recipient)
	if !crypto.VerifySignature(digest[:], sig, pub) {
		return nil, types.Hash{}, false
	}
	return &att, digest, true
}

// Attest signs an approval to mint amount to recipient on the strength of
// data and returns the encoded payload.
func Attest(key crypto.Signer, data []byte, amount uint64, recipient types.Address) ([]byte, error) {
	digest := StatementDigest(data, amount, recipient)
	sig, err := key.Sign(digest[:])
	if err != nil {
		return nil, fmt.Errorf("attest: %w", err)
	}
	return json.Marshal(Attestation{
		Data:      hex.EncodeToString(data),
		Amount:    amount,
		Recipient: recipient,
		PubKey:    hex.EncodeToString(key.PublicKey()),
		Signature: hex.EncodeToString(sig),
	})
}

// EngagementTypes are the engagement classes an analytics client reports.
var EngagementTypes = []string{
	"YAWNING",
	"LOOKING_AWAY",
	"FOCUSED",
	"DISTRACTED",
	"CONFUSED",
	"UNDERSTANDING",
	"TAKING_NOTES",
	"INACTIVE",
}

// EngagementMetrics are the measured values of one engagement.
type EngagementMetrics struct {
	Confidence float64 `json:"confidence"`
	Duration   float64 `json:"duration"`
	Intensity  float64 `json:"intensity"`
}

// Engagement is an engagement record with its proof digest.
type Engagement struct {
	EngagementType string            `json:"engagement_type"`
	Metrics        EngagementMetrics `json:"metrics"`
	Timestamp      int64             `json:"timestamp"`
	Proof          string            `json:"proof"`
}

// ProofDigest returns the hex SHA-256 of
// "type:confidence:duration:intensity:timestamp", with floats written in
// shortest round-trip form ("0.85", "5.0", "1e-05").
func (e *Engagement) ProofDigest() string {
	s := e.EngagementType + ":" +
		formatFloat(e.Metrics.Confidence) + ":" +
		formatFloat(e.Metrics.Duration) + ":" +
		formatFloat(e.Metrics.Intensity) + ":" +
		strconv.FormatInt(e.Timestamp, 10)
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// EngagementPredicate accepts well-formed engagement records whose proof
// matches their contents.
type EngagementPredicate struct {
	types map[string]bool
}

// NewEngagementPredicate creates the predicate for the known engagement types.
func NewEngagementPredicate() *EngagementPredicate {
	p := &EngagementPredicate{types: make(map[string]bool, len(EngagementTypes))}
	for _, t := range EngagementTypes {
		p.types[t] = true
	}
	return p
}

func (p *EngagementPredicate) Name() string { return config.PredicateEngagement }

func (p *EngagementPredicate) Verify(payload []byte) bool {
	var e Engagement
	if err := json.Unmarshal(payload, &e); err != nil {
		return false
	}
	if !p.types[e.EngagementType] {
		return false
	}
	m := e.Metrics
	if !inUnit(m.Confidence) || !inUnit(m.Intensity) {
		return false
	}
	if !(m.Duration > 0) || math.IsInf(m.Duration, 0) {
		return false
	}
	if e.Timestamp <= 0 {
		return false
	}
	return strings.EqualFold(e.Proof, e.ProofDigest())
}

func inUnit(f float64) bool {
	return f >= 0 && f <= 1
}

// allPredicate is the conjunction of its parts.
type allPredicate struct {
	parts []Predicate
}

// All accepts a payload only if every predicate accepts it.
func All(parts ...Predicate) Predicate {
	return &allPredicate{parts: parts}
}

func (a *allPredicate) Name() string {
	names := make([]string, len(a.parts))
	for i, p := range a.parts {
		names[i] = p.Name()
	}
	return "all(" + strings.Join(names, ",") + ")"
}

func (a *allPredicate) Verify(payload []byte) bool {
	for _, p := range a.parts {
		if !p.Verify(payload) {
			return false
		}
	}
	return true
}

// VerifyClaim binds the claim through every part that supports it. Several
// bound approvals combine into one digest.
func (a *allPredicate) VerifyClaim(claim MintClaim) (types.Hash, bool) {
	var bound []types.Hash
	for _, p := range a.parts {
		d, ok := verifyClaim(p, claim)
		if !ok {
			return types.Hash{}, false
		}
		if !d.IsZero() {
			bound = append(bound, d)
		}
	}
	switch len(bound) {
	case 0:
		return types.Hash{}, true
	case 1:
		return bound[0], true
	}
	parts := make([][]byte, len(bound))
	for i := range bound {
		parts[i] = bound[i][:]
	}
	return crypto.HashParts(parts...), true
}

// NewPredicate builds the named predicate. attesters is only used by the
// attestation predicate.
func NewPredicate(name string, attesters []string) (Predicate, error) {
	switch name {
	case config.PredicateAcceptAll:
		return AcceptAll{}, nil
	case config.PredicateNonEmpty:
		return NonEmpty{}, nil
	case config.PredicateAttestation:
		p, err := NewAttestationPredicate(attesters)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.PredicateEngagement:
		return NewEngagementPredicate(), nil
	default:
		return nil, fmt.Errorf("unknown predicate %q", name)
	}
}
