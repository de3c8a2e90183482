// Package verifier is the verifier program. It holds a singleton
// configuration bound to one mint and owns the derived controller that is
// that mint's authority. verify_and_mint runs a pluggable predicate over an
// external payload and, only if it passes, signs the ledger mint as the
// controller. The controller also holds the node-license mint; licensed
// nodes can be required to co-sign every verified mint.
package verifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/verimint/config"
	"github.com/Klingon-tech/verimint/internal/ledger"
	klog "github.com/Klingon-tech/verimint/internal/log"
	"github.com/Klingon-tech/verimint/internal/runtime"
	"github.com/Klingon-tech/verimint/pkg/pda"
	"github.com/Klingon-tech/verimint/pkg/tx"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// Name is the verifier program name.
const Name = "verifier"

// ID is the verifier program address.
var ID = runtime.ProgramID(Name)

// Seed derives both the configuration address and the mint controller.
var Seed = []byte("verifier")

// Derivation seeds of the verifier's other accounts.
var (
	AttestationSeed = []byte("attestation")
	NodeSeed        = []byte("node")
)

// Seeds of the issuer program's mints. The verifier re-derives them to
// check what initialize is asked to bind.
var (
	issuerMintSeed    = []byte("mint")
	issuerLicenseSeed = []byte("license")
)

// Account kinds.
const (
	KindConfig             = "verifier_config"
	KindAttestationReceipt = "attestation_receipt"
	KindNode               = "node"
)

// Instruction ops.
const (
	OpInitialize        = "initialize"
	OpVerifyAndMint     = "verify_and_mint"
	OpCreateNodeLicense = "create_node_license"
)

// MaxNodeIDLength bounds the node identifier of a license.
const MaxNodeIDLength = 64

// Config is the verifier's singleton configuration record.
type Config struct {
	BoundMint      types.Address `json:"bound_mint"`
	LicenseMint    types.Address `json:"license_mint"`
	Authority      types.Address `json:"authority"`
	RequireLicense bool          `json:"require_license"`
	Bump           uint8         `json:"bump"`
	Initialized    bool          `json:"initialized"`
}

// InitializeParams are the params of initialize. Config is optional; when
// set it must equal the derived configuration address.
type InitializeParams struct {
	Config         types.Address `json:"config"`
	Mint           types.Address `json:"mint"`
	Authority      types.Address `json:"authority"`
	RequireLicense bool          `json:"require_license"`
}

// VerifyAndMintParams are the params of verify_and_mint. NodeLicense is a
// token account of the license mint; when set, or when the configuration
// requires a license, its owner must sign.
type VerifyAndMintParams struct {
	Payload     []byte        `json:"payload"`
	Amount      uint64        `json:"amount"`
	Recipient   types.Address `json:"recipient"`
	NodeLicense types.Address `json:"node_license"`
}

// CreateNodeLicenseParams are the params of create_node_license.
type CreateNodeLicenseParams struct {
	Owner  types.Address `json:"owner"`
	NodeID string        `json:"node_id"`
}

// NodeRecord tracks one licensed node.
type NodeRecord struct {
	Owner             types.Address `json:"owner"`
	NodeID            string        `json:"node_id"`
	LicenseAccount    types.Address `json:"license_account"`
	VerificationCount uint64        `json:"verification_count"`
	RewardsEarned     uint64        `json:"rewards_earned"`
}

// AttestationReceipt marks a bound approval as spent.
type AttestationReceipt struct {
	Digest    types.Hash    `json:"digest"`
	Recipient types.Address `json:"recipient"`
	Amount    uint64        `json:"amount"`
	Tx        types.Hash    `json:"tx"`
}

// MintResult is returned by a successful verify_and_mint.
type MintResult struct {
	Recipient types.Address `json:"recipient"`
	Amount    uint64        `json:"amount"`
	Balance   uint64        `json:"balance"`
}

// Program implements runtime.Program for the verifier.
type Program struct {
	predicate Predicate
	bootstrap map[types.Address]bool
	issuerID  types.Address
}

// New creates the verifier program. bootstrap lists the authorities that
// may initialize it; an empty list accepts any signer. Only the mints of
// the issuer program issuerID can be bound.
func New(predicate Predicate, bootstrap []types.Address, issuerID types.Address) *Program {
	p := &Program{
		predicate: predicate,
		bootstrap: make(map[types.Address]bool, len(bootstrap)),
		issuerID:  issuerID,
	}
	for _, a := range bootstrap {
		p.bootstrap[a] = true
	}
	return p
}

// ID returns the verifier program address.
func (p *Program) ID() types.Address { return ID }

// Name returns "verifier".
func (p *Program) Name() string { return Name }

// Predicate returns the configured payload predicate.
func (p *Program) Predicate() Predicate { return p.predicate }

// Execute dispatches a verifier instruction.
func (p *Program) Execute(ctx *runtime.Context, data []byte) (interface{}, error) {
	call, err := runtime.DecodeCall(data)
	if err != nil {
		return nil, err
	}
	switch call.Op {
	case OpInitialize:
		var params InitializeParams
		if err := call.DecodeParams(&params); err != nil {
			return nil, err
		}
		return p.initialize(ctx, &params)
	case OpVerifyAndMint:
		var params VerifyAndMintParams
		if err := call.DecodeParams(&params); err != nil {
			return nil, err
		}
		return p.verifyAndMint(ctx, &params)
	case OpCreateNodeLicense:
		var params CreateNodeLicenseParams
		if err := call.DecodeParams(&params); err != nil {
			return nil, err
		}
		return p.createNodeLicense(ctx, &params)
	default:
		return nil, fmt.Errorf("%w: unknown op %q", runtime.ErrInvalidInstruction, call.Op)
	}
}

func (p *Program) initialize(ctx *runtime.Context, params *InitializeParams) (*Config, error) {
	if !ctx.IsSigner(params.Authority) {
		return nil, fmt.Errorf("%w: authority %s did not sign", runtime.ErrUnauthorized, params.Authority)
	}
	if len(p.bootstrap) > 0 && !p.bootstrap[params.Authority] {
		return nil, fmt.Errorf("%w: %s is not a bootstrap authority", runtime.ErrUnauthorized, params.Authority)
	}

	controller, err := ctx.FindProgramAddress(Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: derive controller: %v", runtime.ErrInternal, err)
	}
	if !params.Config.IsZero() && params.Config != controller.Address {
		return nil, fmt.Errorf("%w: config %s, derived %s",
			runtime.ErrInvalidConfiguration, params.Config, controller.Address)
	}
	exists, err := ctx.HasAccount(controller.Address)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: config %s", runtime.ErrAlreadyInitialized, controller.Address)
	}

	issued, err := IssuerMintAddress(ctx.Scheme(), p.issuerID)
	if err != nil {
		return nil, fmt.Errorf("%w: derive issuer mint: %v", runtime.ErrInternal, err)
	}
	if params.Mint != issued.Address {
		return nil, fmt.Errorf("%w: mint %s is not the issuer mint %s",
			runtime.ErrMintMismatch, params.Mint, issued.Address)
	}
	mint, err := controlledMint(ctx, params.Mint, controller.Address)
	if err != nil {
		return nil, err
	}
	license, err := IssuerLicenseAddress(ctx.Scheme(), p.issuerID)
	if err != nil {
		return nil, fmt.Errorf("%w: derive license mint: %v", runtime.ErrInternal, err)
	}
	if _, err := controlledMint(ctx, license.Address, controller.Address); err != nil {
		return nil, err
	}

	cfg := &Config{
		BoundMint:      mint.Address,
		LicenseMint:    license.Address,
		Authority:      params.Authority,
		RequireLicense: params.RequireLicense,
		Bump:           controller.Bump,
		Initialized:    true,
	}
	if _, err := ctx.CreateDerivedAccount(pda.WithBump([][]byte{Seed}, controller.Bump), KindConfig, cfg); err != nil {
		return nil, err
	}

	klog.Verifier.Info().
		Str("config", controller.Address.String()).
		Str("mint", cfg.BoundMint.String()).
		Str("license_mint", cfg.LicenseMint.String()).
		Str("authority", cfg.Authority.String()).
		Bool("require_license", cfg.RequireLicense).
		Str("predicate", p.predicate.Name()).
		Msg("Verifier initialized")
	return cfg, nil
}

// controlledMint loads the mint at addr and checks that controller is its
// authority.
func controlledMint(r runtime.AccountReader, addr, controller types.Address) (*ledger.Mint, error) {
	mint, err := ledger.GetMint(r, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runtime.ErrMintMismatch, err)
	}
	if mint.MintAuthority != controller {
		return nil, fmt.Errorf("%w: mint %s authority %s, controller %s",
			runtime.ErrMintMismatch, addr, mint.MintAuthority, controller)
	}
	return mint, nil
}

func (p *Program) verifyAndMint(ctx *runtime.Context, params *VerifyAndMintParams) (*MintResult, error) {
	addr, err := ctx.FindProgramAddress(Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: derive config: %v", runtime.ErrInternal, err)
	}
	cfg, err := GetConfig(ctx, addr.Address)
	if err != nil {
		return nil, err
	}

	if params.Amount == 0 {
		return nil, fmt.Errorf("%w: amount must be positive", runtime.ErrInvalidAmount)
	}

	digest, ok := verifyClaim(p.predicate, MintClaim{
		Payload:   params.Payload,
		Amount:    params.Amount,
		Recipient: params.Recipient,
	})
	if !ok {
		klog.Verifier.Warn().
			Str("predicate", p.predicate.Name()).
			Int("payload_len", len(params.Payload)).
			Str("recipient", params.Recipient.String()).
			Msg("Payload rejected")
		return nil, fmt.Errorf("%w: %s rejected payload", runtime.ErrVerificationFailed, p.predicate.Name())
	}
	var receipt pda.Result
	if !digest.IsZero() {
		receipt, err = ctx.FindProgramAddress(AttestationSeed, digest[:])
		if err != nil {
			return nil, fmt.Errorf("%w: derive receipt: %v", runtime.ErrInternal, err)
		}
		used, err := ctx.HasAccount(receipt.Address)
		if err != nil {
			return nil, err
		}
		if used {
			klog.Verifier.Warn().
				Str("digest", digest.String()).
				Str("recipient", params.Recipient.String()).
				Msg("Attestation replayed")
			return nil, fmt.Errorf("%w: attestation %s already used", runtime.ErrVerificationFailed, digest)
		}
	}

	var license *ledger.TokenAccount
	if cfg.RequireLicense || !params.NodeLicense.IsZero() {
		license, err = checkLicense(ctx, cfg, params.NodeLicense)
		if err != nil {
			return nil, err
		}
	}

	recipient, err := ledger.GetAccount(ctx, params.Recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runtime.ErrInvalidRecipient, err)
	}
	if recipient.Mint != cfg.BoundMint {
		return nil, fmt.Errorf("%w: account %s holds mint %s, bound mint %s",
			runtime.ErrInvalidRecipient, recipient.Address, recipient.Mint, cfg.BoundMint)
	}

	mint, err := ledger.GetMint(ctx, cfg.BoundMint)
	if err != nil {
		return nil, err
	}
	if params.Amount > math.MaxUint64-mint.Supply || mint.Supply+params.Amount > config.MaxTokenAmount {
		return nil, fmt.Errorf("%w: supply %d + %d", runtime.ErrOverflow, mint.Supply, params.Amount)
	}

	if !digest.IsZero() {
		rec := &AttestationReceipt{
			Digest:    digest,
			Recipient: recipient.Address,
			Amount:    params.Amount,
			Tx:        ctx.TxHash(),
		}
		seeds := pda.WithBump([][]byte{AttestationSeed, digest[:]}, receipt.Bump)
		if _, err := ctx.CreateDerivedAccount(seeds, KindAttestationReceipt, rec); err != nil {
			return nil, err
		}
	}

	updated, err := p.mintTo(ctx, cfg, cfg.BoundMint, recipient.Address, params.Amount)
	if err != nil {
		return nil, err
	}
	if license != nil {
		if err := recordVerification(ctx, license.Owner, params.Amount); err != nil {
			return nil, err
		}
	}

	klog.Verifier.Info().
		Str("recipient", updated.Address.String()).
		Uint64("amount", params.Amount).
		Uint64("balance", updated.Amount).
		Msg("Verified mint")
	return &MintResult{
		Recipient: updated.Address,
		Amount:    params.Amount,
		Balance:   updated.Amount,
	}, nil
}

// checkLicense requires addr to be a funded license account whose owner
// signed.
func checkLicense(ctx *runtime.Context, cfg *Config, addr types.Address) (*ledger.TokenAccount, error) {
	if addr.IsZero() {
		return nil, fmt.Errorf("%w: license required", runtime.ErrInvalidNodeLicense)
	}
	acct, err := ledger.GetAccount(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runtime.ErrInvalidNodeLicense, err)
	}
	if acct.Mint != cfg.LicenseMint || acct.Amount == 0 {
		return nil, fmt.Errorf("%w: %s holds %d of mint %s",
			runtime.ErrInvalidNodeLicense, addr, acct.Amount, acct.Mint)
	}
	if !ctx.IsSigner(acct.Owner) {
		return nil, fmt.Errorf("%w: license owner %s did not sign", runtime.ErrInvalidNodeLicense, acct.Owner)
	}
	return acct, nil
}

// recordVerification credits a licensed node's record, if it has one.
func recordVerification(ctx *runtime.Context, owner types.Address, amount uint64) error {
	addr, err := NodeAddress(ctx.Scheme(), owner)
	if err != nil {
		return fmt.Errorf("%w: derive node: %v", runtime.ErrInternal, err)
	}
	node, err := GetNode(ctx, addr.Address)
	if errors.Is(err, runtime.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	node.VerificationCount++
	node.RewardsEarned += amount
	return ctx.WriteAccount(addr.Address, KindNode, node)
}

// mintTo mints amount of mint to account, signed by the controller.
func (p *Program) mintTo(ctx *runtime.Context, cfg *Config, mint, account types.Address, amount uint64) (*ledger.TokenAccount, error) {
	ix, err := ledger.MintToInstruction(mint, account, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runtime.ErrInternal, err)
	}
	raw, err := ctx.InvokeSigned(ix, Seed, []byte{cfg.Bump})
	if err != nil {
		return nil, err
	}
	var updated ledger.TokenAccount
	if err := json.Unmarshal(raw, &updated); err != nil {
		return nil, fmt.Errorf("%w: decode mint_to result: %v", runtime.ErrInternal, err)
	}
	return &updated, nil
}

func (p *Program) createNodeLicense(ctx *runtime.Context, params *CreateNodeLicenseParams) (*NodeRecord, error) {
	addr, err := ctx.FindProgramAddress(Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: derive config: %v", runtime.ErrInternal, err)
	}
	cfg, err := GetConfig(ctx, addr.Address)
	if err != nil {
		return nil, err
	}
	if !ctx.IsSigner(cfg.Authority) {
		return nil, fmt.Errorf("%w: authority %s did not sign", runtime.ErrUnauthorized, cfg.Authority)
	}
	if cfg.LicenseMint.IsZero() {
		return nil, fmt.Errorf("%w: no license mint bound", runtime.ErrInvalidConfiguration)
	}
	if params.Owner.IsZero() {
		return nil, fmt.Errorf("%w: missing owner", runtime.ErrInvalidInstruction)
	}
	if params.NodeID == "" || len(params.NodeID) > MaxNodeIDLength {
		return nil, fmt.Errorf("%w: node id must be 1-%d bytes", runtime.ErrInvalidInstruction, MaxNodeIDLength)
	}

	nodeAddr, err := ctx.FindProgramAddress(NodeSeed, params.Owner[:])
	if err != nil {
		return nil, fmt.Errorf("%w: derive node: %v", runtime.ErrInternal, err)
	}
	exists, err := ctx.HasAccount(nodeAddr.Address)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: node %s already licensed", runtime.ErrAlreadyInitialized, params.Owner)
	}

	acct, err := ledger.AccountAddress(ctx.Scheme(), params.Owner, cfg.LicenseMint)
	if err != nil {
		return nil, fmt.Errorf("%w: derive license account: %v", runtime.ErrInternal, err)
	}
	has, err := ctx.HasAccount(acct.Address)
	if err != nil {
		return nil, err
	}
	if !has {
		ix, err := ledger.CreateAccountInstruction(cfg.LicenseMint, params.Owner)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", runtime.ErrInternal, err)
		}
		if _, err := ctx.Invoke(ix); err != nil {
			return nil, err
		}
	}
	if _, err := p.mintTo(ctx, cfg, cfg.LicenseMint, acct.Address, 1); err != nil {
		return nil, err
	}

	node := &NodeRecord{
		Owner:          params.Owner,
		NodeID:         params.NodeID,
		LicenseAccount: acct.Address,
	}
	seeds := pda.WithBump([][]byte{NodeSeed, params.Owner[:]}, nodeAddr.Bump)
	if _, err := ctx.CreateDerivedAccount(seeds, KindNode, node); err != nil {
		return nil, err
	}

	klog.Verifier.Info().
		Str("owner", node.Owner.String()).
		Str("node_id", node.NodeID).
		Str("license", node.LicenseAccount.String()).
		Msg("Node license issued")
	return node, nil
}

// GetNode loads the node record at addr. A missing record wraps
// runtime.ErrAccountNotFound.
func GetNode(r runtime.AccountReader, addr types.Address) (*NodeRecord, error) {
	acct, err := r.Account(addr)
	if err != nil {
		return nil, err
	}
	if acct.Owner != ID || acct.Kind != KindNode {
		return nil, fmt.Errorf("%w: %s is not a node record", runtime.ErrWrongKind, addr)
	}
	var node NodeRecord
	if err := acct.Decode(KindNode, &node); err != nil {
		return nil, fmt.Errorf("%w: %v", runtime.ErrInternal, err)
	}
	return &node, nil
}

// GetConfig loads the verifier configuration at addr.
func GetConfig(r runtime.AccountReader, addr types.Address) (*Config, error) {
	acct, err := r.Account(addr)
	if err != nil {
		if errors.Is(err, runtime.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: verifier config %s", runtime.ErrUninitialized, addr)
		}
		return nil, err
	}
	if acct.Owner != ID || acct.Kind != KindConfig {
		return nil, fmt.Errorf("%w: %s is not a verifier config", runtime.ErrUninitialized, addr)
	}
	var cfg Config
	if err := acct.Decode(KindConfig, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", runtime.ErrInternal, err)
	}
	if !cfg.Initialized {
		return nil, fmt.Errorf("%w: verifier config %s", runtime.ErrUninitialized, addr)
	}
	return &cfg, nil
}

// ControllerAddress derives the controller (and configuration) address of
// the verifier program with ID program.
func ControllerAddress(s pda.Scheme, program types.Address) (pda.Result, error) {
	return pda.Find(s, [][]byte{Seed}, program)
}

// ConfigAddress derives this deployment's configuration address.
func ConfigAddress(s pda.Scheme) (pda.Result, error) {
	return ControllerAddress(s, ID)
}

// IssuerMintAddress derives the token mint of the issuer program with ID
// issuer.
func IssuerMintAddress(s pda.Scheme, issuer types.Address) (pda.Result, error) {
	return pda.Find(s, [][]byte{issuerMintSeed}, issuer)
}

// IssuerLicenseAddress derives the node-license mint of the issuer program
// with ID issuer.
func IssuerLicenseAddress(s pda.Scheme, issuer types.Address) (pda.Result, error) {
	return pda.Find(s, [][]byte{issuerLicenseSeed}, issuer)
}

// NodeAddress derives the node record address of owner.
func NodeAddress(s pda.Scheme, owner types.Address) (pda.Result, error) {
	return pda.Find(s, [][]byte{NodeSeed, owner[:]}, ID)
}

// ReceiptAddress derives the address that marks the approval digest spent.
func ReceiptAddress(s pda.Scheme, digest types.Hash) (pda.Result, error) {
	return pda.Find(s, [][]byte{AttestationSeed, digest[:]}, ID)
}

// InitializeInstruction builds an initialize instruction. The authority
// must sign the enclosing transaction.
func InitializeInstruction(configAddr, mint, authority types.Address) (tx.Instruction, error) {
	return runtime.NewInstruction(ID, OpInitialize, InitializeParams{
		Config:    configAddr,
		Mint:      mint,
		Authority: authority,
	})
}

// InitializeLicensedInstruction is InitializeInstruction for a deployment
// where every verify_and_mint must present a node license.
func InitializeLicensedInstruction(configAddr, mint, authority types.Address) (tx.Instruction, error) {
	return runtime.NewInstruction(ID, OpInitialize, InitializeParams{
		Config:         configAddr,
		Mint:           mint,
		Authority:      authority,
		RequireLicense: true,
	})
}

// VerifyAndMintInstruction builds a verify_and_mint instruction.
func VerifyAndMintInstruction(payload []byte, amount uint64, recipient types.Address) (tx.Instruction, error) {
	return runtime.NewInstruction(ID, OpVerifyAndMint, VerifyAndMintParams{
		Payload:   payload,
		Amount:    amount,
		Recipient: recipient,
	})
}

// LicensedVerifyAndMintInstruction is VerifyAndMintInstruction presenting
// the node license account license. Its owner must sign.
func LicensedVerifyAndMintInstruction(payload []byte, amount uint64, recipient, license types.Address) (tx.Instruction, error) {
	return runtime.NewInstruction(ID, OpVerifyAndMint, VerifyAndMintParams{
		Payload:     payload,
		Amount:      amount,
		Recipient:   recipient,
		NodeLicense: license,
	})
}

// CreateNodeLicenseInstruction builds a create_node_license instruction.
// The verifier authority must sign.
func CreateNodeLicenseInstruction(owner types.Address, nodeID string) (tx.Instruction, error) {
	return runtime.NewInstruction(ID, OpCreateNodeLicense, CreateNodeLicenseParams{
		Owner:  owner,
		NodeID: nodeID,
	})
}
