// Package issuer is the token-issuer program. Its single instruction
// creates the token mint and the node-license mint and hands authority
// over both to the verifier program's derived controller, leaving no
// keypair able to mint.
package issuer

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/verimint/config"
	"github.com/Klingon-tech/verimint/internal/ledger"
	klog "github.com/Klingon-tech/verimint/internal/log"
	"github.com/Klingon-tech/verimint/internal/runtime"
	"github.com/Klingon-tech/verimint/internal/verifier"
	"github.com/Klingon-tech/verimint/pkg/pda"
	"github.com/Klingon-tech/verimint/pkg/tx"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// Name is the issuer program name.
const Name = "issuer"

// ID is the issuer program address.
var ID = runtime.ProgramID(Name)

// MintSeed derives the issuer's singleton mint address.
var MintSeed = []byte("mint")

// LicenseSeed derives the node-license mint address.
var LicenseSeed = []byte("license")

// LicenseDecimals is the precision of the license mint; licenses are whole.
const LicenseDecimals = 0

// OpInitialize creates the mints.
const OpInitialize = "initialize"

// InitializeParams are the params of initialize.
type InitializeParams struct {
	VerifierProgram types.Address `json:"verifier_program"`
	Controller      types.Address `json:"controller"`
}

// InitializeResult is returned by a successful initialize.
type InitializeResult struct {
	Mint        types.Address `json:"mint"`
	LicenseMint types.Address `json:"license_mint"`
	Authority   types.Address `json:"authority"`
	Decimals    uint8         `json:"decimals"`
}

// Program implements runtime.Program for the issuer.
type Program struct {
	decimals   uint8
	verifierID types.Address
}

// New creates the issuer program. The mint gets decimals and its authority
// is bound to the controller of verifierID.
func New(decimals uint8, verifierID types.Address) *Program {
	return &Program{decimals: decimals, verifierID: verifierID}
}

// ID returns the issuer program address.
func (p *Program) ID() types.Address { return ID }

// Name returns "issuer".
func (p *Program) Name() string { return Name }

// Execute dispatches an issuer instruction.
func (p *Program) Execute(ctx *runtime.Context, data []byte) (interface{}, error) {
	call, err := runtime.DecodeCall(data)
	if err != nil {
		return nil, err
	}
	if call.Op != OpInitialize {
		return nil, fmt.Errorf("%w: unknown op %q", runtime.ErrInvalidInstruction, call.Op)
	}
	var params InitializeParams
	if err := call.DecodeParams(&params); err != nil {
		return nil, err
	}
	return p.initialize(ctx, &params)
}

func (p *Program) initialize(ctx *runtime.Context, params *InitializeParams) (*InitializeResult, error) {
	if params.VerifierProgram != p.verifierID {
		return nil, fmt.Errorf("%w: verifier program %s, expected %s",
			runtime.ErrInvalidConfiguration, params.VerifierProgram, p.verifierID)
	}
	controller, err := verifier.ControllerAddress(ctx.Scheme(), params.VerifierProgram)
	if err != nil {
		return nil, fmt.Errorf("%w: derive controller: %v", runtime.ErrInternal, err)
	}
	if params.Controller != controller.Address {
		return nil, fmt.Errorf("%w: controller %s, derived %s",
			runtime.ErrInvalidConfiguration, params.Controller, controller.Address)
	}
	if p.decimals > config.MaxDecimals {
		return nil, fmt.Errorf("%w: decimals %d", runtime.ErrInvalidConfiguration, p.decimals)
	}

	mint, err := ctx.FindProgramAddress(MintSeed)
	if err != nil {
		return nil, fmt.Errorf("%w: derive mint: %v", runtime.ErrInternal, err)
	}
	exists, err := ctx.HasAccount(mint.Address)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: mint %s", runtime.ErrAlreadyInitialized, mint.Address)
	}

	if err := createMint(ctx, mint, p.decimals, controller.Address, MintSeed); err != nil {
		return nil, err
	}
	license, err := ctx.FindProgramAddress(LicenseSeed)
	if err != nil {
		return nil, fmt.Errorf("%w: derive license mint: %v", runtime.ErrInternal, err)
	}
	if err := createMint(ctx, license, LicenseDecimals, controller.Address, LicenseSeed); err != nil {
		return nil, err
	}

	var payer string
	if signers := ctx.Signers(); len(signers) > 0 {
		payer = signers[0].String()
	}
	klog.Issuer.Info().
		Str("mint", mint.Address.String()).
		Str("license_mint", license.Address.String()).
		Str("authority", controller.Address.String()).
		Str("payer", payer).
		Msg("Issuer initialized")

	return &InitializeResult{
		Mint:        mint.Address,
		LicenseMint: license.Address,
		Authority:   controller.Address,
		Decimals:    p.decimals,
	}, nil
}

// createMint creates the ledger mint at the derived address addr for seed,
// signing as addr.
func createMint(ctx *runtime.Context, addr pda.Result, decimals uint8, authority types.Address, seed []byte) error {
	ix, err := ledger.CreateMintInstruction(addr.Address, decimals, authority)
	if err != nil {
		return fmt.Errorf("%w: %v", runtime.ErrInternal, err)
	}
	if _, err := ctx.InvokeSigned(ix, seed, []byte{addr.Bump}); err != nil {
		if errors.Is(err, ledger.ErrMintExists) {
			return fmt.Errorf("%w: %v", runtime.ErrAlreadyInitialized, err)
		}
		return err
	}
	return nil
}

// MintAddress derives the issuer's mint address.
func MintAddress(s pda.Scheme) (pda.Result, error) {
	return pda.Find(s, [][]byte{MintSeed}, ID)
}

// LicenseMintAddress derives the issuer's node-license mint address.
func LicenseMintAddress(s pda.Scheme) (pda.Result, error) {
	return pda.Find(s, [][]byte{LicenseSeed}, ID)
}

// InitializeInstruction builds an initialize instruction.
func InitializeInstruction(verifierProgram, controller types.Address) (tx.Instruction, error) {
	return runtime.NewInstruction(ID, OpInitialize, InitializeParams{
		VerifierProgram: verifierProgram,
		Controller:      controller,
	})
}
