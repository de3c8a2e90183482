// Package ledger is the token ledger program: mint records, token accounts,
// supply and balances. It offers no instruction that changes a mint's
// authority, so an authority set at creation is permanent.
package ledger

import (
	"fmt"
	"math"

	"github.com/Klingon-tech/verimint/config"
	klog "github.com/Klingon-tech/verimint/internal/log"
	"github.com/Klingon-tech/verimint/internal/runtime"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// ID is the ledger program address.
var ID = runtime.ProgramID(Name)

// Name is the ledger program name.
const Name = "ledger"

// Account kinds.
const (
	KindMint         = "mint"
	KindTokenAccount = "token_account"
)

// Instruction ops.
const (
	OpCreateMint    = "create_mint"
	OpCreateAccount = "create_account"
	OpMintTo        = "mint_to"
)

// Mint is a token mint record.
type Mint struct {
	Address       types.Address `json:"address"`
	Decimals      uint8         `json:"decimals"`
	Supply        uint64        `json:"supply"`
	MintAuthority types.Address `json:"mint_authority"`
	Initialized   bool          `json:"initialized"`
}

// TokenAccount holds one owner's balance of one mint.
type TokenAccount struct {
	Address types.Address `json:"address"`
	Mint    types.Address `json:"mint"`
	Owner   types.Address `json:"owner"`
	Amount  uint64        `json:"amount"`
}

// CreateMintParams are the params of create_mint.
type CreateMintParams struct {
	Mint      types.Address `json:"mint"`
	Decimals  uint8         `json:"decimals"`
	Authority types.Address `json:"authority"`
}

// CreateAccountParams are the params of create_account.
type CreateAccountParams struct {
	Mint  types.Address `json:"mint"`
	Owner types.Address `json:"owner"`
}

// MintToParams are the params of mint_to.
type MintToParams struct {
	Mint    types.Address `json:"mint"`
	Account types.Address `json:"account"`
	Amount  uint64        `json:"amount"`
}

// Program implements runtime.Program for the ledger.
type Program struct{}

// New creates the ledger program.
func New() *Program {
	return &Program{}
}

// ID returns the ledger program address.
func (p *Program) ID() types.Address { return ID }

// Name returns "ledger".
func (p *Program) Name() string { return Name }

// Execute dispatches a ledger instruction.
func (p *Program) Execute(ctx *runtime.Context, data []byte) (interface{}, error) {
	call, err := runtime.DecodeCall(data)
	if err != nil {
		return nil, err
	}
	switch call.Op {
	case OpCreateMint:
		var params CreateMintParams
		if err := call.DecodeParams(&params); err != nil {
			return nil, err
		}
		return createMint(ctx, &params)
	case OpCreateAccount:
		var params CreateAccountParams
		if err := call.DecodeParams(&params); err != nil {
			return nil, err
		}
		return createAccount(ctx, &params)
	case OpMintTo:
		var params MintToParams
		if err := call.DecodeParams(&params); err != nil {
			return nil, err
		}
		return mintTo(ctx, &params)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownInstruction, call.Op)
	}
}

func createMint(ctx *runtime.Context, params *CreateMintParams) (*Mint, error) {
	if !ctx.IsSigner(params.Mint) {
		return nil, fmt.Errorf("%w: %s", ErrMintNotSigner, params.Mint)
	}
	if params.Decimals > config.MaxDecimals {
		return nil, fmt.Errorf("%w: %d, max %d", ErrInvalidDecimals, params.Decimals, config.MaxDecimals)
	}
	if params.Authority.IsZero() {
		return nil, ErrZeroAuthority
	}
	exists, err := ctx.HasAccount(params.Mint)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrMintExists, params.Mint)
	}

	mint := &Mint{
		Address:       params.Mint,
		Decimals:      params.Decimals,
		MintAuthority: params.Authority,
		Initialized:   true,
	}
	if err := ctx.CreateAccount(params.Mint, KindMint, mint); err != nil {
		return nil, err
	}

	klog.Ledger.Info().
		Str("mint", mint.Address.String()).
		Str("authority", mint.MintAuthority.String()).
		Uint8("decimals", mint.Decimals).
		Msg("Mint created")
	return mint, nil
}

func createAccount(ctx *runtime.Context, params *CreateAccountParams) (*TokenAccount, error) {
	if _, err := GetMint(ctx, params.Mint); err != nil {
		return nil, err
	}
	res, err := ctx.FindProgramAddress(accountSeeds(params.Owner, params.Mint)...)
	if err != nil {
		return nil, fmt.Errorf("%w: derive token account: %v", runtime.ErrInternal, err)
	}
	exists, err := ctx.HasAccount(res.Address)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, res.Address)
	}

	acct := &TokenAccount{
		Address: res.Address,
		Mint:    params.Mint,
		Owner:   params.Owner,
	}
	seeds := append(accountSeeds(params.Owner, params.Mint), []byte{res.Bump})
	if _, err := ctx.CreateDerivedAccount(seeds, KindTokenAccount, acct); err != nil {
		return nil, err
	}

	klog.Ledger.Debug().
		Str("account", acct.Address.String()).
		Str("owner", acct.Owner.String()).
		Msg("Token account created")
	return acct, nil
}

func mintTo(ctx *runtime.Context, params *MintToParams) (*TokenAccount, error) {
	if params.Amount == 0 {
		return nil, ErrZeroAmount
	}
	mint, err := GetMint(ctx, params.Mint)
	if err != nil {
		return nil, err
	}
	if !ctx.IsSigner(mint.MintAuthority) {
		return nil, fmt.Errorf("%w: %s", ErrMissingAuthority, mint.MintAuthority)
	}
	acct, err := GetAccount(ctx, params.Account)
	if err != nil {
		return nil, err
	}
	if acct.Mint != mint.Address {
		return nil, fmt.Errorf("%w: account %s, mint %s", ErrAccountMismatch, acct.Address, mint.Address)
	}

	if err := checkAdd(mint.Supply, params.Amount); err != nil {
		return nil, fmt.Errorf("%w: supply %d + %d", ErrSupplyOverflow, mint.Supply, params.Amount)
	}
	if err := checkAdd(acct.Amount, params.Amount); err != nil {
		return nil, fmt.Errorf("%w: balance %d + %d", ErrBalanceOverflow, acct.Amount, params.Amount)
	}
	mint.Supply += params.Amount
	acct.Amount += params.Amount

	if err := ctx.WriteAccount(mint.Address, KindMint, mint); err != nil {
		return nil, err
	}
	if err := ctx.WriteAccount(acct.Address, KindTokenAccount, acct); err != nil {
		return nil, err
	}

	klog.Ledger.Info().
		Str("mint", mint.Address.String()).
		Str("account", acct.Address.String()).
		Uint64("amount", params.Amount).
		Uint64("supply", mint.Supply).
		Msg("Tokens minted")
	return acct, nil
}

// checkAdd fails when a+b wraps or exceeds config.MaxTokenAmount.
func checkAdd(a, b uint64) error {
	if b > math.MaxUint64-a {
		return runtime.ErrOverflow
	}
	if a+b > config.MaxTokenAmount {
		return runtime.ErrOverflow
	}
	return nil
}

func accountSeeds(owner, mint types.Address) [][]byte {
	return [][]byte{[]byte("account"), owner[:], mint[:]}
}
