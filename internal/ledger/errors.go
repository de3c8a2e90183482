package ledger

import (
	"fmt"

	"github.com/Klingon-tech/verimint/internal/runtime"
)

// Ledger errors. All classify as runtime.KindLedgerFailure except the two
// overflow errors, which classify as runtime.KindOverflow.
var (
	ErrMintNotFound       = fmt.Errorf("%w: mint not found", runtime.ErrLedgerFailure)
	ErrMintExists         = fmt.Errorf("%w: mint already exists", runtime.ErrLedgerFailure)
	ErrMintNotSigner      = fmt.Errorf("%w: mint address did not sign", runtime.ErrLedgerFailure)
	ErrMissingAuthority   = fmt.Errorf("%w: mint authority did not sign", runtime.ErrLedgerFailure)
	ErrInvalidDecimals    = fmt.Errorf("%w: invalid decimals", runtime.ErrLedgerFailure)
	ErrZeroAuthority      = fmt.Errorf("%w: zero mint authority", runtime.ErrLedgerFailure)
	ErrAccountNotFound    = fmt.Errorf("%w: token account not found", runtime.ErrLedgerFailure)
	ErrAccountExists      = fmt.Errorf("%w: token account already exists", runtime.ErrLedgerFailure)
	ErrAccountMismatch    = fmt.Errorf("%w: token account belongs to another mint", runtime.ErrLedgerFailure)
	ErrZeroAmount         = fmt.Errorf("%w: zero amount", runtime.ErrLedgerFailure)
	ErrNotLedgerAccount   = fmt.Errorf("%w: account not owned by ledger", runtime.ErrLedgerFailure)
	ErrUnknownInstruction = fmt.Errorf("%w: unknown instruction", runtime.ErrLedgerFailure)
	ErrSupplyOverflow     = fmt.Errorf("%w: supply %w", runtime.ErrLedgerFailure, runtime.ErrOverflow)
	ErrBalanceOverflow    = fmt.Errorf("%w: balance %w", runtime.ErrLedgerFailure, runtime.ErrOverflow)
)
