package runtime

import "errors"

// Kind classifies a failed execution for clients.
type Kind string

// Error kinds.
const (
	KindAlreadyInitialized   Kind = "AlreadyInitialized"
	KindUninitialized        Kind = "Uninitialized"
	KindVerificationFailed   Kind = "VerificationFailed"
	KindInvalidNodeLicense   Kind = "InvalidNodeLicense"
	KindMintMismatch         Kind = "MintMismatch"
	KindInvalidConfiguration Kind = "InvalidConfiguration"
	KindOverflow             Kind = "Overflow"
	KindInvalidAmount        Kind = "InvalidAmount"
	KindInvalidRecipient     Kind = "InvalidRecipient"
	KindUnauthorized         Kind = "Unauthorized"
	KindInvalidInstruction   Kind = "InvalidInstruction"
	KindDuplicateTransaction Kind = "DuplicateTransaction"
	KindLedgerFailure        Kind = "LedgerFailure"
	KindInternal             Kind = "Internal"
)

// Kind sentinels. Programs wrap these with fmt.Errorf("...: %w") so that
// KindOf can classify the failure after it crosses invocation frames.
var (
	ErrAlreadyInitialized   = errors.New("already initialized")
	ErrUninitialized        = errors.New("not initialized")
	ErrVerificationFailed   = errors.New("verification failed")
	ErrInvalidNodeLicense   = errors.New("invalid node license")
	ErrMintMismatch         = errors.New("mint mismatch")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrOverflow             = errors.New("arithmetic overflow")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidRecipient     = errors.New("invalid recipient")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidInstruction   = errors.New("invalid instruction")
	ErrDuplicateTransaction = errors.New("transaction already processed")
	ErrLedgerFailure        = errors.New("ledger failure")
	ErrInternal             = errors.New("internal error")
)

// Runtime errors.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrWrongKind       = errors.New("unexpected account kind")
	ErrNotOwner        = errors.New("account not owned by program")
	ErrUnknownProgram  = errors.New("unknown program")
	ErrInvokeDepth     = errors.New("invoke depth exceeded")
	ErrReentrancy      = errors.New("program already on call stack")
	ErrProgramExists   = errors.New("program already registered")
)

// kindOrder is checked first to last; the first sentinel in an error's
// chain decides its kind. Overflow precedes LedgerFailure so that a ledger
// overflow reports as Overflow.
var kindOrder = []struct {
	err  error
	kind Kind
}{
	{ErrDuplicateTransaction, KindDuplicateTransaction},
	{ErrAlreadyInitialized, KindAlreadyInitialized},
	{ErrUninitialized, KindUninitialized},
	{ErrVerificationFailed, KindVerificationFailed},
	{ErrInvalidNodeLicense, KindInvalidNodeLicense},
	{ErrMintMismatch, KindMintMismatch},
	{ErrInvalidConfiguration, KindInvalidConfiguration},
	{ErrOverflow, KindOverflow},
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrInvalidRecipient, KindInvalidRecipient},
	{ErrUnauthorized, KindUnauthorized},
	{ErrNotOwner, KindUnauthorized},
	{ErrLedgerFailure, KindLedgerFailure},
	{ErrInvalidInstruction, KindInvalidInstruction},
	{ErrUnknownProgram, KindInvalidInstruction},
	{ErrInvokeDepth, KindInvalidInstruction},
	{ErrReentrancy, KindInvalidInstruction},
}

// KindOf classifies err. It returns "" for nil and KindInternal for errors
// that carry no known sentinel.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
