package runtime

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Klingon-tech/verimint/config"
	"github.com/Klingon-tech/verimint/pkg/pda"
	"github.com/Klingon-tech/verimint/pkg/tx"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// Context is the view of one executing instruction. It exposes the signer
// set, account access scoped to the executing program, and cross-program
// invocation. A Context is only valid during the Execute call it is passed to.
type Context struct {
	rt      *Runtime
	state   *accountStore
	program types.Address
	signers map[types.Address]bool
	stack   []types.Address
	txHash  types.Hash
}

// ProgramID returns the executing program's address.
func (c *Context) ProgramID() types.Address {
	return c.program
}

// TxHash returns the hash of the enclosing transaction.
func (c *Context) TxHash() types.Hash {
	return c.txHash
}

// Depth returns the number of nested invocations above this frame.
// The top-level instruction has depth 0.
func (c *Context) Depth() int {
	return len(c.stack) - 1
}

// Caller returns the invoking program, if any.
func (c *Context) Caller() (types.Address, bool) {
	if len(c.stack) < 2 {
		return types.Address{}, false
	}
	return c.stack[len(c.stack)-2], true
}

// IsSigner reports whether addr authorized this frame, either by signing
// the transaction or as a program-derived signer added by InvokeSigned.
func (c *Context) IsSigner(addr types.Address) bool {
	return c.signers[addr]
}

// Signers returns the signer set in address order.
func (c *Context) Signers() []types.Address {
	out := make([]types.Address, 0, len(c.signers))
	for a := range c.signers {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out
}

// Scheme returns the address derivation scheme of the runtime.
func (c *Context) Scheme() pda.Scheme {
	return c.rt.scheme
}

// FindProgramAddress derives a program address for the executing program.
func (c *Context) FindProgramAddress(seeds ...[]byte) (pda.Result, error) {
	return pda.Find(c.rt.scheme, seeds, c.program)
}

// Account reads any account, including ones written earlier in the same
// transaction.
func (c *Context) Account(addr types.Address) (*Account, error) {
	return c.state.get(addr)
}

// HasAccount reports whether an account exists at addr.
func (c *Context) HasAccount(addr types.Address) (bool, error) {
	return c.state.has(addr)
}

// CreateAccount creates an account owned by the executing program at addr.
// The address must be a signer of this frame, which for program-derived
// addresses means the creator reached this program through InvokeSigned.
func (c *Context) CreateAccount(addr types.Address, kind string, data interface{}) error {
	if !c.IsSigner(addr) {
		return fmt.Errorf("%w: create %s: %s did not sign", ErrUnauthorized, kind, addr)
	}
	return c.create(addr, kind, data)
}

// CreateDerivedAccount creates an account at the executing program's
// derived address for seeds (which must already include the bump).
func (c *Context) CreateDerivedAccount(seeds [][]byte, kind string, data interface{}) (types.Address, error) {
	addr, err := c.rt.scheme.CreateProgramAddress(seeds, c.program)
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: derive %s address: %v", ErrInternal, kind, err)
	}
	if err := c.create(addr, kind, data); err != nil {
		return types.Address{}, err
	}
	return addr, nil
}

func (c *Context) create(addr types.Address, kind string, data interface{}) error {
	exists, err := c.state.has(addr)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAccountExists, addr)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	return c.state.put(addr, &Account{Owner: c.program, Kind: kind, Data: raw})
}

// WriteAccount replaces the data of an existing account. Only the owning
// program may write, and the kind cannot change.
func (c *Context) WriteAccount(addr types.Address, kind string, data interface{}) error {
	acct, err := c.state.get(addr)
	if err != nil {
		return err
	}
	if acct.Owner != c.program {
		return fmt.Errorf("%w: %s owned by %s", ErrNotOwner, addr, acct.Owner)
	}
	if acct.Kind != kind {
		return fmt.Errorf("%w: have %q, want %q", ErrWrongKind, acct.Kind, kind)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	acct.Data = raw
	return c.state.put(addr, acct)
}

// Invoke calls another program. The callee sees the caller's signers.
func (c *Context) Invoke(ix tx.Instruction) (json.RawMessage, error) {
	return c.invoke(ix, nil)
}

// InvokeSigned calls another program with the executing program's derived
// address for seeds added to the callee's signers. Seeds must include the
// bump. Only the executing program can sign for its own derived addresses.
func (c *Context) InvokeSigned(ix tx.Instruction, seeds ...[]byte) (json.RawMessage, error) {
	addr, err := c.rt.scheme.CreateProgramAddress(seeds, c.program)
	if err != nil {
		return nil, fmt.Errorf("%w: derive signer: %v", ErrInternal, err)
	}
	return c.invoke(ix, &addr)
}

func (c *Context) invoke(ix tx.Instruction, derived *types.Address) (json.RawMessage, error) {
	if len(c.stack) > config.MaxInvokeDepth {
		return nil, fmt.Errorf("%w: max %d", ErrInvokeDepth, config.MaxInvokeDepth)
	}
	signers := make(map[types.Address]bool, len(c.signers)+1)
	for a := range c.signers {
		signers[a] = true
	}
	if derived != nil {
		signers[*derived] = true
	}
	return c.rt.dispatch(c.state, ix, signers, c.stack, c.txHash)
}
