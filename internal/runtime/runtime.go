package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	klog "github.com/Klingon-tech/verimint/internal/log"
	"github.com/Klingon-tech/verimint/internal/storage"
	"github.com/Klingon-tech/verimint/pkg/pda"
	"github.com/Klingon-tech/verimint/pkg/tx"
	"github.com/Klingon-tech/verimint/pkg/types"
)

var prefixProcessed = []byte("x/") // x/<txhash(32)> -> Receipt JSON

// Receipt records an executed transaction.
type Receipt struct {
	TxHash     types.Hash        `json:"tx_hash"`
	Signers    []types.Address   `json:"signers"`
	Results    []json.RawMessage `json:"results"`
	ExecutedAt int64             `json:"executed_at"`
}

// Runtime executes transactions against the account store.
// Execution is serialized; reads may run concurrently with each other.
type Runtime struct {
	mu       sync.RWMutex
	db       storage.DB
	accounts *accountStore
	receipts *storage.PrefixDB
	scheme   pda.Scheme
	programs map[types.Address]Program
	now      func() time.Time
}

// New creates a runtime over db using scheme for program-derived addresses.
func New(db storage.DB, scheme pda.Scheme) *Runtime {
	if scheme == nil {
		scheme = pda.Native{}
	}
	return &Runtime{
		db:       db,
		accounts: newAccountStore(db),
		receipts: storage.NewPrefixDB(db, prefixProcessed),
		scheme:   scheme,
		programs: make(map[types.Address]Program),
		now:      time.Now,
	}
}

// Register adds a program. Register must not be called concurrently with
// Execute.
func (r *Runtime) Register(p Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.programs[p.ID()]; ok {
		return fmt.Errorf("%w: %s (%s)", ErrProgramExists, p.Name(), p.ID())
	}
	r.programs[p.ID()] = p
	klog.Runtime.Debug().Str("program", p.Name()).Str("id", p.ID().String()).Msg("Program registered")
	return nil
}

// Scheme returns the address derivation scheme.
func (r *Runtime) Scheme() pda.Scheme {
	return r.scheme
}

// Programs returns the registered programs keyed by name.
func (r *Runtime) Programs() map[string]types.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]types.Address, len(r.programs))
	for id, p := range r.programs {
		out[p.Name()] = id
	}
	return out
}

// Account reads a committed account.
func (r *Runtime) Account(addr types.Address) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accounts.get(addr)
}

// ForEachAccount iterates committed accounts in address order. fn must not
// call Execute.
func (r *Runtime) ForEachAccount(fn func(types.Address, *Account) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accounts.forEach(fn)
}

// Receipt returns the receipt of an executed transaction.
func (r *Runtime) Receipt(hash types.Hash) (*Receipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, err := r.receipts.Get(hash[:])
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("receipt %s: %w", hash, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("receipt get: %w", err)
	}
	var rc Receipt
	if err := json.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("receipt unmarshal: %w", err)
	}
	return &rc, nil
}

// Execute validates and runs a signed transaction. Either every
// instruction succeeds and all writes commit together, or nothing changes.
func (r *Runtime) Execute(t *tx.Transaction) (*Receipt, error) {
	defer klog.Benchmark("execute")()

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
	}
	if err := t.VerifySignatures(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	hash := t.Hash()

	r.mu.Lock()
	defer r.mu.Unlock()

	seen, err := r.receipts.Has(hash[:])
	if err != nil {
		return nil, fmt.Errorf("%w: processed index: %v", ErrInternal, err)
	}
	if seen {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTransaction, hash)
	}

	signers := make(map[types.Address]bool, len(t.Signatures))
	for _, s := range t.Signers() {
		signers[s] = true
	}

	overlay := storage.NewOverlay(r.db)
	state := newAccountStore(overlay)

	receipt := &Receipt{
		TxHash:     hash,
		Signers:    t.Signers(),
		Results:    make([]json.RawMessage, 0, len(t.Instructions)),
		ExecutedAt: r.now().Unix(),
	}
	for i, ix := range t.Instructions {
		res, err := r.dispatch(state, ix, signers, nil, hash)
		if err != nil {
			klog.Runtime.Warn().
				Str("tx", hash.String()).
				Int("instruction", i).
				Str("kind", string(KindOf(err))).
				Err(err).
				Msg("Transaction rejected")
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		receipt.Results = append(receipt.Results, res)
	}

	data, err := json.Marshal(receipt)
	if err != nil {
		return nil, fmt.Errorf("%w: receipt marshal: %v", ErrInternal, err)
	}
	if err := storage.NewPrefixDB(overlay, prefixProcessed).Put(hash[:], data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	batch := storage.NewBatch(r.db)
	if err := overlay.Flush(batch); err != nil {
		batch.Discard()
		return nil, fmt.Errorf("%w: flush: %v", ErrInternal, err)
	}
	if err := batch.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrInternal, err)
	}

	klog.Runtime.Info().
		Str("tx", hash.String()).
		Int("instructions", len(t.Instructions)).
		Int("writes", overlay.Len()).
		Msg("Transaction executed")
	return receipt, nil
}

// dispatch runs one instruction in a new frame on top of stack.
func (r *Runtime) dispatch(state *accountStore, ix tx.Instruction, signers map[types.Address]bool, stack []types.Address, hash types.Hash) (json.RawMessage, error) {
	p, ok := r.programs[ix.Program]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, ix.Program)
	}
	for _, caller := range stack {
		if caller == ix.Program {
			return nil, fmt.Errorf("%w: %s", ErrReentrancy, p.Name())
		}
	}

	frame := make([]types.Address, len(stack)+1)
	copy(frame, stack)
	frame[len(stack)] = ix.Program

	ctx := &Context{
		rt:      r,
		state:   state,
		program: ix.Program,
		signers: signers,
		stack:   frame,
		txHash:  hash,
	}
	res, err := p.Execute(ctx, ix.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	if res == nil {
		return nil, nil
	}
	if raw, ok := res.(json.RawMessage); ok {
		return raw, nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("%w: %s result: %v", ErrInternal, p.Name(), err)
	}
	return raw, nil
}
