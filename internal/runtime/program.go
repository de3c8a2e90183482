// Package runtime executes signed transactions against program-owned
// accounts. Each transaction runs atomically: its instructions see each
// other's writes and either all commit in one storage batch or none do.
package runtime

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/verimint/pkg/crypto"
	"github.com/Klingon-tech/verimint/pkg/tx"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// Program handles instructions addressed to its ID.
type Program interface {
	// ID is the program's address. Instructions target it and the accounts
	// it creates are owned by it.
	ID() types.Address
	// Name is a short human-readable label used in logs and errors.
	Name() string
	// Execute runs one instruction. The returned value, if non-nil, is
	// JSON-encoded into the instruction result.
	Execute(ctx *Context, data []byte) (interface{}, error)
}

// ProgramID derives the well-known address of a built-in program.
func ProgramID(name string) types.Address {
	return types.Address(crypto.Hash([]byte("program:" + name)))
}

// Call is the instruction data envelope used by the built-in programs.
type Call struct {
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewInstruction encodes op and params into an instruction for program.
func NewInstruction(program types.Address, op string, params interface{}) (tx.Instruction, error) {
	call := Call{Op: op}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return tx.Instruction{}, fmt.Errorf("encode %s params: %w", op, err)
		}
		call.Params = raw
	}
	data, err := json.Marshal(call)
	if err != nil {
		return tx.Instruction{}, fmt.Errorf("encode %s: %w", op, err)
	}
	return tx.Instruction{Program: program, Data: data}, nil
}

// DecodeCall parses instruction data into a Call.
func DecodeCall(data []byte) (*Call, error) {
	var call Call
	if err := json.Unmarshal(data, &call); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
	}
	if call.Op == "" {
		return nil, fmt.Errorf("%w: missing op", ErrInvalidInstruction)
	}
	return &call, nil
}

// DecodeParams unmarshals the call's params into v.
func (c *Call) DecodeParams(v interface{}) error {
	if len(c.Params) == 0 {
		return fmt.Errorf("%w: %s: missing params", ErrInvalidInstruction, c.Op)
	}
	if err := json.Unmarshal(c.Params, v); err != nil {
		return fmt.Errorf("%w: %s params: %v", ErrInvalidInstruction, c.Op, err)
	}
	return nil
}
