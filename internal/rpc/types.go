package rpc

import (
	"encoding/json"

	"github.com/Klingon-tech/verimint/internal/verifier"
	"github.com/Klingon-tech/verimint/pkg/tx"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeProgramError   = -32010 // Execution failed; Data is *ErrorData.
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorData is attached to CodeProgramError errors.
type ErrorData struct {
	Kind string `json:"kind"`
}

// ── Param types ─────────────────────────────────────────────────────────

// HashParam is used by tx_getReceipt.
type HashParam struct {
	Hash string `json:"hash"`
}

// AddressParam is used by the ledger query endpoints and, as the node
// owner, by verifier_getNode.
type AddressParam struct {
	Address string `json:"address"`
}

// TxSubmitParam is used by tx_submit.
type TxSubmitParam struct {
	Transaction *tx.Transaction `json:"transaction"`
}

// AccountAddressParam is used by ledger_accountAddress. An empty mint
// selects the issuer mint.
type AccountAddressParam struct {
	Owner string `json:"owner"`
	Mint  string `json:"mint,omitempty"`
}

// DeriveParam is used by pda_derive. Program is a registered program name
// or a base58 address. Seeds are UTF-8 strings and SeedsHex raw bytes in
// hex; hex seeds follow the string seeds.
type DeriveParam struct {
	Program  string   `json:"program"`
	Seeds    []string `json:"seeds,omitempty"`
	SeedsHex []string `json:"seeds_hex,omitempty"`
}

// ── Result types ────────────────────────────────────────────────────────

// NodeInfoResult is returned by node_getInfo.
type NodeInfoResult struct {
	Network        string            `json:"network"`
	Version        string            `json:"version"`
	PDAScheme      string            `json:"pda_scheme"`
	Predicate      string            `json:"predicate,omitempty"`
	Programs       map[string]string `json:"programs"`
	Mint           string            `json:"mint"`
	LicenseMint    string            `json:"license_mint"`
	VerifierConfig string            `json:"verifier_config"`
}

// TxSubmitResult is returned by tx_submit.
type TxSubmitResult struct {
	TxHash  string            `json:"tx_hash"`
	Results []json.RawMessage `json:"results"`
}

// BalanceResult is returned by ledger_getBalance.
type BalanceResult struct {
	Address string        `json:"address"`
	Mint    types.Address `json:"mint"`
	Owner   types.Address `json:"owner"`
	Balance uint64        `json:"balance"`
}

// DeriveResult is returned by ledger_accountAddress and pda_derive.
type DeriveResult struct {
	Address string `json:"address"`
	Bump    uint8  `json:"bump"`
	Program string `json:"program"`
}

// VerifierConfigResult is returned by verifier_getConfig.
type VerifierConfigResult struct {
	Address string `json:"address"`
	*verifier.Config
}
