package rpc

import (
	"encoding/json"
	"testing"
)

// FuzzRPCRequestUnmarshal tests that arbitrary JSON does not panic
// when parsed as a JSON-RPC 2.0 request and its params decoded.
func FuzzRPCRequestUnmarshal(f *testing.F) {
	f.Add([]byte(`{"jsonrpc":"2.0","method":"node_getInfo","params":null,"id":1}`))
	f.Add([]byte(`{"jsonrpc":"2.0","method":"ledger_getBalance","params":{"address":"abc"},"id":"test"}`))
	f.Add([]byte(`{"jsonrpc":"2.0","method":"pda_derive","params":{"program":"verifier","seeds":["verifier"]},"id":2}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`null`))
	f.Add([]byte(`{"method":"","params":[]}`))
	f.Add([]byte(`{"jsonrpc":"2.0","method":"tx_submit","params":{"transaction":{"version":1}},"id":999}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		var derive DeriveParam
		_ = parseParams(&req, &derive)
		var submit TxSubmitParam
		_ = parseParams(&req, &submit)
	})
}
