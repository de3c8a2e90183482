package rpcclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Klingon-tech/verimint/config"
	"github.com/Klingon-tech/verimint/internal/issuer"
	"github.com/Klingon-tech/verimint/internal/ledger"
	klog "github.com/Klingon-tech/verimint/internal/log"
	"github.com/Klingon-tech/verimint/internal/rpc"
	"github.com/Klingon-tech/verimint/internal/runtime"
	"github.com/Klingon-tech/verimint/internal/storage"
	"github.com/Klingon-tech/verimint/internal/verifier"
	"github.com/Klingon-tech/verimint/pkg/crypto"
	"github.com/Klingon-tech/verimint/pkg/pda"
	"github.com/Klingon-tech/verimint/pkg/tx"
)

type testEnv struct {
	client *Client
	rt     *runtime.Runtime
	key    *crypto.PrivateKey
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	rt := runtime.New(storage.NewMemory(), pda.Native{})
	for _, p := range []runtime.Program{ledger.New(), issuer.New(9, verifier.ID), verifier.New(verifier.NonEmpty{}, nil, issuer.ID)} {
		if err := rt.Register(p); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	srv := rpc.New("127.0.0.1:0", rt, config.Mainnet)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		client: New("http://" + srv.Addr() + "/"),
		rt:     rt,
		key:    key,
	}
}

func (env *testEnv) signed(t *testing.T, nonce uint64, ix tx.Instruction, err error) *tx.Transaction {
	t.Helper()
	if err != nil {
		t.Fatalf("build instruction: %v", err)
	}
	b := tx.NewBuilder().SetNonce(nonce).AddInstruction(ix)
	if err := b.Sign(env.key); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return b.Build()
}

func TestClient_NodeInfo(t *testing.T) {
	env := setupTestEnv(t)

	info, err := env.client.NodeInfo()
	if err != nil {
		t.Fatalf("NodeInfo: %v", err)
	}
	if info.Network != "mainnet" {
		t.Errorf("network = %q", info.Network)
	}
	mint, _ := issuer.MintAddress(env.rt.Scheme())
	if info.Mint != mint.Address.String() {
		t.Errorf("mint = %s, want %s", info.Mint, mint.Address)
	}
}

func TestClient_SubmitAndQuery(t *testing.T) {
	env := setupTestEnv(t)
	cfg, _ := verifier.ConfigAddress(env.rt.Scheme())

	ix, err := issuer.InitializeInstruction(verifier.ID, cfg.Address)
	res, err := env.client.SubmitTx(env.signed(t, 1, ix, err))
	if err != nil {
		t.Fatalf("SubmitTx: %v", err)
	}
	var init issuer.InitializeResult
	if err := json.Unmarshal(res.Results[0], &init); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if init.Authority != cfg.Address {
		t.Errorf("authority = %s, want %s", init.Authority, cfg.Address)
	}
	license, _ := issuer.LicenseMintAddress(env.rt.Scheme())
	if init.LicenseMint != license.Address {
		t.Errorf("license mint = %s, want %s", init.LicenseMint, license.Address)
	}

	var mint ledger.Mint
	if err := env.client.Call("ledger_getMint", rpc.AddressParam{Address: init.Mint.String()}, &mint); err != nil {
		t.Fatalf("ledger_getMint: %v", err)
	}
	if mint.MintAuthority != cfg.Address || mint.Supply != 0 {
		t.Errorf("mint = %+v", mint)
	}

	// Resubmitting the same transaction is rejected.
	_, err = env.client.SubmitTx(env.signed(t, 1, ix, nil))
	if KindOf(err) != string(runtime.KindDuplicateTransaction) {
		t.Errorf("resubmit = %v, want DuplicateTransaction", err)
	}
}

func TestClient_ErrorKinds(t *testing.T) {
	env := setupTestEnv(t)

	err := env.client.Call("verifier_getConfig", nil, nil)
	if KindOf(err) != string(runtime.KindUninitialized) {
		t.Errorf("verifier_getConfig = %v, want Uninitialized", err)
	}

	err = env.client.Call("no_such_method", nil, nil)
	rpcErr, ok := err.(*RPCError)
	if !ok {
		t.Fatalf("expected *RPCError, got %T", err)
	}
	if rpcErr.Code != rpc.CodeMethodNotFound || rpcErr.Kind != "" {
		t.Errorf("error = %+v", rpcErr)
	}
	if KindOf(nil) != "" {
		t.Error("KindOf(nil) should be empty")
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	client := NewWithTimeout("http://127.0.0.1:1/", time.Second)
	if err := client.Call("node_getInfo", nil, nil); err == nil {
		t.Error("expected connection error")
	}
}

func TestClient_BadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	if err := New(srv.URL).Call("node_getInfo", nil, nil); err == nil {
		t.Error("expected decode error")
	}
}

func TestNewWithTimeout_Default(t *testing.T) {
	c := NewWithTimeout("http://localhost", 0)
	if c.http.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", c.http.Timeout)
	}
}
