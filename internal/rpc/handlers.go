package rpc

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Klingon-tech/verimint/config"
	"github.com/Klingon-tech/verimint/internal/issuer"
	"github.com/Klingon-tech/verimint/internal/ledger"
	"github.com/Klingon-tech/verimint/internal/runtime"
	"github.com/Klingon-tech/verimint/internal/storage"
	"github.com/Klingon-tech/verimint/internal/verifier"
	"github.com/Klingon-tech/verimint/pkg/pda"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// ── Node ────────────────────────────────────────────────────────────────

func (s *Server) handleNodeGetInfo(_ *Request) (interface{}, *Error) {
	scheme := s.rt.Scheme()
	programs := make(map[string]string)
	for name, id := range s.rt.Programs() {
		programs[name] = id.String()
	}
	mint, err := issuer.MintAddress(scheme)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive mint: %v", err)}
	}
	license, err := issuer.LicenseMintAddress(scheme)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive license mint: %v", err)}
	}
	cfg, err := verifier.ConfigAddress(scheme)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive verifier config: %v", err)}
	}
	return &NodeInfoResult{
		Network:        string(s.network),
		Version:        config.Version,
		PDAScheme:      scheme.Name(),
		Predicate:      s.predicate,
		Programs:       programs,
		Mint:           mint.Address.String(),
		LicenseMint:    license.Address.String(),
		VerifierConfig: cfg.Address.String(),
	}, nil
}

// ── Transactions ────────────────────────────────────────────────────────

func (s *Server) handleTxSubmit(req *Request) (interface{}, *Error) {
	var params TxSubmitParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Transaction == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "transaction is required"}
	}

	receipt, err := s.rt.Execute(params.Transaction)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Transaction rejected")
		return nil, programError(err)
	}
	return &TxSubmitResult{
		TxHash:  receipt.TxHash.String(),
		Results: receipt.Results,
	}, nil
}

func (s *Server) handleTxGetReceipt(req *Request) (interface{}, *Error) {
	var params HashParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Hash == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "hash is required"}
	}
	hash, err := types.HexToHash(params.Hash)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid hash: must be 32-byte hex"}
	}

	rc, err := s.rt.Receipt(hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &Error{Code: CodeNotFound, Message: "receipt not found"}
		}
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return rc, nil
}

// ── Ledger ──────────────────────────────────────────────────────────────

func (s *Server) handleLedgerGetMint(req *Request) (interface{}, *Error) {
	addr, rpcErr := s.addressOrMint(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	m, err := ledger.GetMint(s.rt, addr)
	if err != nil {
		return nil, queryError(err)
	}
	return m, nil
}

func (s *Server) handleLedgerGetAccount(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := decodeAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	acct, err := ledger.GetAccount(s.rt, addr)
	if err != nil {
		return nil, queryError(err)
	}
	return acct, nil
}

func (s *Server) handleLedgerGetBalance(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := decodeAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	acct, err := ledger.GetAccount(s.rt, addr)
	if err != nil {
		return nil, queryError(err)
	}
	return &BalanceResult{
		Address: acct.Address.String(),
		Mint:    acct.Mint,
		Owner:   acct.Owner,
		Balance: acct.Amount,
	}, nil
}

func (s *Server) handleLedgerAccountAddress(req *Request) (interface{}, *Error) {
	var params AccountAddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	owner, rpcErr := decodeAddress(params.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	mint, rpcErr := s.mintOrDefault(params.Mint)
	if rpcErr != nil {
		return nil, rpcErr
	}
	res, err := ledger.AccountAddress(s.rt.Scheme(), owner, mint)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive: %v", err)}
	}
	return &DeriveResult{
		Address: res.Address.String(),
		Bump:    res.Bump,
		Program: ledger.ID.String(),
	}, nil
}

// ── Verifier ────────────────────────────────────────────────────────────

func (s *Server) handleVerifierGetConfig(_ *Request) (interface{}, *Error) {
	addr, err := verifier.ConfigAddress(s.rt.Scheme())
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive: %v", err)}
	}
	cfg, err := verifier.GetConfig(s.rt, addr.Address)
	if err != nil {
		return nil, programError(err)
	}
	return &VerifierConfigResult{Address: addr.Address.String(), Config: cfg}, nil
}

func (s *Server) handleVerifierGetNode(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	owner, rpcErr := decodeAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	addr, err := verifier.NodeAddress(s.rt.Scheme(), owner)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive: %v", err)}
	}
	node, err := verifier.GetNode(s.rt, addr.Address)
	if err != nil {
		if errors.Is(err, runtime.ErrAccountNotFound) {
			return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("no node licensed to %s", owner)}
		}
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return node, nil
}

// ── Program addresses ───────────────────────────────────────────────────

func (s *Server) handlePDADerive(req *Request) (interface{}, *Error) {
	var params DeriveParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Program == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "program is required"}
	}
	program, ok := s.rt.Programs()[params.Program]
	if !ok {
		var rpcErr *Error
		if program, rpcErr = decodeAddress(params.Program); rpcErr != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("unknown program %q", params.Program)}
		}
	}

	seeds := make([][]byte, 0, len(params.Seeds)+len(params.SeedsHex))
	for _, seed := range params.Seeds {
		seeds = append(seeds, []byte(seed))
	}
	for i, h := range params.SeedsHex {
		b, err := hex.DecodeString(h)
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("seeds_hex[%d]: %v", i, err)}
		}
		seeds = append(seeds, b)
	}

	res, err := pda.Find(s.rt.Scheme(), seeds, program)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("derive: %v", err)}
	}
	return &DeriveResult{
		Address: res.Address.String(),
		Bump:    res.Bump,
		Program: program.String(),
	}, nil
}

// ── Helpers ─────────────────────────────────────────────────────────────

// addressOrMint reads an optional address param, defaulting to the
// issuer mint.
func (s *Server) addressOrMint(req *Request) (types.Address, *Error) {
	var params AddressParam
	if req.Params != nil {
		if err := parseParams(req, &params); err != nil {
			return types.Address{}, err
		}
	}
	return s.mintOrDefault(params.Address)
}

func (s *Server) mintOrDefault(addr string) (types.Address, *Error) {
	if addr != "" {
		return decodeAddress(addr)
	}
	res, err := issuer.MintAddress(s.rt.Scheme())
	if err != nil {
		return types.Address{}, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive mint: %v", err)}
	}
	return res.Address, nil
}

// programError maps an execution failure to CodeProgramError with its kind.
func programError(err error) *Error {
	return &Error{
		Code:    CodeProgramError,
		Message: err.Error(),
		Data:    &ErrorData{Kind: string(runtime.KindOf(err))},
	}
}

// queryError maps a read failure. Missing records are CodeNotFound.
func queryError(err error) *Error {
	if errors.Is(err, ledger.ErrMintNotFound) || errors.Is(err, ledger.ErrAccountNotFound) ||
		errors.Is(err, ledger.ErrNotLedgerAccount) {
		return &Error{Code: CodeNotFound, Message: err.Error()}
	}
	return &Error{Code: CodeInternalError, Message: err.Error()}
}

func decodeAddress(s string) (types.Address, *Error) {
	if s == "" {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}
	addr, err := types.ParseAddress(s)
	if err != nil {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: "invalid address: " + err.Error()}
	}
	return addr, nil
}
