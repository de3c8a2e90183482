// Package node provides a reusable verimint node that can be embedded
// in any binary (daemon, tests, etc.).
package node

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/Klingon-tech/verimint/config"
	"github.com/Klingon-tech/verimint/internal/issuer"
	"github.com/Klingon-tech/verimint/internal/ledger"
	klog "github.com/Klingon-tech/verimint/internal/log"
	"github.com/Klingon-tech/verimint/internal/rpc"
	"github.com/Klingon-tech/verimint/internal/runtime"
	"github.com/Klingon-tech/verimint/internal/storage"
	"github.com/Klingon-tech/verimint/internal/verifier"
	"github.com/Klingon-tech/verimint/pkg/pda"
	"github.com/rs/zerolog"
)

// Node is a fully-initialized verimint node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Core
	db       storage.DB
	rt       *runtime.Runtime
	verifier *verifier.Program

	// RPC
	rpcServer *rpc.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, storage, runtime, programs, RPC) but does not accept requests
// until Start is called.
func New(cfg *config.Config) (*Node, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "verimint.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, expandHome(logFile)); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.Node

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("pda_scheme", cfg.Runtime.PDAScheme).
		Str("predicate", cfg.Verifier.Predicate).
		Msg("Starting verimint node")

	// ── 2. Open storage ─────────────────────────────────────────────
	db, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("engine", cfg.Storage.Engine).Msg("Account store opened")

	// ── 3. Runtime ──────────────────────────────────────────────────
	scheme, err := pda.ByName(cfg.Runtime.PDAScheme)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pda scheme: %w", err)
	}
	rt := runtime.New(db, scheme)

	// ── 4. Programs ─────────────────────────────────────────────────
	pred, err := verifier.NewPredicate(cfg.Verifier.Predicate, cfg.Verifier.Attesters)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("verifier predicate: %w", err)
	}
	bootstrap, err := parseBootstrap(cfg.Verifier.Bootstrap)
	if err != nil {
		db.Close()
		return nil, err
	}
	vp := verifier.New(pred, bootstrap, issuer.ID)

	for _, p := range []runtime.Program{
		ledger.New(),
		issuer.New(cfg.Issuer.Decimals, verifier.ID),
		vp,
	} {
		if err := rt.Register(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("register %s: %w", p.Name(), err)
		}
	}

	mint, err := issuer.MintAddress(scheme)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("derive mint: %w", err)
	}
	license, err := issuer.LicenseMintAddress(scheme)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("derive license mint: %w", err)
	}
	controller, err := verifier.ConfigAddress(scheme)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("derive verifier config: %w", err)
	}
	logger.Info().
		Str("mint", mint.Address.String()).
		Str("license_mint", license.Address.String()).
		Str("controller", controller.Address.String()).
		Uint8("controller_bump", controller.Bump).
		Msg("Program addresses derived")

	// ── 5. RPC server ───────────────────────────────────────────────
	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		addr := net.JoinHostPort(cfg.RPC.Addr, strconv.Itoa(cfg.RPC.Port))
		rpcServer = rpc.New(addr, rt, cfg.Network, cfg.RPC)
		rpcServer.SetPredicate(pred.Name())
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		rt:        rt,
		verifier:  vp,
		rpcServer: rpcServer,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start begins serving RPC requests.
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start RPC: %w", err)
		}
		n.logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server started")
	}

	n.logger.Info().
		Bool("rpc", n.rpcServer != nil).
		Msg("Node started successfully")
	return nil
}

// Stop performs graceful shutdown in reverse order. It is safe to call
// more than once.
func (n *Node) Stop() {
	n.once.Do(func() {
		n.cancel()

		if n.rpcServer != nil {
			if err := n.rpcServer.Stop(); err != nil {
				n.logger.Warn().Err(err).Msg("RPC shutdown")
			}
		}
		if n.db != nil {
			if err := n.db.Close(); err != nil {
				n.logger.Warn().Err(err).Msg("Close account store")
			}
		}

		n.logger.Info().Msg("Goodbye!")
	})
}

// Done is closed when Stop begins.
func (n *Node) Done() <-chan struct{} {
	return n.ctx.Done()
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Runtime returns the program runtime.
func (n *Node) Runtime() *runtime.Runtime {
	return n.rt
}

// Predicate returns the name of the active verification predicate.
func (n *Node) Predicate() string {
	return n.verifier.Predicate().Name()
}
