package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/verimint/config"
	klog "github.com/Klingon-tech/verimint/internal/log"
	"github.com/Klingon-tech/verimint/internal/storage"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// openStorage opens the account store selected by storage.engine.
func openStorage(cfg *config.Config) (storage.DB, error) {
	switch cfg.Storage.Engine {
	case config.EngineMemory:
		return storage.NewMemory(), nil
	case config.EngineBadger, "":
		dir := expandHome(cfg.StateDir())
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating state dir: %w", err)
		}
		db, err := storage.NewBadger(dir)
		if err != nil {
			return nil, fmt.Errorf("open database at %s: %w", dir, err)
		}
		klog.Storage.Info().Str("path", dir).Msg("Database opened")
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported storage engine: %s", cfg.Storage.Engine)
	}
}

// parseBootstrap decodes the verifier bootstrap authority list.
func parseBootstrap(entries []string) ([]types.Address, error) {
	out := make([]types.Address, 0, len(entries))
	for i, s := range entries {
		addr, err := types.ParseAddress(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("verifier.bootstrap[%d]: %w", i, err)
		}
		out = append(out, addr)
	}
	return out, nil
}
