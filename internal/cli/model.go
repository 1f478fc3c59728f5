package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"songrec/config"
	"songrec/internal/adapter/catalog"
	"songrec/internal/adapter/similarity"
	"songrec/internal/adapter/store"
	"songrec/internal/logging"
	"songrec/internal/port"
	"songrec/internal/usecase"
)

// openStore opens the trained model read-only.
func openStore() (*store.BoltStore, error) {
	dbPath := config.StoreDBPath(GetRootDir())
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no model found. Run 'songrec index' first")
	}

	st, err := store.OpenReadOnly(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if rebuild, reason, err := st.NeedsRebuild(GetConfig()); err == nil && rebuild {
		logging.Warn().Str("reason", reason).Msg("stored model is stale, run 'songrec index' to retrain")
	}
	return st, nil
}

// openModel opens the store and restores its index.
func openModel() (*store.BoltStore, *similarity.Index, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	idx, err := usecase.LoadIndex(st)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	logging.Debug().
		Int("rows", idx.Len()).
		Int("dim", idx.Dim()).
		Int("k_default", idx.KDefault()).
		Msg("index loaded")
	return st, idx, nil
}

// newCatalog builds the configured catalog. The dataset store always
// answers first; a remote provider covers tracks outside the dataset.
func newCatalog(ctx context.Context, st port.TrackStore) (port.Catalog, error) {
	cfg := GetConfig().Catalog
	local := catalog.NewLocalCatalog(st)

	switch strings.ToLower(cfg.Provider) {
	case "", "local":
		return local, nil
	case "spotify":
		sc, err := catalog.SpotifyConfigFromEnv(cfg.ClientIDEnv, cfg.ClientSecretEnv)
		if err != nil {
			return nil, err
		}
		sc.TokenURL = cfg.TokenURL
		sc.BaseURL = cfg.BaseURL
		sc.Market = cfg.Market
		sc.Timeout = cfg.Timeout

		remote, err := catalog.NewSpotifyCatalog(ctx, sc)
		if err != nil {
			return nil, fmt.Errorf("failed to create spotify catalog: %w", err)
		}
		return catalog.NewChain(local, remote), nil
	default:
		return nil, fmt.Errorf("unsupported catalog provider: %s", cfg.Provider)
	}
}
