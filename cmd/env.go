package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/ttb-tools/labelcheck/internal/extract"
	"github.com/ttb-tools/labelcheck/internal/model"
	"github.com/ttb-tools/labelcheck/internal/store"
	"github.com/ttb-tools/labelcheck/internal/verify"
	anthropicpkg "github.com/ttb-tools/labelcheck/pkg/anthropic"
)

// verifyEnv holds the initialized store, extractor, and engine shared by
// the verify/batch/serve commands.
type verifyEnv struct {
	Store     store.Store
	Extractor *extract.Extractor
	Engine    *verify.Engine
}

// Close releases resources held by the environment.
func (ve *verifyEnv) Close() {
	if ve.Store != nil {
		_ = ve.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "labelcheck.db"
		}
		return store.NewSQLite(dsn, cfg.History.MaxEntries)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool, cfg.History.MaxEntries)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv sets up the store, the Anthropic client, and the verification
// engine. Callers should defer env.Close().
func initEnv(ctx context.Context) (*verifyEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (LABELCHECK_ANTHROPIC_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	client := anthropicpkg.NewClient(cfg.Anthropic.Key)
	extractor := extract.New(client, extract.Opts{
		Model:             cfg.Anthropic.Model,
		MaxTokens:         cfg.Anthropic.MaxTokens,
		RequestsPerSecond: cfg.Anthropic.RequestsPerSecond,
	})

	return &verifyEnv{
		Store:     st,
		Extractor: extractor,
		Engine:    verify.NewEngine(extractor),
	}, nil
}

// loadApplication reads and validates a COLA application JSON file.
func loadApplication(path string) (*model.Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read application %s", path)
	}

	var app model.Application
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, eris.Wrapf(err, "parse application %s", path)
	}

	if app.BeverageType == "" || app.BrandName == "" {
		return nil, eris.New("application must include at least beverageType and brandName")
	}
	return &app, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
