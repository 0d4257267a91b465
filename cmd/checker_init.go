package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/velofit/fitcheck/internal/catalog"
	"github.com/velofit/fitcheck/internal/pipeline"
	"github.com/velofit/fitcheck/internal/scrape"
	"github.com/velofit/fitcheck/internal/store"
	"github.com/velofit/fitcheck/pkg/airtable"
	"github.com/velofit/fitcheck/pkg/perplexity"
)

// checkerEnv holds the initialized collaborators for the check and serve
// commands.
type checkerEnv struct {
	Checker   *pipeline.Checker
	Catalog   *catalog.Index
	Store     store.Store // may be nil
	Airtable  airtable.Client
	extractor *scrape.PlaywrightExtractor // may be nil
}

// Close releases resources held by the environment.
func (ce *checkerEnv) Close() {
	if ce.extractor != nil {
		if err := ce.extractor.Close(); err != nil {
			zap.L().Warn("close extractor", zap.Error(err))
		}
	}
	if ce.Store != nil {
		_ = ce.Store.Close()
	}
}

// initChecker sets up the catalog source, the headless browser, the
// inference client and the audit store. Callers should defer env.Close().
func initChecker(ctx context.Context) (*checkerEnv, error) {
	if cfg.Perplexity.Key == "" {
		return nil, eris.New("perplexity API key is required (FITCHECK_PERPLEXITY_KEY)")
	}

	var src catalog.Source
	switch {
	case cfg.Catalog.URL != "":
		src = catalog.NewHTTPSource(cfg.Catalog.URL)
	case cfg.Catalog.Path != "":
		src = catalog.NewFileSource(cfg.Catalog.Path)
	}
	ix := catalog.NewIndex(src)

	var extractor *scrape.PlaywrightExtractor
	if cfg.Scrape.Enabled {
		ex, err := scrape.NewPlaywrightExtractor(time.Duration(cfg.Scrape.TimeoutSecs) * time.Second)
		if err != nil {
			// Catalog lookups still work without a browser.
			zap.L().Warn("headless browser unavailable, page extraction disabled", zap.Error(err))
		} else {
			extractor = ex
		}
	}

	inference := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
	)

	st, err := initStore(ctx)
	if err != nil {
		if extractor != nil {
			_ = extractor.Close()
		}
		return nil, err
	}

	var at airtable.Client
	if cfg.Airtable.Key != "" {
		at = airtable.NewClient(cfg.Airtable.Key)
	}

	var ex scrape.Extractor
	if extractor != nil {
		ex = extractor
	}

	return &checkerEnv{
		Checker:   pipeline.NewChecker(ix, ex, inference, cfg.Perplexity.Model),
		Catalog:   ix,
		Store:     st,
		Airtable:  at,
		extractor: extractor,
	}, nil
}

// initStore opens and migrates the audit store. Driver "none" disables it.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
