package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/assistant"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/compute"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/config"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dispatch"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/learning"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/metrics"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/optimizer"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/search"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/storage"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/upstream"
)

// Environment variables holding upstream secrets.
const (
	EnvGeminiKey = "GEMINI_API_KEY"
	EnvGeminiURL = "GEMINI_API_URL"
	EnvSerpKey   = "SERPAPI_KEY"
)

// runtime is everything a command needs to answer queries.
type runtime struct {
	cfg       *config.Config
	registry  *dataset.Registry
	storage   *storage.SQLiteStorage
	store     *learning.Store
	index     *search.Indexer
	tracker   *learning.Tracker
	assistant *assistant.Assistant
}

type runtimeOptions struct {
	// async records outcomes through a background tracker
	async   bool
	metrics *metrics.Exporter
}

// openStore opens the SQLite learning store. It returns nil, nil when
// learning is disabled in the settings.
func openStore(cfg *config.Config) (*storage.SQLiteStorage, *learning.Store, error) {
	if !cfg.Settings.LearningEnabled {
		return nil, nil, nil
	}
	st := storage.NewStorage(config.ExpandPath(cfg.Settings.DBPath))
	if err := st.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return st, learning.NewStore(st, learning.WithRetention(cfg.Settings.Retention())), nil
}

// requireStore is openStore for commands that cannot run without learning.
func requireStore(cfg *config.Config) (*storage.SQLiteStorage, *learning.Store, error) {
	st, store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, fmt.Errorf("%w: set settings.learningEnabled to true", assistant.ErrLearningDisabled)
	}
	return st, store, nil
}

// newRuntime loads datasets, opens storage, builds the retrieval index and
// wires the upstream clients into the assistant.
func newRuntime(ctx context.Context, cfg *config.Config, ro runtimeOptions) (*runtime, error) {
	s := cfg.Settings
	rt := &runtime{cfg: cfg}

	start := time.Now()
	reg, err := dataset.LoadDir(ctx, config.ExpandPath(s.DataDir))
	if err != nil {
		// the assistant still answers arithmetic and web queries without data
		slog.Warn("failed to load datasets", "dir", s.DataDir, "err", err)
	}
	rt.registry = reg
	slog.Info("datasets loaded",
		"datasets", len(reg.Datasets()),
		"documents", len(reg.Documents()),
		"elapsed", time.Since(start))
	if ro.metrics != nil {
		ro.metrics.SetDatasets(len(reg.Datasets()))
	}

	tables := optimizer.DefaultTables()
	var triggers []string
	var aliases []compute.Alias
	if s.LexiconPath != "" {
		lex, err := config.LoadLexicon(config.ExpandPath(s.LexiconPath))
		if err != nil {
			return nil, err
		}
		tables = lex.Tables(tables)
		triggers = lex.Triggers()
		aliases = lex.DepartmentAliases
	}

	rt.storage, rt.store, err = openStore(cfg)
	if err != nil {
		return nil, err
	}

	if s.IndexPath != "" {
		rt.index, err = search.NewIndexerWithPath(config.ExpandPath(s.IndexPath))
	} else {
		rt.index, err = search.NewIndexer()
	}
	if err != nil {
		rt.Close()
		return nil, err
	}
	n, err := rt.index.IndexRegistry(reg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build retrieval index: %w", err)
	}
	slog.Debug("retrieval index built", "chunks", humanize.Comma(int64(n)))

	dispatchOpts := []dispatch.Option{
		dispatch.WithEngine(compute.New(compute.WithAliases(aliases))),
		dispatch.WithRetriever(rt.index),
		dispatch.WithSimilarityK(s.SimilarityK),
		dispatch.WithContextMaxLength(s.ContextMaxLength),
	}
	gemini := upstream.NewGeminiClient(upstream.GeminiConfig{
		APIKey:        os.Getenv(EnvGeminiKey),
		URL:           os.Getenv(EnvGeminiURL),
		Timeout:       s.GenerativeTimeout(),
		RatePerSecond: s.UpstreamRatePerSecond,
	})
	if gemini.Configured() {
		dispatchOpts = append(dispatchOpts, dispatch.WithGenerator(gemini))
	} else {
		slog.Debug("generative summaries disabled", "missing", EnvGeminiKey)
	}
	serp := upstream.NewSerpClient(upstream.SerpConfig{
		APIKey:        os.Getenv(EnvSerpKey),
		Timeout:       s.WebTimeout(),
		RatePerSecond: s.UpstreamRatePerSecond,
	})
	// an unconfigured client still answers with the config error message
	dispatchOpts = append(dispatchOpts, dispatch.WithWebSearcher(serp))

	opts := []assistant.Option{
		assistant.WithDispatcher(dispatch.New(dispatchOpts...)),
		assistant.WithTables(tables),
		assistant.WithWebTriggers(triggers),
	}
	if rt.store != nil {
		opts = append(opts, assistant.WithStore(rt.store))
		if ro.async {
			rt.tracker = learning.NewTracker(rt.store)
			opts = append(opts, assistant.WithTracker(rt.tracker))
		}
	}
	if ro.metrics != nil {
		opts = append(opts, assistant.WithObserver(ro.metrics))
	}
	rt.assistant = assistant.New(reg, opts...)
	return rt, nil
}

// Close flushes pending outcomes and releases storage and the index.
func (rt *runtime) Close() {
	if rt.tracker != nil {
		rt.tracker.Stop()
	}
	if rt.index != nil {
		if err := rt.index.Close(); err != nil {
			slog.Warn("failed to close index", "err", err)
		}
	}
	if rt.storage != nil {
		if err := rt.storage.Close(); err != nil {
			slog.Warn("failed to close storage", "err", err)
		}
	}
}
