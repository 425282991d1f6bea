// File path: internal/data/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/ecomqa/internal/agent"
	"github.com/nicodishanthj/ecomqa/internal/common"
	"github.com/nicodishanthj/ecomqa/internal/history"
	"github.com/nicodishanthj/ecomqa/internal/llm"
	"github.com/nicodishanthj/ecomqa/internal/sqlite"
)

// ErrHistoryDisabled is returned by History when no history path is configured.
var ErrHistoryDisabled = errors.New("answer history not enabled")

type closer interface {
	Close() error
}

// Lifecycle records whether the loader has run in this process and what it
// produced. A failed load still counts as run; Report says what failed.
type Lifecycle struct {
	StoreLoaded bool               `json:"store_loaded"`
	LoadedAt    time.Time          `json:"loaded_at,omitempty"`
	Report      *sqlite.LoadReport `json:"report,omitempty"`
}

// Orchestrator owns the store, the LLM provider and the question pipeline,
// and serialises reloads against in-flight questions.
type Orchestrator struct {
	cfg Config

	mu        sync.RWMutex
	store     *sqlite.Store
	provider  llm.Provider
	runner    *agent.Runner
	history   *history.Store
	lifecycle Lifecycle

	closers []closer
}

// New validates cfg, resolves the provider, opens the store and runs the
// loader once. Provider errors (including llm.ErrMissingCredential) are
// returned before anything is loaded; load failures are not.
func New(ctx context.Context, cfg Config, opts ...Option) (*Orchestrator, error) {
	logger := common.Logger()
	cfg = applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	settings := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}

	provider := settings.provider
	if provider == nil {
		p, err := llm.NewProvider(ctx, cfg.Provider)
		if err != nil {
			return nil, fmt.Errorf("init llm provider: %w", err)
		}
		provider = p
	}

	var storeCfg sqlite.Config
	if settings.storeConfig != nil {
		storeCfg = *settings.storeConfig
	} else {
		envCfg, err := sqlite.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load sqlite config: %w", err)
		}
		storeCfg = envCfg
	}
	storeCfg.Path = cfg.StorePath
	storeCfg.QueryOnly = storeCfg.QueryOnly || cfg.QueryOnly
	store, err := sqlite.OpenWithConfig(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("init sqlite store: %w", err)
	}

	orch := &Orchestrator{
		cfg:      cfg,
		store:    store,
		provider: provider,
		runner:   agent.NewRunner(provider, store, agent.WithTimeout(cfg.AskTimeout)),
	}
	for _, c := range settings.closers {
		orch.closers = append(orch.closers, c)
	}
	orch.closers = append(orch.closers, store)
	if path := strings.TrimSpace(cfg.HistoryPath); path != "" {
		journal, err := history.NewStore(path)
		if err != nil {
			_ = orch.Close()
			return nil, fmt.Errorf("init history: %w", err)
		}
		orch.history = journal
		logger.Info("orchestrator: recording history", "path", journal.Path())
	}
	logger.Info("orchestrator: initialised", "store", store.Path(), "provider", provider.Name(), "query_only", store.QueryOnly())

	if !settings.skipLoad {
		if _, err := orch.Reload(ctx); err != nil {
			logger.Error("orchestrator: initial load incomplete", "error", err)
		}
	}
	return orch, nil
}

// Reload recreates the store from the configured sources. Questions wait
// until the reload is done.
func (o *Orchestrator) Reload(ctx context.Context) (*sqlite.LoadReport, error) {
	if o == nil {
		return nil, errors.New("orchestrator not initialised")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	report, err := o.store.Rebuild(ctx, o.cfg.ResolvedSources())
	o.lifecycle = Lifecycle{StoreLoaded: true, LoadedAt: time.Now().UTC(), Report: report}
	return report, err
}

// Ask answers one question against the current store.
func (o *Orchestrator) Ask(ctx context.Context, question string) (*agent.Answer, error) {
	if o == nil {
		return nil, errors.New("orchestrator not initialised")
	}
	askedAt := time.Now()
	o.mu.RLock()
	answer, err := o.runner.Ask(ctx, question)
	o.mu.RUnlock()
	if err != nil || o.history == nil {
		return answer, err
	}
	if herr := o.history.Append(context.WithoutCancel(ctx), history.EntryFromAnswer(answer, askedAt)); herr != nil {
		common.Logger().Warn("orchestrator: history append failed", "error", herr)
	}
	return answer, nil
}

// History returns up to limit recorded answers, newest first.
func (o *Orchestrator) History(ctx context.Context, limit int) ([]history.Entry, error) {
	if o == nil || o.history == nil {
		return nil, ErrHistoryDisabled
	}
	return o.history.Recent(ctx, limit)
}

// ClearHistory empties the answer journal.
func (o *Orchestrator) ClearHistory(ctx context.Context) error {
	if o == nil || o.history == nil {
		return ErrHistoryDisabled
	}
	if err := o.history.Clear(ctx); err != nil {
		return err
	}
	common.Logger().Info("orchestrator: history cleared", "path", o.history.Path())
	return nil
}

// Schema returns the current relations and their text description.
func (o *Orchestrator) Schema(ctx context.Context) ([]sqlite.Table, string, error) {
	if o == nil {
		return nil, "", errors.New("orchestrator not initialised")
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	tables, err := o.store.Tables(ctx)
	if err != nil {
		return nil, "", err
	}
	return tables, sqlite.DescribeSchema(tables), nil
}

func (o *Orchestrator) Lifecycle() Lifecycle {
	if o == nil {
		return Lifecycle{}
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lifecycle
}

func (o *Orchestrator) Config() Config {
	if o == nil {
		return Config{}
	}
	return o.cfg
}

func (o *Orchestrator) Store() *sqlite.Store {
	if o == nil {
		return nil
	}
	return o.store
}

func (o *Orchestrator) Provider() llm.Provider {
	if o == nil {
		return nil
	}
	return o.provider
}

// Close releases any resources associated with the orchestrator.
func (o *Orchestrator) Close() error {
	if o == nil {
		return nil
	}
	var err error
	for i := len(o.closers) - 1; i >= 0; i-- {
		closer := o.closers[i]
		if closer == nil {
			continue
		}
		if cerr := closer.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}
