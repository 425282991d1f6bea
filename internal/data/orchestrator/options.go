// File path: internal/data/orchestrator/options.go
package orchestrator

import (
	"io"

	"github.com/nicodishanthj/ecomqa/internal/llm"
	"github.com/nicodishanthj/ecomqa/internal/sqlite"
)

type Option func(*options)

type options struct {
	provider    llm.Provider
	storeConfig *sqlite.Config
	skipLoad    bool
	closers     []io.Closer
}

// WithProvider injects an LLM provider instead of building one from the
// environment. Primarily used in tests.
func WithProvider(provider llm.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithStoreConfig replaces the SQLITE_* environment pool configuration.
func WithStoreConfig(cfg sqlite.Config) Option {
	return func(o *options) {
		o.storeConfig = &cfg
	}
}

// WithLoadSkipped opens the existing store file without rebuilding it.
func WithLoadSkipped() Option {
	return func(o *options) {
		o.skipLoad = true
	}
}

// WithCloser hands a resource, such as a helper process, to the orchestrator
// so Close releases it after the store.
func WithCloser(c io.Closer) Option {
	return func(o *options) {
		if c != nil {
			o.closers = append(o.closers, c)
		}
	}
}
