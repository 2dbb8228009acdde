package document

import (
	"context"
	"fmt"
	"strings"

	"medqc-hq/medqc/pkg/config"
)

// Provider supplies the document context sent with every chunk. The audit
// treats the result as opaque text.
type Provider interface {
	Context(ctx context.Context, text string) (string, error)
}

// Full passes the document through unchanged apart from trimming.
type Full struct{}

// Context returns the trimmed text.
func (Full) Context(_ context.Context, text string) (string, error) {
	return strings.TrimSpace(text), nil
}

// New returns the provider selected by cfg.Strategy.
func New(cfg config.DocumentConfig, contextWindow int) (Provider, error) {
	switch cfg.Strategy {
	case "", "focus":
		return NewFocusCondenser(cfg, contextWindow)
	case "full":
		return Full{}, nil
	default:
		return nil, fmt.Errorf("unknown document strategy %q", cfg.Strategy)
	}
}
