package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bruttobar/pos-client/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Fetcher retrieves the storefront hierarchy for a token.
type Fetcher interface {
	GetStorefronts(ctx context.Context, token string) ([]domain.Storefront, error)
}

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is what the product list renders. Storefronts is only set when Status is StatusReady;
// a failed fetch never exposes the previous snapshot.
type State struct {
	Status      Status
	Storefronts []domain.Storefront
	Err         error
}

// Loader holds the last catalog snapshot. Each Load supersedes earlier ones: a response that
// arrives after a newer Load started is dropped.
type Loader struct {
	fetcher Fetcher
	timeout time.Duration
	logger  *slog.Logger
	sfg     singleflight.Group // dedupes concurrent fetches for the same token

	mu         sync.RWMutex
	generation uint64
	state      State
}

func NewLoader(fetcher Fetcher, timeout time.Duration, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetcher: fetcher,
		timeout: timeout,
		logger:  logger,
	}
}

// Load fetches the catalog for token and returns the resulting state.
func (l *Loader) Load(ctx context.Context, token string) State {
	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.state = State{Status: StatusLoading}
	l.mu.Unlock()

	v, err, shared := l.sfg.Do(token, func() (interface{}, error) {
		fetchCtx := ctx
		if l.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, l.timeout)
			defer cancel()
		}
		return l.fetcher.GetStorefronts(fetchCtx, token)
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation {
		l.logger.DebugContext(ctx, "dropping superseded catalog response", "generation", gen, "current", l.generation)
		return l.state
	}

	if err != nil {
		l.logger.WarnContext(ctx, "catalog fetch failed", "error", err)
		l.state = State{Status: StatusFailed, Err: err}
		return l.state
	}

	storefronts := v.([]domain.Storefront)
	l.logger.DebugContext(ctx, "catalog loaded", "storefronts", len(storefronts), "shared", shared)
	l.state = State{Status: StatusReady, Storefronts: storefronts}
	return l.state
}

// Refresh runs Load in the background. The channel receives the state once and is closed.
func (l *Loader) Refresh(ctx context.Context, token string) <-chan State {
	ch := make(chan State, 1)
	go func() {
		defer close(ch)
		ch <- l.Load(ctx, token)
	}()
	return ch
}

// Reset drops the snapshot and invalidates any in-flight fetch.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.state = State{Status: StatusIdle}
}

func (l *Loader) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Product finds a product in the current snapshot.
func (l *Loader) Product(id int64) (domain.Product, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state.Status != StatusReady {
		return domain.Product{}, false
	}
	return domain.FindProduct(l.state.Storefronts, id)
}
