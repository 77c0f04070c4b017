package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bruttobar/pos-client/internal/cart"
	"github.com/bruttobar/pos-client/internal/catalog"
	"github.com/bruttobar/pos-client/internal/checkout"
	"github.com/bruttobar/pos-client/internal/client"
	"github.com/bruttobar/pos-client/internal/domain"
	"github.com/bruttobar/pos-client/internal/repository"
	"github.com/bruttobar/pos-client/internal/session"
)

var (
	ErrCheckoutBusy    = errors.New("order submission in progress")
	ErrUnknownProduct  = errors.New("product not in catalog")
	ErrCatalogNotReady = errors.New("catalog not loaded")
)

type Screen int

const (
	ScreenLoading Screen = iota
	ScreenLogin
	ScreenMain
)

func (s Screen) String() string {
	switch s {
	case ScreenLoading:
		return "loading"
	case ScreenLogin:
		return "login"
	case ScreenMain:
		return "main"
	default:
		return "unknown"
	}
}

// Backend is the remote side of the client: credential exchange plus catalog.
type Backend interface {
	session.Authenticator
	catalog.Fetcher
}

type Deps struct {
	Repo           repository.TokenRepository
	Backend        Backend
	Submitter      checkout.OrderSubmitter
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// App wires the session, catalog, cart and checkout flow together. It is the only place
// that reacts to token changes.
type App struct {
	Session  *session.Store
	Catalog  *catalog.Loader
	Cart     *cart.Store
	Checkout *checkout.Flow

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	wg      sync.WaitGroup
	closers []func() error
}

func New(deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		Session: session.NewStore(deps.Repo, deps.Backend, logger.With("component", "session")),
		Catalog: catalog.NewLoader(deps.Backend, deps.RequestTimeout, logger.With("component", "catalog")),
		Cart:    cart.NewStore(),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	a.Checkout = checkout.NewFlow(a.Cart, deps.Submitter, logger.With("component", "checkout"))
	a.Session.OnChange(a.onTokenChange)
	return a
}

// Start restores the persisted session. The screen stays Loading until it returns.
func (a *App) Start(ctx context.Context) session.Session {
	return a.Session.Restore(ctx)
}

func (a *App) onTokenChange(token string) {
	if token == "" {
		a.Catalog.Reset()
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		st := a.Catalog.Load(a.ctx, token)
		var ce *client.CatalogError
		if errors.As(st.Err, &ce) && ce.Unauthorized() {
			a.logger.Warn("catalog rejected the session token; log out and in again")
		}
	}()
}

func (a *App) Screen() Screen {
	select {
	case <-a.Session.Done():
	default:
		return ScreenLoading
	}
	if a.Session.Current().Authenticated() {
		return ScreenMain
	}
	return ScreenLogin
}

func (a *App) Login(ctx context.Context, username, password string) error {
	_, err := a.Session.Login(ctx, username, password)
	return err
}

// Logout drops the session. The cart is per-session so it is emptied too.
func (a *App) Logout(ctx context.Context) error {
	if a.Checkout.State() == domain.CheckoutSubmitting {
		return ErrCheckoutBusy
	}
	if a.Checkout.State() == domain.CheckoutConfirming {
		_ = a.Checkout.Cancel()
	}
	a.Cart.Clear()
	return a.Session.Logout(ctx)
}

// RefreshCatalog reloads the catalog for the current token.
func (a *App) RefreshCatalog(ctx context.Context) (catalog.State, error) {
	cur := a.Session.Current()
	if !cur.Authenticated() {
		return catalog.State{}, fmt.Errorf("not logged in")
	}
	return a.Catalog.Load(ctx, cur.Token), nil
}

// AddProduct increments the cart line for a catalog product.
func (a *App) AddProduct(id int64) (domain.CartLine, error) {
	item, err := a.lookup(id)
	if err != nil {
		return domain.CartLine{}, err
	}
	a.Cart.Increment(item)
	return domain.CartLine{Item: item, Quantity: a.Cart.Quantity(item.ID)}, nil
}

// RemoveProduct decrements the cart line for a catalog product.
func (a *App) RemoveProduct(id int64) (domain.CartLine, error) {
	item, err := a.lookup(id)
	if err != nil {
		return domain.CartLine{}, err
	}
	a.Cart.Decrement(item)
	return domain.CartLine{Item: item, Quantity: a.Cart.Quantity(item.ID)}, nil
}

// ClearCart empties the cart, closing the review panel if it is open.
func (a *App) ClearCart() error {
	switch a.Checkout.State() {
	case domain.CheckoutSubmitting:
		return ErrCheckoutBusy
	case domain.CheckoutConfirming:
		return a.Checkout.ClearCart()
	default:
		a.Cart.Clear()
		return nil
	}
}

func (a *App) lookup(id int64) (domain.Item, error) {
	if a.Checkout.State() == domain.CheckoutSubmitting {
		return domain.Item{}, ErrCheckoutBusy
	}
	if a.Catalog.State().Status != catalog.StatusReady {
		return domain.Item{}, ErrCatalogNotReady
	}
	p, ok := a.Catalog.Product(id)
	if !ok {
		return domain.Item{}, fmt.Errorf("%w: %d", ErrUnknownProduct, id)
	}
	return p.Item()
}

// Wait blocks until background catalog loads finish.
func (a *App) Wait() {
	a.wg.Wait()
}

func (a *App) Close() error {
	a.cancel()
	a.wg.Wait()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
