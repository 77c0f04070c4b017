package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bruttobar/pos-client/internal/catalog"
	"github.com/bruttobar/pos-client/internal/client"
	"github.com/bruttobar/pos-client/internal/config"
	"github.com/bruttobar/pos-client/internal/domain"
	"github.com/bruttobar/pos-client/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogJSON = `[{"id":1,"name":"Bar","events":[{"id":10,"name":"Friday","products":[
	{"id":7,"name":"Beer","description":null,"image":null,"price":"15.00"},
	{"id":8,"name":"Cider","description":"dry","image":"https://img/c.png","price":"20.50"}]}]}]`

type backendServer struct {
	*httptest.Server
	catalogCalls atomic.Int32
	lastAuth     atomic.Value
}

func newBackend(t *testing.T) *backendServer {
	b := &backendServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("tok123"))
	})
	mux.HandleFunc("GET /storefronts", func(w http.ResponseWriter, r *http.Request) {
		b.catalogCalls.Add(1)
		b.lastAuth.Store(r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer tok123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(catalogJSON))
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

type submitterMock struct {
	mu      sync.Mutex
	orders  []domain.Order
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *submitterMock) Submit(ctx context.Context, order domain.Order) error {
	if s.started != nil {
		close(s.started)
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.orders = append(s.orders, order)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupApp(t *testing.T, sub *submitterMock) (*App, *backendServer, repository.TokenRepository) {
	backend := newBackend(t)
	repo := repository.NewFileRepository(filepath.Join(t.TempDir(), "session.json"))
	if sub == nil {
		sub = &submitterMock{}
	}
	a := New(Deps{
		Repo:           repo,
		Backend:        client.New(client.Options{BaseURL: backend.URL, Logger: discardLogger()}),
		Submitter:      sub,
		RequestTimeout: 2 * time.Second,
		Logger:         discardLogger(),
	})
	t.Cleanup(func() { _ = a.Close() })
	return a, backend, repo
}

func loggedIn(t *testing.T, a *App) {
	a.Start(context.Background())
	require.NoError(t, a.Login(context.Background(), "u", "good"))
	a.Wait()
	require.Equal(t, catalog.StatusReady, a.Catalog.State().Status)
}

func TestScreen_LoadingUntilRestored(t *testing.T) {
	a, backend, _ := setupApp(t, nil)

	assert.Equal(t, ScreenLoading, a.Screen())

	sess := a.Start(context.Background())
	a.Wait()

	assert.False(t, sess.Authenticated())
	assert.Equal(t, ScreenLogin, a.Screen())
	assert.Equal(t, int32(0), backend.catalogCalls.Load())
	assert.Equal(t, catalog.StatusIdle, a.Catalog.State().Status)
}

func TestLogin_PersistsTokenAndFetchesCatalog(t *testing.T) {
	a, backend, repo := setupApp(t, nil)
	a.Start(context.Background())

	require.NoError(t, a.Login(context.Background(), "u", "good"))
	a.Wait()

	stored, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok123", stored)
	assert.Equal(t, ScreenMain, a.Screen())
	assert.Equal(t, int32(1), backend.catalogCalls.Load())
	assert.Equal(t, "Bearer tok123", backend.lastAuth.Load())

	st := a.Catalog.State()
	require.Equal(t, catalog.StatusReady, st.Status)
	assert.Len(t, domain.Products(st.Storefronts), 2)
}

func TestLogin_BadCredentials(t *testing.T) {
	a, backend, repo := setupApp(t, nil)
	a.Start(context.Background())

	err := a.Login(context.Background(), "u", "bad")

	var authErr *client.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)
	assert.Equal(t, ScreenLogin, a.Screen())
	assert.Equal(t, int32(0), backend.catalogCalls.Load())
}

func TestStart_RestoredTokenFetchesCatalog(t *testing.T) {
	a, backend, repo := setupApp(t, nil)
	require.NoError(t, repo.Save(context.Background(), "tok123"))

	sess := a.Start(context.Background())
	a.Wait()

	assert.Equal(t, "tok123", sess.Token)
	assert.Equal(t, ScreenMain, a.Screen())
	assert.Equal(t, int32(1), backend.catalogCalls.Load())
	assert.Equal(t, catalog.StatusReady, a.Catalog.State().Status)
}

func TestStart_StaleTokenShowsCatalogError(t *testing.T) {
	a, _, repo := setupApp(t, nil)
	require.NoError(t, repo.Save(context.Background(), "expired"))

	a.Start(context.Background())
	a.Wait()

	st := a.Catalog.State()
	require.Equal(t, catalog.StatusFailed, st.Status)
	assert.Nil(t, st.Storefronts)
	assert.EqualError(t, st.Err, "HTTP 401")
	assert.Equal(t, ScreenMain, a.Screen())
}

func TestAddRemoveProduct(t *testing.T) {
	a, _, _ := setupApp(t, nil)
	loggedIn(t, a)

	line, err := a.AddProduct(7)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
	_, err = a.AddProduct(7)
	require.NoError(t, err)
	_, err = a.AddProduct(8)
	require.NoError(t, err)

	assert.Equal(t, domain.Money(5050), a.Cart.Total())

	line, err = a.RemoveProduct(7)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, domain.Money(3550), a.Cart.Total())

	_, err = a.AddProduct(99)
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestAddProduct_CatalogNotReady(t *testing.T) {
	a, _, _ := setupApp(t, nil)
	a.Start(context.Background())

	_, err := a.AddProduct(7)
	assert.ErrorIs(t, err, ErrCatalogNotReady)
}

func TestLogout_ResetsEverything(t *testing.T) {
	a, _, repo := setupApp(t, nil)
	loggedIn(t, a)
	_, err := a.AddProduct(7)
	require.NoError(t, err)

	require.NoError(t, a.Logout(context.Background()))

	assert.Equal(t, ScreenLogin, a.Screen())
	assert.True(t, a.Cart.IsEmpty())
	assert.Equal(t, catalog.StatusIdle, a.Catalog.State().Status)
	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)
}

func TestCheckout_EndToEnd(t *testing.T) {
	sub := &submitterMock{}
	a, _, _ := setupApp(t, sub)
	loggedIn(t, a)

	_, err := a.AddProduct(7)
	require.NoError(t, err)
	_, err = a.AddProduct(7)
	require.NoError(t, err)

	require.NoError(t, a.Checkout.OpenConfirm())
	order, err := a.Checkout.Confirm(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.Money(3000), order.Total)
	assert.True(t, a.Cart.IsEmpty())
	assert.Equal(t, domain.CheckoutIdle, a.Checkout.State())
	require.Len(t, sub.orders, 1)
	assert.Equal(t, order.ID, sub.orders[0].ID)
}

func TestCartLockedWhileSubmitting(t *testing.T) {
	sub := &submitterMock{started: make(chan struct{}), release: make(chan struct{})}
	a, _, _ := setupApp(t, sub)
	loggedIn(t, a)
	_, err := a.AddProduct(7)
	require.NoError(t, err)
	require.NoError(t, a.Checkout.OpenConfirm())

	done := make(chan error, 1)
	go func() {
		_, err := a.Checkout.Confirm(context.Background())
		done <- err
	}()
	<-sub.started

	_, err = a.AddProduct(8)
	assert.ErrorIs(t, err, ErrCheckoutBusy)
	_, err = a.RemoveProduct(7)
	assert.ErrorIs(t, err, ErrCheckoutBusy)
	assert.ErrorIs(t, a.ClearCart(), ErrCheckoutBusy)
	assert.ErrorIs(t, a.Logout(context.Background()), ErrCheckoutBusy)

	close(sub.release)
	require.NoError(t, <-done)
	assert.True(t, a.Cart.IsEmpty())
}

func TestClearCart_ClosesReview(t *testing.T) {
	a, _, _ := setupApp(t, nil)
	loggedIn(t, a)
	_, err := a.AddProduct(8)
	require.NoError(t, err)
	require.NoError(t, a.Checkout.OpenConfirm())

	require.NoError(t, a.ClearCart())

	assert.True(t, a.Cart.IsEmpty())
	assert.Equal(t, domain.CheckoutIdle, a.Checkout.State())
}

func TestNewTokenRepository(t *testing.T) {
	dir := t.TempDir()
	mr := miniredis.RunT(t)

	cases := []struct {
		name string
		cfg  config.Config
	}{
		{"file", config.Config{TokenStore: "file", TokenPath: filepath.Join(dir, "a", "session.json")}},
		{"sqlite", config.Config{TokenStore: "sqlite", SQLitePath: filepath.Join(dir, "b", "session.db")}},
		{"redis", config.Config{TokenStore: "redis", RedisAddr: mr.Addr()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, err := NewTokenRepository(context.Background(), &tc.cfg)
			require.NoError(t, err)
			defer repo.Close()

			require.NoError(t, repo.Save(context.Background(), "tok123"))
			got, err := repo.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "tok123", got)
		})
	}
}

func TestNewTokenRepository_RedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewTokenRepository(context.Background(), &config.Config{TokenStore: "redis", RedisAddr: addr})
	assert.Error(t, err)
}

func TestNewFromConfig_CountsOrders(t *testing.T) {
	backend := newBackend(t)
	reg := prometheus.NewRegistry()
	cfg := &config.Config{
		APIBaseURL:     backend.URL,
		RequestTimeout: 2 * time.Second,
		TokenStore:     "file",
		TokenPath:      filepath.Join(t.TempDir(), "session.json"),
		OrderSink:      "log",
	}

	a, err := NewFromConfig(context.Background(), cfg, reg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	loggedIn(t, a)
	_, err = a.AddProduct(8)
	require.NoError(t, err)
	require.NoError(t, a.Checkout.OpenConfirm())
	_, err = a.Checkout.Confirm(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "pos_orders_total"))
	mfs, err := reg.Gather()
	require.NoError(t, err)
	var amount float64
	for _, mf := range mfs {
		if mf.GetName() == "pos_order_amount_minor_total" {
			amount = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2050), amount)
}

func TestInstrumentedSubmitter_Failure(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newInstrumentedSubmitter(&submitterMock{err: errors.New("boom")}, reg)

	err := s.Submit(context.Background(), domain.Order{ID: "x", Total: 100})

	assert.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(s.orders.WithLabelValues("failed")))
	assert.Equal(t, float64(0), testutil.ToFloat64(s.amount))
}

func TestScreenString(t *testing.T) {
	assert.Equal(t, "loading", ScreenLoading.String())
	assert.Equal(t, "login", ScreenLogin.String())
	assert.Equal(t, "main", ScreenMain.String())
}
