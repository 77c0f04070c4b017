package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bruttobar/pos-client/internal/client"
	"github.com/bruttobar/pos-client/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m       sync.Mutex
	token   string
	loadErr error
	saveErr error
	saves   int
	clears  int
}

func (m *mockRepository) Load(context.Context) (string, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.loadErr != nil {
		return "", m.loadErr
	}
	if m.token == "" {
		return "", repository.ErrTokenNotFound
	}
	return m.token, nil
}

func (m *mockRepository) Save(_ context.Context, token string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token = token
	return nil
}

func (m *mockRepository) Clear(context.Context) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.clears++
	m.token = ""
	return nil
}

func (m *mockRepository) Close() error {
	return nil
}

type mockAuth struct {
	tokens map[string]string // password -> token
	calls  int
}

func (a *mockAuth) Login(_ context.Context, _ string, password string) (string, error) {
	a.calls++
	if tok, ok := a.tokens[password]; ok {
		return tok, nil
	}
	return "", &client.AuthenticationError{Status: 401}
}

func TestRestore_NoStoredToken(t *testing.T) {
	store := NewStore(&mockRepository{}, &mockAuth{}, nil)

	select {
	case <-store.Done():
		t.Fatal("session resolved before restore")
	default:
	}

	sess := store.Restore(context.Background())
	assert.False(t, sess.Authenticated())

	select {
	case <-store.Done():
	default:
		t.Fatal("session not resolved after restore")
	}
}

func TestRestore_StoredToken(t *testing.T) {
	store := NewStore(&mockRepository{token: "stored"}, &mockAuth{}, nil)

	var notified []string
	store.OnChange(func(token string) { notified = append(notified, token) })

	sess := store.Restore(context.Background())
	assert.Equal(t, "stored", sess.Token)
	assert.Equal(t, []string{"stored"}, notified)

	// second restore is a no-op
	store.Restore(context.Background())
	assert.Equal(t, []string{"stored"}, notified)
}

func TestRestore_StorageFailureMeansNoSession(t *testing.T) {
	store := NewStore(&mockRepository{loadErr: errors.New("disk on fire")}, &mockAuth{}, nil)

	sess := store.Restore(context.Background())
	assert.False(t, sess.Authenticated())

	got, err := store.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, got.Authenticated())
}

func TestWait_BlocksUntilResolved(t *testing.T) {
	store := NewStore(&mockRepository{token: "tok"}, &mockAuth{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := store.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go store.Restore(context.Background())

	sess, err := store.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.Token)
}

func TestLogin_BadCredentialsLeaveStorageUntouched(t *testing.T) {
	repo := &mockRepository{}
	store := NewStore(repo, &mockAuth{tokens: map[string]string{"good": "tok123"}}, nil)
	store.Restore(context.Background())

	_, err := store.Login(context.Background(), "u", "bad")

	var authErr *client.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Zero(t, repo.saves)
	assert.Zero(t, repo.clears)
	assert.False(t, store.Current().Authenticated())
}

func TestLogin_SuccessPersistsAndActivates(t *testing.T) {
	repo := &mockRepository{token: "old"}
	store := NewStore(repo, &mockAuth{tokens: map[string]string{"good": "tok123"}}, nil)
	store.Restore(context.Background())

	var notified []string
	store.OnChange(func(token string) { notified = append(notified, token) })

	token, err := store.Login(context.Background(), "u", "good")
	require.NoError(t, err)
	assert.Equal(t, "tok123", token)
	assert.Equal(t, "tok123", repo.token)
	assert.Equal(t, "tok123", store.Current().Token)
	assert.Equal(t, []string{"tok123"}, notified)
}

func TestLogin_ResolvesPendingSession(t *testing.T) {
	store := NewStore(&mockRepository{}, &mockAuth{tokens: map[string]string{"good": "tok"}}, nil)

	_, err := store.Login(context.Background(), "u", "good")
	require.NoError(t, err)

	sess, err := store.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.Token)

	// a late restore must not replace the fresh token
	assert.Equal(t, "tok", store.Restore(context.Background()).Token)
}

func TestLogin_SaveFailureKeepsInMemorySession(t *testing.T) {
	repo := &mockRepository{saveErr: errors.New("read-only fs")}
	store := NewStore(repo, &mockAuth{tokens: map[string]string{"good": "tok"}}, nil)

	token, err := store.Login(context.Background(), "u", "good")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, "tok", store.Current().Token)
	assert.Empty(t, repo.token)
}

func TestLogout(t *testing.T) {
	repo := &mockRepository{token: "tok"}
	auth := &mockAuth{}
	store := NewStore(repo, auth, nil)
	store.Restore(context.Background())

	var notified []string
	store.OnChange(func(token string) { notified = append(notified, token) })

	require.NoError(t, store.Logout(context.Background()))
	assert.False(t, store.Current().Authenticated())
	assert.Empty(t, repo.token)
	assert.Equal(t, 1, repo.clears)
	assert.Equal(t, []string{""}, notified)
	assert.Zero(t, auth.calls)
}
