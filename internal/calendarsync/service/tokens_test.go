package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	calendarsyncerrors "showings/internal/calendarsync/errors"
	"showings/pkg/model"

	"golang.org/x/oauth2"
)

type memCredentialRepo struct {
	mu     sync.Mutex
	creds  map[string]*model.CalendarCredential
	saved  []*oauth2.Token
	upsert error
}

func newCredentialRepo() *memCredentialRepo {
	return &memCredentialRepo{creds: map[string]*model.CalendarCredential{}}
}

func (m *memCredentialRepo) Upsert(ctx context.Context, cred *model.CalendarCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsert != nil {
		return m.upsert
	}
	cp := *cred
	m.creds[cred.OwnerID] = &cp
	return nil
}

func (m *memCredentialRepo) FindByOwner(ctx context.Context, ownerID string) (*model.CalendarCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[ownerID]
	if !ok {
		return nil, calendarsyncerrors.ErrCredentialMissing
	}
	cp := *cred
	return &cp, nil
}

func (m *memCredentialRepo) SaveToken(ctx context.Context, ownerID string, token *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, token)
	if cred, ok := m.creds[ownerID]; ok {
		cred.AccessToken = token.AccessToken
		cred.Expiry = token.Expiry
	}
	return nil
}

func (m *memCredentialRepo) Delete(ctx context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[ownerID]; !ok {
		return calendarsyncerrors.ErrCredentialMissing
	}
	delete(m.creds, ownerID)
	return nil
}

type memTokenCache struct {
	mu      sync.Mutex
	tokens  map[string]*oauth2.Token
	deleted []string
}

func newTokenCache() *memTokenCache {
	return &memTokenCache{tokens: map[string]*oauth2.Token{}}
}

func (c *memTokenCache) Get(ctx context.Context, ownerID string) (*oauth2.Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tok, ok := c.tokens[ownerID]
	return tok, ok
}

func (c *memTokenCache) Set(ctx context.Context, ownerID string, token *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[ownerID] = token
}

func (c *memTokenCache) Delete(ctx context.Context, ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, ownerID)
	c.deleted = append(c.deleted, ownerID)
}

func newTokenServer(t *testing.T, refreshes *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-1" {
			t.Errorf("unexpected token request form %v", r.Form)
		}
		if r.Form.Get("client_id") != "client-id" {
			t.Errorf("client_id = %q", r.Form.Get("client_id"))
		}
		*refreshes++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenProvider_RefreshesAndWritesBack(t *testing.T) {
	refreshes := 0
	srv := newTokenServer(t, &refreshes)

	cfg := testConfig()
	cfg.GoogleClientID = "client-id"
	cfg.GoogleClientSecret = "client-secret"
	cfg.GoogleTokenURL = srv.URL

	repo := newCredentialRepo()
	cache := newTokenCache()
	cred := &model.CalendarCredential{OwnerID: "owner-1", RefreshToken: "refresh-1"}
	repo.creds["owner-1"] = cred

	ts := NewTokenProvider(cfg, repo, cache).TokenSource(context.Background(), cred)
	for i := 0; i < 3; i++ {
		tok, err := ts.Token()
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if tok.AccessToken != "fresh-access" {
			t.Errorf("AccessToken = %q", tok.AccessToken)
		}
	}

	if refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", refreshes)
	}
	if len(repo.saved) != 1 || repo.saved[0].AccessToken != "fresh-access" {
		t.Errorf("saved tokens = %v", repo.saved)
	}
	if cached, ok := cache.Get(context.Background(), "owner-1"); !ok || cached.AccessToken != "fresh-access" {
		t.Errorf("cache = %v, %v", cached, ok)
	}
}

func TestTokenProvider_UsesValidStoredToken(t *testing.T) {
	refreshes := 0
	srv := newTokenServer(t, &refreshes)

	cfg := testConfig()
	cfg.GoogleClientID = "client-id"
	cfg.GoogleTokenURL = srv.URL

	cache := newTokenCache()
	cache.tokens["owner-1"] = &oauth2.Token{AccessToken: "cached-access", Expiry: time.Now().Add(time.Hour)}
	cred := &model.CalendarCredential{OwnerID: "owner-1", RefreshToken: "refresh-1"}

	tok, err := NewTokenProvider(cfg, newCredentialRepo(), cache).TokenSource(context.Background(), cred).Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "cached-access" {
		t.Errorf("AccessToken = %q, want cached-access", tok.AccessToken)
	}
	if refreshes != 0 {
		t.Errorf("refreshes = %d, want 0", refreshes)
	}
}

func TestTokenProvider_ExpiredStoredTokenRefreshes(t *testing.T) {
	refreshes := 0
	srv := newTokenServer(t, &refreshes)

	cfg := testConfig()
	cfg.GoogleClientID = "client-id"
	cfg.GoogleTokenURL = srv.URL

	cred := &model.CalendarCredential{
		OwnerID:      "owner-1",
		RefreshToken: "refresh-1",
		AccessToken:  "stale",
		Expiry:       time.Now().Add(-time.Minute),
	}

	tok, err := NewTokenProvider(cfg, newCredentialRepo(), nil).TokenSource(context.Background(), cred).Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "fresh-access" || refreshes != 1 {
		t.Errorf("AccessToken = %q, refreshes = %d", tok.AccessToken, refreshes)
	}
}
