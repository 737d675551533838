package service

import (
	"context"
	"showings/internal/calendarsync/repository"
	"showings/pkg/config"
	"showings/pkg/logger"
	"showings/pkg/model"
	"sync"

	"golang.org/x/oauth2"
)

// TokenSourceProvider turns a stored credential into a token source for calendar calls.
type TokenSourceProvider interface {
	TokenSource(ctx context.Context, cred *model.CalendarCredential) oauth2.TokenSource
}

// TokenProvider refreshes access tokens with the OAuth2 refresh-token flow and writes
// each new token back to the credential store and the shared cache.
type TokenProvider struct {
	oauth *oauth2.Config
	repo  repository.CredentialRepository
	cache repository.TokenCache
	log   *logger.Logger
}

func NewTokenProvider(cfg *config.Config, repo repository.CredentialRepository, cache repository.TokenCache) *TokenProvider {
	if cache == nil {
		cache = repository.NoopTokenCache()
	}
	return &TokenProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.GoogleTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		repo:  repo,
		cache: cache,
		log:   cfg.Log.Component("calendar-tokens"),
	}
}

func (p *TokenProvider) TokenSource(ctx context.Context, cred *model.CalendarCredential) oauth2.TokenSource {
	current := &oauth2.Token{
		AccessToken: cred.AccessToken,
		Expiry:      cred.Expiry,
	}
	if cached, ok := p.cache.Get(ctx, cred.OwnerID); ok {
		current = cached
	}
	if current.AccessToken == "" {
		current = nil
	}

	refresher := &writeBackSource{
		ctx:      ctx,
		ownerID:  cred.OwnerID,
		base:     p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}),
		provider: p,
	}
	return oauth2.ReuseTokenSource(current, refresher)
}

type writeBackSource struct {
	ctx      context.Context
	ownerID  string
	base     oauth2.TokenSource
	provider *TokenProvider

	mu   sync.Mutex
	last string
}

func (s *writeBackSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		s.provider.log.Warn("Access token refresh failed", "owner_id", s.ownerID, "error", err)
		return nil, err
	}

	s.mu.Lock()
	fresh := token.AccessToken != s.last
	s.last = token.AccessToken
	s.mu.Unlock()

	if fresh {
		if err := s.provider.repo.SaveToken(s.ctx, s.ownerID, token); err != nil {
			s.provider.log.Warn("Failed to persist refreshed token", "owner_id", s.ownerID, "error", err)
		}
		s.provider.cache.Set(s.ctx, s.ownerID, token)
		s.provider.log.Debug("Access token refreshed", "owner_id", s.ownerID, "expiry", token.Expiry)
	}
	return token, nil
}
