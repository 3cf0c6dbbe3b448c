package connection

import (
	"context"
	"errors"
	"strings"
	"time"

	"demantive/internal/common/errs"
	"demantive/internal/common/models"
	"demantive/internal/config"

	"golang.org/x/oauth2"
)

// OAuthProvider performs the authorization-code and refresh-token grants against one CRM.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Scopes() []string
}

// OAuthProviders holds the providers with a working OAuth integration.
type OAuthProviders map[models.Provider]OAuthProvider

func NewOAuthProviders(cfg *config.Config) OAuthProviders {
	return OAuthProviders{
		models.ProviderHubSpot: NewHubSpotOAuth(cfg),
	}
}

type HubSpotOAuth struct {
	config *oauth2.Config
}

func NewHubSpotOAuth(cfg *config.Config) *HubSpotOAuth {
	return &HubSpotOAuth{
		config: &oauth2.Config{
			ClientID:     cfg.HubSpotClientID,
			ClientSecret: cfg.HubSpotClientSecret,
			RedirectURL:  cfg.HubSpotRedirectURL,
			Scopes:       cfg.HubSpotScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.HubSpotAuthURL,
				TokenURL:  cfg.HubSpotTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// AuthCodeURL returns the consent URL carrying client_id, redirect_uri, scope and state.
func (p *HubSpotOAuth) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *HubSpotOAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code)
}

func (p *HubSpotOAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	// an empty access token forces the source to hit the token endpoint
	return p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}

func (p *HubSpotOAuth) Scopes() []string {
	return p.config.Scopes
}

// isInvalidRefresh reports whether the provider rejected the refresh token itself,
// as opposed to a transient or server-side failure.
func isInvalidRefresh(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return false
	}
	if re.ErrorCode == "invalid_grant" {
		return true
	}
	body := strings.ToLower(string(re.Body) + " " + re.ErrorDescription)
	return strings.Contains(body, "bad_refresh_token") || strings.Contains(body, "refresh token")
}

// upstreamError converts a token endpoint failure into the service error taxonomy.
func upstreamError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.ErrTimeout
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return &errs.UpstreamError{StatusCode: status, Body: string(re.Body)}
	}
	return &errs.UpstreamError{Body: err.Error()}
}

// tokenScope prefers the scope reported by the provider and falls back to the requested scopes.
func tokenScope(token *oauth2.Token, requested []string) string {
	if s, ok := token.Extra("scope").(string); ok && s != "" {
		return s
	}
	return strings.Join(requested, " ")
}

func tokenExpiry(token *oauth2.Token) *time.Time {
	if token.Expiry.IsZero() {
		return nil
	}
	t := token.Expiry.UTC()
	return &t
}
