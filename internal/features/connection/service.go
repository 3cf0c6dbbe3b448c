package connection

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"demantive/internal/common/errs"
	common_models "demantive/internal/common/models"
	"demantive/internal/features/audit"
	"demantive/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TokenCipher encrypts tokens at rest.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

// MembershipGuard authorizes connection management.
type MembershipGuard interface {
	RequireAdmin(ctx context.Context, tenantID, userID string) error
}

type ConnectionService interface {
	BeginAuthorization(ctx context.Context, tenantID, userID string, provider common_models.Provider) (*AuthorizationRequest, error)
	ParseStateCookie(cookie string) (*StateClaims, error)
	CompleteAuthorization(ctx context.Context, code, returnedState, storedState, storedTenantID string, provider common_models.Provider) (*OAuthConnection, error)
	EnsureFreshToken(ctx context.Context, conn *OAuthConnection) (string, error)
	GetActive(ctx context.Context, tenantID string, provider common_models.Provider) (*OAuthConnection, error)
	List(ctx context.Context, tenantID string) ([]OAuthConnection, error)
	ListActive(ctx context.Context) ([]OAuthConnection, error)
	MarkSynced(ctx context.Context, tenantID string, provider common_models.Provider, cursor *string) error
	Disconnect(ctx context.Context, tenantID string, provider common_models.Provider) error
}

type ConnectionServiceImpl struct {
	repo         ConnectionRepository
	cipher       TokenCipher
	providers    OAuthProviders
	guard        MembershipGuard
	states       *StateSigner
	auditService audit.AuditService
	logger       *zap.Logger

	refreshGroup singleflight.Group
	now          func() time.Time
}

func NewConnectionService(
	repo ConnectionRepository,
	cipher TokenCipher,
	providers OAuthProviders,
	guard MembershipGuard,
	states *StateSigner,
	auditService audit.AuditService,
	logger *zap.Logger,
) ConnectionService {
	return &ConnectionServiceImpl{
		repo:         repo,
		cipher:       cipher,
		providers:    providers,
		guard:        guard,
		states:       states,
		auditService: auditService,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *ConnectionServiceImpl) BeginAuthorization(ctx context.Context, tenantID, userID string, provider common_models.Provider) (*AuthorizationRequest, error) {
	if err := s.guard.RequireAdmin(ctx, tenantID, userID); err != nil {
		return nil, err
	}
	p, ok := s.providers[provider]
	if !ok {
		return nil, errs.ErrUnsupportedProvider
	}

	state, err := utils.RandomHex(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	cookie, expiresAt, err := s.states.Sign(StateClaims{
		State:    state,
		TenantID: tenantID,
		UserID:   userID,
		Provider: provider,
	}, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to sign state: %w", err)
	}

	return &AuthorizationRequest{
		URL:         p.AuthCodeURL(state),
		State:       state,
		StateCookie: cookie,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *ConnectionServiceImpl) ParseStateCookie(cookie string) (*StateClaims, error) {
	return s.states.Parse(cookie)
}

func (s *ConnectionServiceImpl) CompleteAuthorization(ctx context.Context, code, returnedState, storedState, storedTenantID string, provider common_models.Provider) (*OAuthConnection, error) {
	if returnedState == "" || storedState == "" || subtle.ConstantTimeCompare([]byte(returnedState), []byte(storedState)) != 1 {
		return nil, errs.ErrStateMismatch
	}
	if code == "" {
		return nil, errs.Invalid("authorization code is required")
	}
	p, ok := s.providers[provider]
	if !ok {
		return nil, errs.ErrUnsupportedProvider
	}

	token, err := p.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("code exchange failed", zap.String("tenant_id", storedTenantID), zap.String("provider", string(provider)), zap.Error(err))
		return nil, fmt.Errorf("exchange %s code: %w", provider, upstreamError(err))
	}

	accessCipher, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return nil, err
	}
	var refreshCipher *string
	if token.RefreshToken != "" {
		c, err := s.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return nil, err
		}
		refreshCipher = &c
	}

	conn := &OAuthConnection{
		TenantID:           storedTenantID,
		Provider:           provider,
		AccessTokenCipher:  accessCipher,
		RefreshTokenCipher: refreshCipher,
		Scope:              tokenScope(token, p.Scopes()),
		ExpiresAt:          tokenExpiry(token),
		Status:             StatusActive,
	}
	if err := s.repo.Upsert(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("crm connected", zap.String("tenant_id", storedTenantID), zap.String("provider", string(provider)))
	_ = s.auditService.LogChange(ctx, storedTenantID, common_models.AuditActionConnect, "connection", string(provider), map[string]common_models.Change{
		"status": {New: StatusActive},
	})
	return conn, nil
}

// EnsureFreshToken returns a usable access token, refreshing it first when it is inside
// RefreshWindow. Concurrent callers for the same connection share one refresh, and the stored
// row is re-read before refreshing so a caller holding a stale copy does not refresh twice.
func (s *ConnectionServiceImpl) EnsureFreshToken(ctx context.Context, conn *OAuthConnection) (string, error) {
	if !conn.NeedsRefresh(s.now()) {
		return s.cipher.Decrypt(conn.AccessTokenCipher)
	}

	key := conn.TenantID + "/" + string(conn.Provider)
	v, err, _ := s.refreshGroup.Do(key, func() (interface{}, error) {
		return s.refresh(ctx, conn.TenantID, conn.Provider)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *ConnectionServiceImpl) refresh(ctx context.Context, tenantID string, provider common_models.Provider) (string, error) {
	current, err := s.repo.Get(ctx, tenantID, provider)
	if errors.Is(err, errs.ErrNotFound) {
		return "", errs.ErrNoConnection
	}
	if err != nil {
		return "", err
	}
	if current.Status != StatusActive {
		return "", errs.ErrReauthRequired
	}
	if !current.NeedsRefresh(s.now()) {
		return s.cipher.Decrypt(current.AccessTokenCipher)
	}

	p, ok := s.providers[provider]
	if !ok {
		return "", errs.ErrUnsupportedProvider
	}
	if current.RefreshTokenCipher == nil {
		s.expire(ctx, tenantID, provider, "no refresh token stored")
		return "", errs.ErrReauthRequired
	}
	refreshToken, err := s.cipher.Decrypt(*current.RefreshTokenCipher)
	if err != nil {
		return "", err
	}

	token, err := p.Refresh(ctx, refreshToken)
	if err != nil {
		if isInvalidRefresh(err) {
			s.expire(ctx, tenantID, provider, err.Error())
			return "", fmt.Errorf("refresh %s token: %w", provider, errs.ErrReauthRequired)
		}
		s.logger.Warn("token refresh failed", zap.String("tenant_id", tenantID), zap.String("provider", string(provider)), zap.Error(err))
		return "", fmt.Errorf("refresh %s token: %w", provider, upstreamError(err))
	}

	accessCipher, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return "", err
	}
	refreshCipher := current.RefreshTokenCipher
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		c, err := s.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return "", err
		}
		refreshCipher = &c
	}

	if err := s.repo.UpdateTokens(ctx, tenantID, provider, accessCipher, refreshCipher, tokenExpiry(token)); err != nil {
		return "", err
	}
	s.logger.Info("token refreshed", zap.String("tenant_id", tenantID), zap.String("provider", string(provider)))
	return token.AccessToken, nil
}

func (s *ConnectionServiceImpl) expire(ctx context.Context, tenantID string, provider common_models.Provider, reason string) {
	s.logger.Warn("connection expired", zap.String("tenant_id", tenantID), zap.String("provider", string(provider)), zap.String("reason", reason))
	if err := s.repo.UpdateStatus(ctx, tenantID, provider, StatusExpired); err != nil {
		s.logger.Error("failed to mark connection expired", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	_ = s.auditService.LogChange(ctx, tenantID, common_models.AuditActionUpdate, "connection", string(provider), map[string]common_models.Change{
		"status": {Old: StatusActive, New: StatusExpired},
	})
}

// GetActive returns the tenant's connection. A missing row is ErrNoConnection; a row that is
// no longer active needs the user to reconnect.
func (s *ConnectionServiceImpl) GetActive(ctx context.Context, tenantID string, provider common_models.Provider) (*OAuthConnection, error) {
	conn, err := s.repo.Get(ctx, tenantID, provider)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrNoConnection
	}
	if err != nil {
		return nil, err
	}
	if conn.Status != StatusActive {
		return nil, errs.ErrReauthRequired
	}
	return conn, nil
}

func (s *ConnectionServiceImpl) List(ctx context.Context, tenantID string) ([]OAuthConnection, error) {
	return s.repo.List(ctx, tenantID)
}

func (s *ConnectionServiceImpl) ListActive(ctx context.Context) ([]OAuthConnection, error) {
	return s.repo.ListActive(ctx)
}

func (s *ConnectionServiceImpl) MarkSynced(ctx context.Context, tenantID string, provider common_models.Provider, cursor *string) error {
	return s.repo.MarkSynced(ctx, tenantID, provider, s.now().UTC(), cursor)
}

func (s *ConnectionServiceImpl) Disconnect(ctx context.Context, tenantID string, provider common_models.Provider) error {
	if !provider.Valid() {
		return errs.ErrUnsupportedProvider
	}
	if err := s.repo.Delete(ctx, tenantID, provider); err != nil {
		return err
	}
	s.logger.Info("crm disconnected", zap.String("tenant_id", tenantID), zap.String("provider", string(provider)))
	_ = s.auditService.LogChange(ctx, tenantID, common_models.AuditActionDisconnect, "connection", string(provider), nil)
	return nil
}
