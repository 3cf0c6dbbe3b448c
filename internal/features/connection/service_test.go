package connection

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"demantive/internal/common/errs"
	common_models "demantive/internal/common/models"
	"demantive/internal/config"
	"demantive/internal/vault"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type MockConnectionRepository struct {
	mu    sync.Mutex
	conns map[string]OAuthConnection
}

func newMockConnectionRepository() *MockConnectionRepository {
	return &MockConnectionRepository{conns: map[string]OAuthConnection{}}
}

func repoKey(tenantID string, provider common_models.Provider) string {
	return tenantID + "/" + string(provider)
}

func (m *MockConnectionRepository) Upsert(ctx context.Context, conn *OAuthConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.conns[repoKey(conn.TenantID, conn.Provider)]; ok {
		conn.ID = existing.ID
	} else if conn.ID == "" {
		conn.ID = "conn-" + conn.TenantID
	}
	m.conns[repoKey(conn.TenantID, conn.Provider)] = *conn
	return nil
}

func (m *MockConnectionRepository) Get(ctx context.Context, tenantID string, provider common_models.Provider) (*OAuthConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[repoKey(tenantID, provider)]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &conn, nil
}

func (m *MockConnectionRepository) List(ctx context.Context, tenantID string) ([]OAuthConnection, error) {
	return nil, nil
}

func (m *MockConnectionRepository) ListActive(ctx context.Context) ([]OAuthConnection, error) {
	return nil, nil
}

func (m *MockConnectionRepository) UpdateTokens(ctx context.Context, tenantID string, provider common_models.Provider, accessCipher string, refreshCipher *string, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn := m.conns[repoKey(tenantID, provider)]
	conn.AccessTokenCipher = accessCipher
	conn.RefreshTokenCipher = refreshCipher
	conn.ExpiresAt = expiresAt
	conn.Status = StatusActive
	m.conns[repoKey(tenantID, provider)] = conn
	return nil
}

func (m *MockConnectionRepository) UpdateStatus(ctx context.Context, tenantID string, provider common_models.Provider, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn := m.conns[repoKey(tenantID, provider)]
	conn.Status = status
	m.conns[repoKey(tenantID, provider)] = conn
	return nil
}

func (m *MockConnectionRepository) MarkSynced(ctx context.Context, tenantID string, provider common_models.Provider, syncedAt time.Time, cursor *string) error {
	return nil
}

func (m *MockConnectionRepository) Delete(ctx context.Context, tenantID string, provider common_models.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, repoKey(tenantID, provider))
	return nil
}

type MockProvider struct {
	mu           sync.Mutex
	refreshCalls int
	refreshErr   error
	exchangeErr  error
	expiresIn    time.Duration
}

func (p *MockProvider) AuthCodeURL(state string) string {
	return "https://app.hubspot.com/oauth/authorize?state=" + state
}

func (p *MockProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &oauth2.Token{AccessToken: "access-" + code, RefreshToken: "refresh-" + code, Expiry: time.Now().Add(p.expiresIn)}, nil
}

func (p *MockProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls++
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	return &oauth2.Token{AccessToken: "refreshed-access", Expiry: time.Now().Add(p.expiresIn)}, nil
}

func (p *MockProvider) Scopes() []string {
	return []string{"crm.objects.deals.read"}
}

type MockGuard struct {
	admins map[string]bool
}

func (g *MockGuard) RequireAdmin(ctx context.Context, tenantID, userID string) error {
	if !g.admins[tenantID+"/"+userID] {
		return errs.ErrForbidden
	}
	return nil
}

type MockAuditService struct{}

func (MockAuditService) LogChange(ctx context.Context, tenantID string, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (MockAuditService) ListLogs(ctx context.Context, tenantID string, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

type fixture struct {
	svc      *ConnectionServiceImpl
	repo     *MockConnectionRepository
	provider *MockProvider
	vault    *vault.Vault
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	v, err := vault.New(strings.Repeat("1a", 32))
	require.NoError(t, err)

	repo := newMockConnectionRepository()
	provider := &MockProvider{expiresIn: 30 * time.Minute}
	svc := NewConnectionService(
		repo,
		v,
		OAuthProviders{common_models.ProviderHubSpot: provider},
		&MockGuard{admins: map[string]bool{"tenant-1/admin": true}},
		NewStateSigner(&config.Config{JWTSecret: "test-secret"}),
		MockAuditService{},
		zap.NewNop(),
	).(*ConnectionServiceImpl)

	return &fixture{svc: svc, repo: repo, provider: provider, vault: v}
}

// seed stores an active connection whose access token expires at expiresAt.
func (f *fixture) seed(t *testing.T, expiresAt time.Time, withRefresh bool) *OAuthConnection {
	t.Helper()
	access, err := f.vault.Encrypt("old-access")
	require.NoError(t, err)
	conn := &OAuthConnection{
		TenantID:          "tenant-1",
		Provider:          common_models.ProviderHubSpot,
		AccessTokenCipher: access,
		ExpiresAt:         &expiresAt,
		Status:            StatusActive,
	}
	if withRefresh {
		refresh, err := f.vault.Encrypt("old-refresh")
		require.NoError(t, err)
		conn.RefreshTokenCipher = &refresh
	}
	require.NoError(t, f.repo.Upsert(context.Background(), conn))
	return conn
}

func TestBeginAuthorizationRequiresAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.BeginAuthorization(context.Background(), "tenant-1", "viewer", common_models.ProviderHubSpot)
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestBeginAuthorizationIssuesSignedState(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.BeginAuthorization(context.Background(), "tenant-1", "admin", common_models.ProviderHubSpot)
	require.NoError(t, err)

	assert.Len(t, req.State, 32)
	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, req.State, u.Query().Get("state"))

	claims, err := f.svc.ParseStateCookie(req.StateCookie)
	require.NoError(t, err)
	assert.Equal(t, req.State, claims.State)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, common_models.ProviderHubSpot, claims.Provider)
}

func TestBeginAuthorizationUnsupportedProvider(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.BeginAuthorization(context.Background(), "tenant-1", "admin", common_models.ProviderSalesforce)
	assert.ErrorIs(t, err, errs.ErrUnsupportedProvider)
}

func TestCompleteAuthorizationStateMismatch(t *testing.T) {
	f := newFixture(t)

	for _, states := range [][2]string{{"abc", "abd"}, {"", ""}, {"abc", ""}} {
		_, err := f.svc.CompleteAuthorization(context.Background(), "code", states[0], states[1], "tenant-1", common_models.ProviderHubSpot)
		assert.ErrorIs(t, err, errs.ErrStateMismatch)
	}
	assert.Empty(t, f.repo.conns)
}

func TestCompleteAuthorizationStoresEncryptedTokens(t *testing.T) {
	f := newFixture(t)

	conn, err := f.svc.CompleteAuthorization(context.Background(), "xyz", "state", "state", "tenant-1", common_models.ProviderHubSpot)
	require.NoError(t, err)

	stored, err := f.repo.Get(context.Background(), "tenant-1", common_models.ProviderHubSpot)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, stored.Status)
	assert.NotContains(t, stored.AccessTokenCipher, "access-xyz")
	assert.Equal(t, "crm.objects.deals.read", conn.Scope)

	access, err := f.vault.Decrypt(stored.AccessTokenCipher)
	require.NoError(t, err)
	assert.Equal(t, "access-xyz", access)

	require.NotNil(t, stored.RefreshTokenCipher)
	refresh, err := f.vault.Decrypt(*stored.RefreshTokenCipher)
	require.NoError(t, err)
	assert.Equal(t, "refresh-xyz", refresh)
}

func TestCompleteAuthorizationReplacesPriorConnection(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.CompleteAuthorization(context.Background(), "one", "s", "s", "tenant-1", common_models.ProviderHubSpot)
	require.NoError(t, err)
	second, err := f.svc.CompleteAuthorization(context.Background(), "two", "s", "s", "tenant-1", common_models.ProviderHubSpot)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.repo.conns, 1)
}

func TestEnsureFreshTokenSkipsRefreshWhenFresh(t *testing.T) {
	f := newFixture(t)
	conn := f.seed(t, time.Now().Add(time.Hour), true)

	token, err := f.svc.EnsureFreshToken(context.Background(), conn)
	require.NoError(t, err)

	assert.Equal(t, "old-access", token)
	assert.Equal(t, 0, f.provider.refreshCalls)
}

func TestEnsureFreshTokenRefreshesOnceForStaleCopies(t *testing.T) {
	f := newFixture(t)
	conn := f.seed(t, time.Now().Add(2*time.Minute), true)

	first, err := f.svc.EnsureFreshToken(context.Background(), conn)
	require.NoError(t, err)
	second, err := f.svc.EnsureFreshToken(context.Background(), conn)
	require.NoError(t, err)

	assert.Equal(t, "refreshed-access", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.provider.refreshCalls)

	stored, _ := f.repo.Get(context.Background(), "tenant-1", common_models.ProviderHubSpot)
	refresh, err := f.vault.Decrypt(*stored.RefreshTokenCipher)
	require.NoError(t, err)
	assert.Equal(t, "old-refresh", refresh)
}

func TestEnsureFreshTokenConcurrentCallersShareRefresh(t *testing.T) {
	f := newFixture(t)
	conn := f.seed(t, time.Now().Add(-time.Minute), true)

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := f.svc.EnsureFreshToken(context.Background(), conn)
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	for _, tok := range tokens {
		assert.Equal(t, "refreshed-access", tok)
	}
	assert.Equal(t, 1, f.provider.refreshCalls)
}

func TestEnsureFreshTokenInvalidRefreshExpiresConnection(t *testing.T) {
	f := newFixture(t)
	f.provider.refreshErr = &oauth2.RetrieveError{
		Response: &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request"},
		Body:     []byte(`{"status":"BAD_REFRESH_TOKEN","message":"missing or unknown refresh token"}`),
	}
	conn := f.seed(t, time.Now().Add(time.Minute), true)

	_, err := f.svc.EnsureFreshToken(context.Background(), conn)
	assert.ErrorIs(t, err, errs.ErrReauthRequired)

	stored, _ := f.repo.Get(context.Background(), "tenant-1", common_models.ProviderHubSpot)
	assert.Equal(t, StatusExpired, stored.Status)

	_, err = f.svc.GetActive(context.Background(), "tenant-1", common_models.ProviderHubSpot)
	assert.ErrorIs(t, err, errs.ErrReauthRequired)
}

func TestEnsureFreshTokenMissingRefreshToken(t *testing.T) {
	f := newFixture(t)
	conn := f.seed(t, time.Now().Add(time.Minute), false)

	_, err := f.svc.EnsureFreshToken(context.Background(), conn)
	assert.ErrorIs(t, err, errs.ErrReauthRequired)
	assert.Equal(t, 0, f.provider.refreshCalls)
}

func TestEnsureFreshTokenUpstreamFailureKeepsStatus(t *testing.T) {
	f := newFixture(t)
	f.provider.refreshErr = &oauth2.RetrieveError{
		Response: &http.Response{StatusCode: http.StatusInternalServerError, Status: "500 Internal Server Error"},
		Body:     []byte(`{"status":"error","message":"internal error"}`),
	}
	conn := f.seed(t, time.Now().Add(time.Minute), true)

	_, err := f.svc.EnsureFreshToken(context.Background(), conn)

	var upstream *errs.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
	assert.NotErrorIs(t, err, errs.ErrReauthRequired)

	stored, _ := f.repo.Get(context.Background(), "tenant-1", common_models.ProviderHubSpot)
	assert.Equal(t, StatusActive, stored.Status)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, time.Now().Add(time.Hour), true)

	require.NoError(t, f.svc.Disconnect(context.Background(), "tenant-1", common_models.ProviderHubSpot))
	require.NoError(t, f.svc.Disconnect(context.Background(), "tenant-1", common_models.ProviderHubSpot))

	_, err := f.svc.GetActive(context.Background(), "tenant-1", common_models.ProviderHubSpot)
	assert.ErrorIs(t, err, errs.ErrNoConnection)
}
