package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"demantive/internal/common/errs"
	"demantive/internal/common/models"
	"demantive/internal/connectors"
	"demantive/internal/features/connection"
	"demantive/internal/features/record"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeConnections struct {
	conns      map[string]*connection.OAuthConnection
	getErr     error
	tokenErr   error
	markSynced int
	markErr    error
}

func newFakeConnections(tenants ...string) *fakeConnections {
	f := &fakeConnections{conns: map[string]*connection.OAuthConnection{}}
	for _, t := range tenants {
		f.conns[t] = &connection.OAuthConnection{ID: uuid.NewString(), TenantID: t, Provider: models.ProviderHubSpot, Status: connection.StatusActive}
	}
	return f
}

func (f *fakeConnections) BeginAuthorization(ctx context.Context, tenantID, userID string, provider models.Provider) (*connection.AuthorizationRequest, error) {
	return nil, nil
}
func (f *fakeConnections) ParseStateCookie(cookie string) (*connection.StateClaims, error) {
	return nil, nil
}
func (f *fakeConnections) CompleteAuthorization(ctx context.Context, code, returnedState, storedState, storedTenantID string, provider models.Provider) (*connection.OAuthConnection, error) {
	return nil, nil
}
func (f *fakeConnections) EnsureFreshToken(ctx context.Context, conn *connection.OAuthConnection) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "token-" + conn.TenantID, nil
}
func (f *fakeConnections) GetActive(ctx context.Context, tenantID string, provider models.Provider) (*connection.OAuthConnection, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	conn, ok := f.conns[tenantID]
	if !ok {
		return nil, errs.ErrNoConnection
	}
	return conn, nil
}
func (f *fakeConnections) List(ctx context.Context, tenantID string) ([]connection.OAuthConnection, error) {
	return nil, nil
}
func (f *fakeConnections) ListActive(ctx context.Context) ([]connection.OAuthConnection, error) {
	out := []connection.OAuthConnection{}
	for _, c := range f.conns {
		out = append(out, *c)
	}
	return out, nil
}
func (f *fakeConnections) MarkSynced(ctx context.Context, tenantID string, provider models.Provider, cursor *string) error {
	f.markSynced++
	return f.markErr
}
func (f *fakeConnections) Disconnect(ctx context.Context, tenantID string, provider models.Provider) error {
	return nil
}

type fetchCall struct {
	objectType models.ObjectType
	pageSize   int
	after      string
}

// fakeCRM serves pages keyed by object type and cursor.
type fakeCRM struct {
	pages map[models.ObjectType]map[string]*connectors.Page
	fail  map[models.ObjectType]error
	block bool
	calls []fetchCall
}

func (f *fakeCRM) FetchPage(ctx context.Context, objectType models.ObjectType, pageSize int, after string) (*connectors.Page, error) {
	f.calls = append(f.calls, fetchCall{objectType, pageSize, after})
	if f.block {
		<-ctx.Done()
		return nil, fmt.Errorf("fetch: %w", ctx.Err())
	}
	if err := f.fail[objectType]; err != nil {
		return nil, err
	}
	if page, ok := f.pages[objectType][after]; ok {
		return page, nil
	}
	return &connectors.Page{}, nil
}

type fakeFactory struct {
	clients map[string]connectors.CRMClient
}

func (f *fakeFactory) ClientFor(provider models.Provider, accessToken string) (connectors.CRMClient, error) {
	if provider != models.ProviderHubSpot {
		return nil, errs.ErrUnsupportedProvider
	}
	return f.clients[accessToken], nil
}

type memRawRepo struct {
	order []string
	rows  map[string]*RawObject
	clock func() time.Time
}

func newMemRawRepo() *memRawRepo {
	return &memRawRepo{rows: map[string]*RawObject{}, clock: time.Now}
}

func rawKey(tenantID string, provider models.Provider, objectType models.ObjectType, externalID string) string {
	return tenantID + "|" + string(provider) + "|" + string(objectType) + "|" + externalID
}

func (m *memRawRepo) Upsert(ctx context.Context, obj *RawObject) error {
	now := m.clock()
	key := rawKey(obj.TenantID, obj.Provider, obj.ObjectType, obj.ExternalID)
	if existing, ok := m.rows[key]; ok {
		existing.Payload = obj.Payload
		existing.SystemModstamp = obj.SystemModstamp
		existing.LastSeenAt = now
		return nil
	}
	stored := *obj
	stored.FirstSeenAt = now
	stored.LastSeenAt = now
	m.rows[key] = &stored
	m.order = append(m.order, key)
	return nil
}

func (m *memRawRepo) ForEach(ctx context.Context, tenantID string, provider models.Provider, objectType models.ObjectType, fn func(*RawObject) error) error {
	for _, key := range m.order {
		row := m.rows[key]
		if row.TenantID != tenantID || row.Provider != provider || row.ObjectType != objectType {
			continue
		}
		copied := *row
		if err := fn(&copied); err != nil {
			return err
		}
	}
	return nil
}

func (m *memRawRepo) EnsureIndexes(ctx context.Context) error { return nil }

type memRunRepo struct {
	runs []*SyncRun
}

func (m *memRunRepo) Create(ctx context.Context, run *SyncRun) error {
	for _, r := range m.runs {
		if r.TenantID == run.TenantID && r.Provider == run.Provider && r.Status == RunRunning {
			return errs.ErrSyncInProgress
		}
	}
	run.ID = primitive.NewObjectID()
	stored := *run
	m.runs = append(m.runs, &stored)
	return nil
}

func (m *memRunRepo) Close(ctx context.Context, run *SyncRun) error {
	for _, r := range m.runs {
		if r.ID == run.ID {
			if r.Status != RunRunning {
				return fmt.Errorf("sync run %s is not running", run.ID.Hex())
			}
			*r = *run
			return nil
		}
	}
	return fmt.Errorf("sync run %s not found", run.ID.Hex())
}

func (m *memRunRepo) AbandonStale(ctx context.Context, tenantID string, provider models.Provider, startedBefore time.Time) (int64, error) {
	var n int64
	for _, r := range m.runs {
		if r.TenantID == tenantID && r.Provider == provider && r.Status == RunRunning && r.StartedAt.Before(startedBefore) {
			r.Status = RunFailed
			r.Error = abandonedRunError
			n++
		}
	}
	return n, nil
}

func (m *memRunRepo) List(ctx context.Context, tenantID string, limit int64) ([]SyncRun, error) {
	out := []SyncRun{}
	for _, r := range m.runs {
		if r.TenantID == tenantID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memRunRepo) EnsureIndexes(ctx context.Context) error { return nil }

// memRecords keeps domain rows keyed by external id and logs every write.
type memRecords struct {
	companies map[string]*record.Company
	people    map[string]*record.Person
	opps      map[string]*record.Opportunity
	writes    []string
}

func newMemRecords() *memRecords {
	return &memRecords{
		companies: map[string]*record.Company{},
		people:    map[string]*record.Person{},
		opps:      map[string]*record.Opportunity{},
	}
}

func (m *memRecords) UpsertCompany(ctx context.Context, c *record.Company) error {
	if existing, ok := m.companies[c.ExternalID]; ok {
		c.ID = existing.ID
	} else {
		c.ID = uuid.NewString()
	}
	m.companies[c.ExternalID] = c
	m.writes = append(m.writes, "company:"+c.ExternalID)
	return nil
}

func (m *memRecords) UpsertPerson(ctx context.Context, p *record.Person) error {
	if existing, ok := m.people[p.ExternalID]; ok {
		p.ID = existing.ID
	} else {
		p.ID = uuid.NewString()
	}
	m.people[p.ExternalID] = p
	m.writes = append(m.writes, "contact:"+p.ExternalID)
	return nil
}

func (m *memRecords) UpsertOpportunity(ctx context.Context, o *record.Opportunity) error {
	if existing, ok := m.opps[o.ExternalID]; ok {
		o.ID = existing.ID
	} else {
		o.ID = uuid.NewString()
	}
	m.opps[o.ExternalID] = o
	m.writes = append(m.writes, "deal:"+o.ExternalID)
	return nil
}

func (m *memRecords) CompanyIDByExternalID(ctx context.Context, tenantID string, provider models.Provider, externalID string) (*string, error) {
	c, ok := m.companies[externalID]
	if !ok {
		return nil, nil
	}
	return &c.ID, nil
}

func (m *memRecords) ListCompanies(ctx context.Context, tenantID string, limit, offset int) ([]record.Company, error) {
	return nil, nil
}
func (m *memRecords) ListPeople(ctx context.Context, tenantID string, limit, offset int) ([]record.Person, error) {
	return nil, nil
}
func (m *memRecords) ListOpportunities(ctx context.Context, tenantID string) ([]record.Opportunity, error) {
	return nil, nil
}
func (m *memRecords) CountOpportunities(ctx context.Context, tenantID string) (int, error) {
	return len(m.opps), nil
}

type nopAudit struct {
	entries int
}

func (a *nopAudit) LogChange(ctx context.Context, tenantID string, action models.AuditAction, module string, recordID string, changes map[string]models.Change) error {
	a.entries++
	return nil
}
func (a *nopAudit) ListLogs(ctx context.Context, tenantID string, filters map[string]interface{}, page, limit int64) ([]models.AuditLog, error) {
	return nil, nil
}

// hsObject builds a provider object the way the HubSpot client decodes it.
func hsObject(t *testing.T, id string, props map[string]any, companyID string) connectors.Object {
	t.Helper()
	payload := map[string]any{"id": id, "properties": props}
	if companyID != "" {
		payload["associations"] = map[string]any{
			"companies": map[string]any{
				"results": []map[string]any{{"id": companyID, "type": "deal_to_company"}},
			},
		}
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	var obj connectors.Object
	require.NoError(t, json.Unmarshal(raw, &obj))
	obj.Raw = raw
	return obj
}
