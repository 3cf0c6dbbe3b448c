package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"demantive/internal/common/errs"
	common_models "demantive/internal/common/models"
	"demantive/internal/connectors"
	"demantive/internal/features/audit"
	"demantive/internal/features/connection"
	"demantive/internal/features/record"

	"go.uber.org/zap"
)

const (
	fullPageSize  = 100
	quickPageSize = 10
	defaultRuns   = 20

	// a running run older than this belongs to a dead process
	staleRunAge       = 30 * time.Minute
	abandonedRunError = "abandoned: run did not finish"
)

type SyncService interface {
	Run(ctx context.Context, tenantID string, provider common_models.Provider) (*SyncRun, error)
	QuickSync(ctx context.Context, tenantID string, provider common_models.Provider) (*SyncRun, error)
	ListRuns(ctx context.Context, tenantID string, limit int64) ([]SyncRun, error)
	SyncAllActive(ctx context.Context, perRun time.Duration) (int, error)
}

type SyncServiceImpl struct {
	connections  connection.ConnectionService
	clients      connectors.ClientFactory
	rawRepo      RawObjectRepository
	runRepo      SyncRunRepository
	records      record.RecordRepository
	auditService audit.AuditService
	logger       *zap.Logger
	now          func() time.Time
}

func NewSyncService(
	connections connection.ConnectionService,
	clients connectors.ClientFactory,
	rawRepo RawObjectRepository,
	runRepo SyncRunRepository,
	records record.RecordRepository,
	auditService audit.AuditService,
	logger *zap.Logger,
) SyncService {
	return &SyncServiceImpl{
		connections:  connections,
		clients:      clients,
		rawRepo:      rawRepo,
		runRepo:      runRepo,
		records:      records,
		auditService: auditService,
		logger:       logger,
		now:          time.Now,
	}
}

// Run extracts every company, contact and deal into staging, then normalizes all staged rows.
func (s *SyncServiceImpl) Run(ctx context.Context, tenantID string, provider common_models.Provider) (*SyncRun, error) {
	return s.execute(ctx, tenantID, provider, ModeFull)
}

// QuickSync pulls a single small page per object type and normalizes each record as it arrives.
func (s *SyncServiceImpl) QuickSync(ctx context.Context, tenantID string, provider common_models.Provider) (*SyncRun, error) {
	return s.execute(ctx, tenantID, provider, ModeQuick)
}

func (s *SyncServiceImpl) ListRuns(ctx context.Context, tenantID string, limit int64) ([]SyncRun, error) {
	if limit <= 0 {
		limit = defaultRuns
	}
	return s.runRepo.List(ctx, tenantID, limit)
}

// SyncAllActive runs a full sync for every active connection, one after another.
// It returns how many succeeded; individual failures are logged.
func (s *SyncServiceImpl) SyncAllActive(ctx context.Context, perRun time.Duration) (int, error) {
	conns, err := s.connections.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active connections: %w", err)
	}

	succeeded := 0
	for _, conn := range conns {
		runCtx, cancel := context.WithTimeout(ctx, perRun)
		_, err := s.Run(runCtx, conn.TenantID, conn.Provider)
		cancel()
		if err != nil {
			s.logger.Warn("scheduled sync failed",
				zap.String("tenant_id", conn.TenantID),
				zap.String("provider", string(conn.Provider)),
				zap.Error(err),
			)
			continue
		}
		succeeded++
	}
	return succeeded, nil
}

func (s *SyncServiceImpl) execute(ctx context.Context, tenantID string, provider common_models.Provider, mode Mode) (*SyncRun, error) {
	conn, err := s.connections.GetActive(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}
	token, err := s.connections.EnsureFreshToken(ctx, conn)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.ClientFor(provider, token)
	if err != nil {
		return nil, err
	}

	run := &SyncRun{
		TenantID:  tenantID,
		Provider:  provider,
		Mode:      mode,
		Status:    RunRunning,
		StartedAt: s.now().UTC(),
	}
	if n, err := s.runRepo.AbandonStale(ctx, tenantID, provider, run.StartedAt.Add(-staleRunAge)); err != nil {
		return nil, err
	} else if n > 0 {
		s.logger.Warn("abandoned stale sync runs",
			zap.String("tenant_id", tenantID),
			zap.String("provider", string(provider)),
			zap.Int64("count", n),
		)
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, err
	}
	s.logger.Info("sync started",
		zap.String("tenant_id", tenantID),
		zap.String("provider", string(provider)),
		zap.String("mode", string(mode)),
		zap.String("run_id", run.ID.Hex()),
	)

	if mode == ModeQuick {
		err = s.quick(ctx, run, client)
	} else {
		err = s.extract(ctx, run, client)
		if err == nil {
			err = s.normalize(ctx, run)
		}
	}
	if err != nil && ctx.Err() == context.DeadlineExceeded && !errors.Is(err, errs.ErrTimeout) {
		err = fmt.Errorf("%w: %v", errs.ErrTimeout, err)
	}

	return run, s.finish(ctx, run, err)
}

// finish closes the run and records the outcome. Closing must survive a cancelled request.
func (s *SyncServiceImpl) finish(ctx context.Context, run *SyncRun, runErr error) error {
	closeCtx := context.WithoutCancel(ctx)

	finished := s.now().UTC()
	run.FinishedAt = &finished
	run.Status = RunCompleted
	if runErr != nil {
		run.Status = RunFailed
		run.Error = runErr.Error()
	}

	if err := s.runRepo.Close(closeCtx, run); err != nil {
		s.logger.Error("failed to close sync run", zap.String("run_id", run.ID.Hex()), zap.Error(err))
		if runErr == nil {
			return err
		}
	}

	fields := []zap.Field{
		zap.String("tenant_id", run.TenantID),
		zap.String("provider", string(run.Provider)),
		zap.String("run_id", run.ID.Hex()),
		zap.Int("companies", run.Counts.Companies),
		zap.Int("contacts", run.Counts.Contacts),
		zap.Int("deals", run.Counts.Deals),
	}
	if runErr != nil {
		s.logger.Error("sync failed", append(fields, zap.Error(runErr))...)
	} else {
		s.logger.Info("sync completed", fields...)
	}

	_ = s.auditService.LogChange(closeCtx, run.TenantID, common_models.AuditActionSync, "sync", run.ID.Hex(), map[string]common_models.Change{
		"status": {New: run.Status},
		"mode":   {New: run.Mode},
		"counts": {New: run.Counts},
		"error":  {New: run.Error},
	})

	if runErr != nil {
		return runErr
	}
	// the run is already completed; a stale last_synced_at is not worth failing it
	if err := s.connections.MarkSynced(closeCtx, run.TenantID, run.Provider, nil); err != nil {
		s.logger.Warn("failed to mark connection synced", append(fields, zap.Error(err))...)
	}
	return nil
}

func (s *SyncServiceImpl) extract(ctx context.Context, run *SyncRun, client connectors.CRMClient) error {
	for _, objectType := range common_models.IngestionOrder {
		after := ""
		for {
			page, err := client.FetchPage(ctx, objectType, fullPageSize, after)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", objectType, err)
			}
			for i := range page.Results {
				if _, err := s.stage(ctx, run, objectType, &page.Results[i]); err != nil {
					return err
				}
			}
			run.Counts.Add(objectType, len(page.Results))

			if !page.HasMore || page.NextCursor == "" {
				break
			}
			after = page.NextCursor
		}
	}
	return nil
}

// normalize projects every staged row, not only this run's, so the domain tables converge on staging.
func (s *SyncServiceImpl) normalize(ctx context.Context, run *SyncRun) error {
	for _, objectType := range common_models.IngestionOrder {
		err := s.rawRepo.ForEach(ctx, run.TenantID, run.Provider, objectType, func(raw *RawObject) error {
			obj, err := raw.Object()
			if err != nil {
				return err
			}
			return s.project(ctx, run.TenantID, run.Provider, objectType, obj)
		})
		if err != nil {
			return fmt.Errorf("normalize %s: %w", objectType, err)
		}
	}
	return nil
}

func (s *SyncServiceImpl) quick(ctx context.Context, run *SyncRun, client connectors.CRMClient) error {
	for _, objectType := range common_models.IngestionOrder {
		page, err := client.FetchPage(ctx, objectType, quickPageSize, "")
		if err != nil {
			return fmt.Errorf("fetch %s: %w", objectType, err)
		}
		for i := range page.Results {
			obj := &page.Results[i]
			if _, err := s.stage(ctx, run, objectType, obj); err != nil {
				return err
			}
			if err := s.project(ctx, run.TenantID, run.Provider, objectType, obj); err != nil {
				return fmt.Errorf("normalize %s: %w", objectType, err)
			}
		}
		run.Counts.Add(objectType, len(page.Results))
	}
	return nil
}

func (s *SyncServiceImpl) stage(ctx context.Context, run *SyncRun, objectType common_models.ObjectType, obj *connectors.Object) (*RawObject, error) {
	raw, err := NewRawObject(run.TenantID, run.Provider, objectType, obj)
	if err != nil {
		return nil, err
	}
	if err := s.rawRepo.Upsert(ctx, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *SyncServiceImpl) project(ctx context.Context, tenantID string, provider common_models.Provider, objectType common_models.ObjectType, obj *connectors.Object) error {
	switch objectType {
	case common_models.ObjectCompany:
		return s.records.UpsertCompany(ctx, companyFromObject(tenantID, provider, obj))

	case common_models.ObjectContact:
		companyID, err := s.records.CompanyIDByExternalID(ctx, tenantID, provider, obj.Prop("associatedcompanyid"))
		if err != nil {
			return err
		}
		return s.records.UpsertPerson(ctx, personFromObject(tenantID, provider, obj, companyID))

	case common_models.ObjectDeal:
		companyID, err := s.records.CompanyIDByExternalID(ctx, tenantID, provider, obj.FirstAssociation("companies"))
		if err != nil {
			return err
		}
		return s.records.UpsertOpportunity(ctx, opportunityFromObject(tenantID, provider, obj, companyID))
	}
	return fmt.Errorf("unknown object type %q", objectType)
}
