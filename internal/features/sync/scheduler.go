package sync

import (
	"context"
	"fmt"

	"demantive/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler periodically syncs every active connection when SYNC_SCHEDULE is set.
type Scheduler struct {
	service SyncService
	config  *config.Config
	logger  *zap.Logger

	scheduler *cron.Cron
}

func NewScheduler(service SyncService, cfg *config.Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{service: service, config: cfg, logger: logger}
}

func (s *Scheduler) Start() error {
	if s.config.SyncSchedule == "" {
		s.logger.Info("scheduled sync disabled")
		return nil
	}

	s.scheduler = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := s.scheduler.AddFunc(s.config.SyncSchedule, s.runAll); err != nil {
		return fmt.Errorf("invalid SYNC_SCHEDULE %q: %w", s.config.SyncSchedule, err)
	}
	s.scheduler.Start()
	s.logger.Info("scheduled sync enabled", zap.String("schedule", s.config.SyncSchedule))
	return nil
}

func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		ctx := s.scheduler.Stop()
		<-ctx.Done()
	}
}

func (s *Scheduler) runAll() {
	n, err := s.service.SyncAllActive(context.Background(), s.config.SyncTimeout)
	if err != nil {
		s.logger.Error("scheduled sync aborted", zap.Error(err))
		return
	}
	s.logger.Info("scheduled sync finished", zap.Int("succeeded", n))
}
