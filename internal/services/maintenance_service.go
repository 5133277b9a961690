package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/locking"
	"github.com/grandstay/hotel-booking-backend/internal/payment"
)

// MaintenanceConfig tunes the background maintenance jobs
type MaintenanceConfig struct {
	StaleLockAge   time.Duration // lock entries idle longer than this are reclaimed
	NoShowGrace    time.Duration // how long past check-in before a booking is a no-show
	ReclaimSpec    string        // cron spec for the stale lock sweep
	ProbeSpec      string        // cron spec for forcing gateway probes
	NoShowSpec     string        // cron spec for the no-show sweep
}

// DefaultMaintenanceConfig returns the default maintenance schedule
func DefaultMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		StaleLockAge: 10 * time.Minute,
		NoShowGrace:  24 * time.Hour,
		// second minute hour day month weekday
		ReclaimSpec: "0 */5 * * * *", // every 5 minutes
		ProbeSpec:   "0 * * * * *",   // every minute
		NoShowSpec:  "0 0 3 * * *",   // daily at 3:00 AM
	}
}

// MaintenanceService runs the scheduled housekeeping jobs: stale lock
// reclamation, gateway probe refresh and the no-show sweep.
type MaintenanceService struct {
	cron         *cron.Cron
	locks        *locking.LockManager
	router       *payment.Router
	orchestrator *BookingOrchestratorService
	config       MaintenanceConfig
	logger       *logrus.Logger
}

// NewMaintenanceService creates a maintenance service
func NewMaintenanceService(
	locks *locking.LockManager,
	router *payment.Router,
	orchestrator *BookingOrchestratorService,
	config MaintenanceConfig,
	logger *logrus.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		cron:         cron.New(cron.WithSeconds()),
		locks:        locks,
		router:       router,
		orchestrator: orchestrator,
		config:       config,
		logger:       logger,
	}
}

// Start schedules all maintenance jobs and starts the scheduler
func (s *MaintenanceService) Start() error {
	if _, err := s.cron.AddFunc(s.config.ReclaimSpec, s.reclaimStaleLocksJob); err != nil {
		return fmt.Errorf("failed to schedule stale lock reclamation: %w", err)
	}
	if _, err := s.cron.AddFunc(s.config.ProbeSpec, s.refreshGatewayHealthJob); err != nil {
		return fmt.Errorf("failed to schedule gateway probe refresh: %w", err)
	}
	if _, err := s.cron.AddFunc(s.config.NoShowSpec, s.markNoShowsJob); err != nil {
		return fmt.Errorf("failed to schedule no-show sweep: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"reclaim_spec": s.config.ReclaimSpec,
		"probe_spec":   s.config.ProbeSpec,
		"no_show_spec": s.config.NoShowSpec,
	}).Info("Maintenance service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *MaintenanceService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Maintenance service stopped")
}

// reclaimStaleLocksJob drops idle lock entries so the lock table does not
// grow without bound under a large room inventory
func (s *MaintenanceService) reclaimStaleLocksJob() {
	reclaimed := s.locks.ReclaimStale(s.config.StaleLockAge)
	if reclaimed > 0 {
		s.logger.WithField("reclaimed", reclaimed).Info("Reclaimed stale lock entries")
	}
}

// refreshGatewayHealthJob forces due probes so circuit-open gateways can
// recover even while no payments are flowing
func (s *MaintenanceService) refreshGatewayHealthJob() {
	s.router.ForceProbe()
}

// markNoShowsJob flags overdue confirmed bookings and frees their rooms
func (s *MaintenanceService) markNoShowsJob() {
	start := time.Now()
	marked := s.orchestrator.MarkNoShows(time.Now().Add(-s.config.NoShowGrace))
	if marked > 0 {
		s.logger.WithFields(logrus.Fields{
			"marked":   marked,
			"duration": time.Since(start).String(),
		}).Info("No-show sweep completed")
	}
}

// JobStatus reports the scheduled jobs for the ops endpoint
func (s *MaintenanceService) JobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
