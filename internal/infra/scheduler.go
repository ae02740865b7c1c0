package infra

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"tradeledger/internal/domain"
)

// PositionChecker runs one SL/TP monitoring pass
type PositionChecker interface {
	CheckPositions(ctx context.Context) (*domain.MonitorReport, error)
}

// Scheduler drives the position monitor on a cron schedule.
// A tick that fires while the previous pass is still running is skipped.
type Scheduler struct {
	cron     *cron.Cron
	monitor  PositionChecker
	schedule string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler. schedule uses the standard five-field cron format.
func NewScheduler(monitor PositionChecker, schedule string, logger *zap.Logger) *Scheduler {
	if schedule == "" {
		schedule = "*/1 * * * *"
	}
	cl := cronLogger{logger: logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
			cron.WithLogger(cl),
		),
		monitor:  monitor,
		schedule: schedule,
		timeout:  50 * time.Second,
		logger:   logger,
	}
}

// Start registers the monitor job and starts the cron loop
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.RunNow); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("[OK] Scheduler started successfully")
	return nil
}

// RunNow executes one monitoring pass synchronously
func (s *Scheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.monitor.CheckPositions(ctx)
	if errors.Is(err, domain.ErrMonitorBusy) {
		s.logger.Debug("monitor pass skipped, previous pass still running")
		return
	}
	if err != nil {
		s.logger.Error("scheduled monitor pass failed", zap.Error(err))
		return
	}
	if len(report.Closed) > 0 || len(report.Failed) > 0 {
		s.logger.Info("monitor pass finished",
			zap.Int("checked", report.Checked),
			zap.Strings("closed", report.Closed),
			zap.Strings("failed", report.Failed),
		)
	}
}

// Stop stops the scheduler and waits for a running pass to finish
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
	s.logger.Info("[OK] Scheduler stopped")
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
