package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionSweeper закрывает сессии, время которых прошло
type SessionSweeper interface {
	SweepPastSessions(ctx context.Context, now time.Time) (completed, expired int64, err error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	sweeper  SessionSweeper
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(sweeper SessionSweeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	go s.runSweepTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
	<-s.done
}

// runSweepTask периодически переводит прошедшие сессии в финальный статус
func (s *Scheduler) runSweepTask(ctx context.Context) {
	defer close(s.done)

	// Первый запуск сразу при старте
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("Session sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Session sweep task cancelled")
			return
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	completed, expired, err := s.sweeper.SweepPastSessions(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to sweep past sessions", zap.Error(err))
		return
	}

	if completed > 0 || expired > 0 {
		s.logger.Info("Past sessions swept",
			zap.Int64("completed", completed),
			zap.Int64("expired", expired),
		)
	}
}
