// Package scheduler запускает периодические задачи сервисов по cron-расписанию.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Job - одна итерация задачи. ctx отменяется при остановке планировщика.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron   *cron.Cron
	logger logger.LoggerPort
	ctx    context.Context
	cancel context.CancelFunc
}

func New(baseLogger logger.LoggerPort) *Scheduler {
	schedLogger := baseLogger.WithFields(logger.Fields{"component": "scheduler"})
	bridge := cronLogger{l: schedLogger}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(bridge),
			// пока предыдущий запуск не закончился, следующий пропускается
			cron.WithChain(cron.Recover(bridge), cron.SkipIfStillRunning(bridge)),
		),
		logger: schedLogger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add регистрирует задачу. spec - стандартное cron-выражение или "@every 1h".
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("scheduler: invalid spec %q for job %s: %w", spec, name, err)
	}
	s.logger.Info("Job registered", logger.Fields{"job": name, "spec": spec})
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	traceID := uuid.NewString()
	jobLogger := s.logger.WithFields(logger.Fields{"job": name, "trace_id": traceID})

	ctx := contextkeys.ContextWithLogger(s.ctx, jobLogger)
	ctx = contextkeys.ContextWithTraceID(ctx, traceID)

	start := time.Now()
	jobLogger.Info("Job started", nil)
	if err := job(ctx); err != nil {
		jobLogger.Error("Job failed", err, logger.Fields{"duration_ms": time.Since(start).Milliseconds()})
		return
	}
	jobLogger.Info("Job finished", logger.Fields{"duration_ms": time.Since(start).Milliseconds()})
}

// RunNow выполняет задачу вне расписания, например при старте сервиса.
func (s *Scheduler) RunNow(name string, job Job) {
	s.run(name, job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop отменяет контекст задач и ждет завершения текущих запусков.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: jobs did not finish: %w", ctx.Err())
	}
}

// cronLogger адаптирует LoggerPort к cron.Logger.
type cronLogger struct {
	l logger.LoggerPort
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, toFields(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, err, toFields(keysAndValues))
}

func toFields(keysAndValues []interface{}) logger.Fields {
	fields := make(logger.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
