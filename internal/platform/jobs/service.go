package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hibiken/asynq"

	"perfeval/internal/platform/config"
)

var (
	ErrUnknownJob = errors.New("unknown job type")
	ErrNoRedis    = errors.New("REDIS_ADDR must be set for distributed jobs")
)

// Handler executes one job and returns details stored with its run.
type Handler func(ctx context.Context, payload []byte) (any, error)

type queued struct {
	jobType string
	payload []byte
}

// Service records job runs and dispatches work either to asynq, when a
// Redis address is configured, or to an in-process queue.
type Service struct {
	Runs RunStore
	Cfg  config.Config

	mu       sync.RWMutex
	handlers map[string]Handler
	client   *asynq.Client
	queue    chan queued
}

func New(runs RunStore, cfg config.Config) *Service {
	s := &Service{
		Runs:     runs,
		Cfg:      cfg,
		handlers: map[string]Handler{},
		queue:    make(chan queued, 100),
	}
	if cfg.RedisAddr != "" {
		s.client = asynq.NewClient(s.redisOpt())
	}
	return s
}

func (s *Service) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: s.Cfg.RedisAddr}
}

// Distributed reports whether jobs go through Redis.
func (s *Service) Distributed() bool {
	return s.client != nil
}

func (s *Service) Register(jobType string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = h
}

func (s *Service) handler(jobType string) (Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[jobType]
	return h, ok
}

// Start runs the in-process worker until ctx is done. With Redis the
// asynq worker process consumes the queue instead.
func (s *Service) Start(ctx context.Context) {
	if s.Distributed() {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-s.queue:
				if _, err := s.run(ctx, job.jobType, job.payload); err != nil {
					slog.Warn("job failed", "type", job.jobType, "err", err)
				}
			}
		}
	}()
}

// Enqueue schedules a job for asynchronous execution.
func (s *Service) Enqueue(ctx context.Context, jobType string, payload any) error {
	if _, ok := s.handler(jobType); !ok && !s.Distributed() {
		return ErrUnknownJob
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if s.client != nil {
		_, err := s.client.EnqueueContext(ctx, asynq.NewTask(jobType, data), asynq.MaxRetry(3))
		return err
	}
	select {
	case s.queue <- queued{jobType: jobType, payload: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("job queue is full")
	}
}

// RunNow executes a job synchronously and returns its run record details.
func (s *Service) RunNow(ctx context.Context, jobType string, payload any) (any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, jobType, data)
}

func (s *Service) run(ctx context.Context, jobType string, payload []byte) (any, error) {
	h, ok := s.handler(jobType)
	if !ok {
		return nil, ErrUnknownJob
	}
	runID, err := s.Runs.StartRun(ctx, jobType)
	if err != nil {
		slog.Warn("job run insert failed", "type", jobType, "err", err)
	}

	details, jobErr := h(ctx, payload)
	status := StatusCompleted
	if jobErr != nil {
		status = StatusFailed
		details = map[string]string{"error": jobErr.Error()}
	}
	if runID != "" {
		raw, err := json.Marshal(details)
		if err != nil {
			raw = nil
		}
		if err := s.Runs.FinishRun(ctx, runID, status, raw); err != nil {
			slog.Warn("job run update failed", "type", jobType, "err", err)
		}
	}
	return details, jobErr
}

// Mux exposes every registered handler to an asynq server.
func (s *Service) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for jobType := range s.handlers {
		jobType := jobType
		mux.HandleFunc(jobType, func(ctx context.Context, t *asynq.Task) error {
			_, err := s.run(ctx, jobType, t.Payload())
			return err
		})
	}
	return mux
}

// RunWorker consumes the Redis queue until ctx is done.
func (s *Service) RunWorker(ctx context.Context) error {
	if !s.Distributed() {
		return ErrNoRedis
	}
	srv := asynq.NewServer(s.redisOpt(), asynq.Config{Concurrency: s.Cfg.WorkerConcurrency})
	if err := srv.Start(s.Mux()); err != nil {
		return err
	}
	<-ctx.Done()
	srv.Shutdown()
	return nil
}

// RunScheduler enqueues periodic jobs until ctx is done.
func (s *Service) RunScheduler(ctx context.Context) error {
	if !s.Distributed() {
		return ErrNoRedis
	}
	scheduler := asynq.NewScheduler(s.redisOpt(), nil)
	if _, err := scheduler.Register(s.Cfg.CloseExpiredCron, asynq.NewTask(TypeCloseExpired, []byte("{}"))); err != nil {
		return fmt.Errorf("register %s: %w", TypeCloseExpired, err)
	}
	if err := scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	scheduler.Shutdown()
	return nil
}

func (s *Service) ListRuns(ctx context.Context, filter RunFilter, limit, offset int) ([]Run, int, error) {
	runs, err := s.Runs.ListRuns(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Runs.CountRuns(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

func (s *Service) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
