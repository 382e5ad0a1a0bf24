// Package scheduler implements the job scheduler (C8): one independent
// retry loop per registered job, with a bounded ring of run history and
// event-bus notification on completion.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/internal/observability"
	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() { validate = validator.New() })
	return validate
}

// Publisher is the narrow event-bus surface the scheduler notifies on job
// completion.
type Publisher interface {
	Publish(event domain.Event)
}

// Scheduler runs one independent loop per registered, enabled job.
type Scheduler struct {
	execs     map[domain.JobKind]domain.JobExecFunc
	publisher Publisher
	historyN  int

	mu      sync.Mutex
	history map[string][]domain.JobRun

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds a Scheduler. execs maps each JobKind to the function that
// performs one run.
func New(execs map[domain.JobKind]domain.JobExecFunc, publisher Publisher, historyN int) *Scheduler {
	if historyN <= 0 {
		historyN = 1000
	}
	return &Scheduler{
		execs:     execs,
		publisher: publisher,
		historyN:  historyN,
		history:   make(map[string][]domain.JobRun),
	}
}

// Start launches an independent loop for every enabled job in configs.
// Invalid configs (failing struct validation) are rejected and never
// launched. Returns the validation errors, if any, for configs skipped.
func (s *Scheduler) Start(ctx context.Context, configs []domain.JobConfig) []error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	var errs []error
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		if err := getValidator().Struct(cfg); err != nil {
			errs = append(errs, fmt.Errorf("op=scheduler.Start: job %s: %w", cfg.JobID, err))
			continue
		}
		if _, ok := s.execs[cfg.Kind]; !ok {
			errs = append(errs, fmt.Errorf("op=scheduler.Start: job %s: no executor registered for kind %s", cfg.JobID, cfg.Kind))
			continue
		}

		s.wg.Add(1)
		go s.runLoop(runCtx, cfg)
	}
	return errs
}

// Stop cancels every running loop and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// runLoop is the per-job scheduling loop from §4.8: interval measured from
// run start, no backlog accumulation if a run overruns its interval.
func (s *Scheduler) runLoop(ctx context.Context, cfg domain.JobConfig) {
	defer s.wg.Done()
	for {
		start := time.Now()
		s.runOnce(ctx, cfg)

		if ctx.Err() != nil {
			return
		}

		next := start.Add(cfg.Interval)
		sleep := time.Until(next)
		if sleep < 0 {
			sleep = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, cfg domain.JobConfig) {
	exec := s.execs[cfg.Kind]
	runID := ulid.Make().String()
	started := time.Now()

	execCtx, cancel := context.WithTimeout(ctx, cfg.MaxExecution)
	defer cancel()

	result, err := exec(execCtx)
	attempts := 1

	if err != nil && cfg.RetryCount > 0 {
		policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.RetryDelay), uint64(cfg.RetryCount))
		boCtx := backoff.WithContext(policy, ctx)
		err = backoff.Retry(func() error {
			attempts++
			observability.JobRetriesTotal.WithLabelValues(string(cfg.Kind)).Inc()
			attemptCtx, attemptCancel := context.WithTimeout(ctx, cfg.MaxExecution)
			defer attemptCancel()
			var rerr error
			result, rerr = exec(attemptCtx)
			return rerr
		}, boCtx)
	}

	run := domain.JobRun{
		RunID:      runID,
		JobID:      cfg.JobID,
		Kind:       cfg.Kind,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Success:    err == nil,
		Attempts:   attempts,
		Result:     result,
	}
	if err != nil {
		run.Error = err.Error()
		slog.Error("job run failed", slog.String("job_id", cfg.JobID), slog.String("kind", string(cfg.Kind)), slog.Any("error", err))
	}

	outcome := "success"
	if !run.Success {
		outcome = "failure"
	}
	observability.JobRunsTotal.WithLabelValues(string(cfg.Kind), outcome).Inc()
	observability.JobRunDuration.WithLabelValues(string(cfg.Kind)).Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())

	s.appendHistory(cfg.JobID, run)

	if s.publisher != nil {
		s.publisher.Publish(domain.Event{
			ID:        ulid.Make().String(),
			Type:      domain.EventJobCompleted,
			Timestamp: time.Now(),
			Source:    "scheduler",
			Payload: map[string]any{
				"job_id": cfg.JobID,
				"kind":   string(cfg.Kind),
				"run_id": run.RunID,
				"success": run.Success,
			},
		})
	}
}

func (s *Scheduler) appendHistory(jobID string, run domain.JobRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.history[jobID], run)
	if len(h) > s.historyN {
		h = h[len(h)-s.historyN:]
	}
	s.history[jobID] = h
}

// History returns the bounded run history for jobID, oldest first.
func (s *Scheduler) History(jobID string) []domain.JobRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.JobRun, len(s.history[jobID]))
	copy(out, s.history[jobID])
	return out
}

// FullSyncExec builds the composite FullSync executor from §4.8: runs
// ProductSync, InventorySync, PriceSync, OrderSync sequentially, recording
// each component's failure without aborting the others.
func FullSyncExec(component map[domain.JobKind]domain.JobExecFunc) domain.JobExecFunc {
	order := []domain.JobKind{domain.JobProductSync, domain.JobInventorySync, domain.JobPriceSync, domain.JobOrderSync}
	return func(ctx domain.Context) (map[string]any, error) {
		results := map[string]any{}
		var firstErr error
		for _, kind := range order {
			exec, ok := component[kind]
			if !ok {
				continue
			}
			res, err := exec(ctx)
			if err != nil {
				results[string(kind)] = map[string]any{"error": err.Error()}
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			results[string(kind)] = res
		}
		return results, firstErr
	}
}
