package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestScheduler_RunsJobRepeatedly(t *testing.T) {
	var runs int32
	execs := map[domain.JobKind]domain.JobExecFunc{
		domain.JobProductSync: func(ctx domain.Context) (map[string]any, error) {
			atomic.AddInt32(&runs, 1)
			return map[string]any{"ok": true}, nil
		},
	}
	pub := &recordingPublisher{}
	s := New(execs, pub, 10)

	cfg := domain.JobConfig{
		JobID:        "product-sync",
		Kind:         domain.JobProductSync,
		Interval:     10 * time.Millisecond,
		Enabled:      true,
		MaxExecution: time.Second,
	}

	errs := s.Start(context.Background(), []domain.JobConfig{cfg})
	require.Empty(t, errs)
	defer s.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) >= 2
	}, time.Second, 5*time.Millisecond)

	require.NotEmpty(t, s.History("product-sync"))
}

func TestScheduler_RetriesOnFailureThenSucceeds(t *testing.T) {
	var attempts int32
	execs := map[domain.JobKind]domain.JobExecFunc{
		domain.JobPriceSync: func(ctx domain.Context) (map[string]any, error) {
			n := atomic.AddInt32(&attempts, 1)
			if n < 3 {
				return nil, errors.New("transient")
			}
			return map[string]any{"attempt": n}, nil
		},
	}
	pub := &recordingPublisher{}
	s := New(execs, pub, 10)

	cfg := domain.JobConfig{
		JobID:        "price-sync",
		Kind:         domain.JobPriceSync,
		Interval:     time.Hour,
		Enabled:      true,
		RetryCount:   5,
		RetryDelay:   time.Millisecond,
		MaxExecution: time.Second,
	}

	errs := s.Start(context.Background(), []domain.JobConfig{cfg})
	require.Empty(t, errs)
	defer s.Stop()

	require.Eventually(t, func() bool {
		hist := s.History("price-sync")
		return len(hist) == 1 && hist[0].Success
	}, time.Second, 5*time.Millisecond)

	hist := s.History("price-sync")
	require.True(t, hist[0].Success)
	require.GreaterOrEqual(t, hist[0].Attempts, 3)
}

func TestScheduler_InvalidConfigRejected(t *testing.T) {
	execs := map[domain.JobKind]domain.JobExecFunc{
		domain.JobProductSync: func(ctx domain.Context) (map[string]any, error) { return nil, nil },
	}
	s := New(execs, nil, 10)

	cfg := domain.JobConfig{
		JobID:   "broken",
		Kind:    domain.JobProductSync,
		Enabled: true,
		// Interval and MaxExecution left zero, both required>0.
	}

	errs := s.Start(context.Background(), []domain.JobConfig{cfg})
	require.Len(t, errs, 1)
	s.Stop()
}

func TestScheduler_DisabledJobNeverRuns(t *testing.T) {
	var runs int32
	execs := map[domain.JobKind]domain.JobExecFunc{
		domain.JobOrderSync: func(ctx domain.Context) (map[string]any, error) {
			atomic.AddInt32(&runs, 1)
			return nil, nil
		},
	}
	s := New(execs, nil, 10)

	cfg := domain.JobConfig{
		JobID:        "order-sync",
		Kind:         domain.JobOrderSync,
		Interval:     10 * time.Millisecond,
		Enabled:      false,
		MaxExecution: time.Second,
	}

	errs := s.Start(context.Background(), []domain.JobConfig{cfg})
	require.Empty(t, errs)
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	require.Equal(t, int32(0), atomic.LoadInt32(&runs))
}

func TestScheduler_PublishesJobCompletedEvent(t *testing.T) {
	execs := map[domain.JobKind]domain.JobExecFunc{
		domain.JobProductSync: func(ctx domain.Context) (map[string]any, error) {
			return map[string]any{}, nil
		},
	}
	pub := &recordingPublisher{}
	s := New(execs, pub, 10)

	cfg := domain.JobConfig{
		JobID:        "product-sync",
		Kind:         domain.JobProductSync,
		Interval:     time.Hour,
		Enabled:      true,
		MaxExecution: time.Second,
	}
	errs := s.Start(context.Background(), []domain.JobConfig{cfg})
	require.Empty(t, errs)
	defer s.Stop()

	require.Eventually(t, func() bool {
		return pub.count() >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestFullSyncExec_AggregatesAndIsolatesFailures(t *testing.T) {
	components := map[domain.JobKind]domain.JobExecFunc{
		domain.JobProductSync:   func(ctx domain.Context) (map[string]any, error) { return map[string]any{"n": 1}, nil },
		domain.JobInventorySync: func(ctx domain.Context) (map[string]any, error) { return nil, errors.New("inventory down") },
		domain.JobPriceSync:     func(ctx domain.Context) (map[string]any, error) { return map[string]any{"n": 3}, nil },
		domain.JobOrderSync:     func(ctx domain.Context) (map[string]any, error) { return map[string]any{"n": 4}, nil },
	}
	exec := FullSyncExec(components)

	result, err := exec(context.Background())
	require.Error(t, err)
	require.Contains(t, result, string(domain.JobProductSync))
	require.Contains(t, result, string(domain.JobInventorySync))
	require.Contains(t, result, string(domain.JobPriceSync))
	require.Contains(t, result, string(domain.JobOrderSync))
}
