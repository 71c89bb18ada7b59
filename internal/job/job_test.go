package job

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJob struct {
	id      uuid.UUID
	jobType string
	payload []byte
	execFn  func(ctx context.Context) error
}

func (j *testJob) ID() uuid.UUID   { return j.id }
func (j *testJob) Type() string    { return j.jobType }
func (j *testJob) Payload() []byte { return j.payload }

func (j *testJob) Execute(ctx context.Context) error {
	if j.execFn != nil {
		return j.execFn(ctx)
	}
	return nil
}

func newTestJob(execFn func(ctx context.Context) error) *testJob {
	return &testJob{id: uuid.New(), jobType: "test", payload: []byte(`{}`), execFn: execFn}
}

// memoryStore is an in-memory Store used by the runner tests.
type memoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
	saveErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[uuid.UUID]*Record)}
}

func (s *memoryStore) Save(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	now := time.Now()
	s.records[job.ID()] = &Record{
		ID: job.ID(), Type: job.Type(), Payload: job.Payload(),
		Status: StatusPending, CreatedAt: now, UpdatedAt: now,
	}
	return nil
}

func (s *memoryStore) UpdateStatus(_ context.Context, id uuid.UUID, status Status, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return errors.New("not found")
	}
	rec.Status = status
	rec.ErrorMessage = msg
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *memoryStore) ListByStatus(_ context.Context, status Status, olderThan time.Duration) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && time.Since(rec.UpdatedAt) < olderThan {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) status(id uuid.UUID) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		return rec.Status
	}
	return ""
}

func (s *memoryStore) put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = &rec
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQueue(t *testing.T) {
	q := NewQueue(1, discardLogger())

	require.NoError(t, q.Enqueue(newTestJob(nil)))

	err := q.Enqueue(newTestJob(nil))
	assert.ErrorIs(t, err, ErrQueueFull)

	q.Close()
	q.Close()

	err = q.Enqueue(newTestJob(nil))
	assert.ErrorIs(t, err, ErrQueueClosed)

	_, ok := <-q.Jobs()
	assert.True(t, ok, "queued job is still delivered after close")
	_, ok = <-q.Jobs()
	assert.False(t, ok)
}

func TestWorkerPool_ProcessesAllJobs(t *testing.T) {
	q := NewQueue(10, discardLogger())
	pool := NewWorkerPool(q, 3, discardLogger())

	var mu sync.Mutex
	seen := make(map[uuid.UUID]bool)
	var wg sync.WaitGroup

	pool.Start(func(ctx context.Context, job Job, workerID int) {
		defer wg.Done()
		mu.Lock()
		seen[job.ID()] = true
		mu.Unlock()
	})

	jobs := make([]*testJob, 5)
	wg.Add(len(jobs))
	for i := range jobs {
		jobs[i] = newTestJob(nil)
		require.NoError(t, q.Enqueue(jobs[i]))
	}
	wg.Wait()

	q.Close()
	pool.Stop()

	for _, j := range jobs {
		assert.True(t, seen[j.ID()])
	}
}

func testRunnerConfig() RunnerConfig {
	cfg := DefaultRunnerConfig()
	cfg.WorkerCount = 1
	cfg.QueueSize = 10
	return cfg
}

func TestRunner_SubmitExecutesAndCompletes(t *testing.T) {
	store := newMemoryStore()
	runner := NewRunner(store, testRunnerConfig(), discardLogger())
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	done := make(chan struct{})
	job := newTestJob(func(ctx context.Context) error {
		close(done)
		return nil
	})
	require.NoError(t, runner.Submit(context.Background(), job))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}

	assert.Eventually(t, func() bool {
		return store.status(job.ID()) == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunner_FailedJobCallsErrorHandler(t *testing.T) {
	store := newMemoryStore()
	runner := NewRunner(store, testRunnerConfig(), discardLogger())

	handled := make(chan error, 1)
	runner.SetErrorHandler(func(job Job, err error) { handled <- err })

	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	job := newTestJob(func(ctx context.Context) error { return errors.New("smtp down") })
	require.NoError(t, runner.Submit(context.Background(), job))

	select {
	case err := <-handled:
		assert.EqualError(t, err, "smtp down")
	case <-time.After(2 * time.Second):
		t.Fatal("error handler was not called")
	}
	assert.Eventually(t, func() bool {
		return store.status(job.ID()) == StatusFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunner_SubmitStoreError(t *testing.T) {
	store := newMemoryStore()
	store.saveErr = errors.New("db down")
	runner := NewRunner(store, testRunnerConfig(), discardLogger())

	err := runner.Submit(context.Background(), newTestJob(nil))
	assert.ErrorContains(t, err, "failed to save job")
}

func TestRunner_SubmitQueueFullDefersJob(t *testing.T) {
	cfg := testRunnerConfig()
	cfg.QueueSize = 1
	store := newMemoryStore()
	runner := NewRunner(store, cfg, discardLogger())

	first, second := newTestJob(nil), newTestJob(nil)
	require.NoError(t, runner.Submit(context.Background(), first))
	require.NoError(t, runner.Submit(context.Background(), second), "an overflowing job is kept, not rejected")

	assert.Equal(t, StatusPending, store.status(second.ID()))
	assert.True(t, runner.isInflight(first.ID()))
	assert.False(t, runner.isInflight(second.ID()))
}

func TestRunner_BurstOverflowingQueueDrains(t *testing.T) {
	cfg := testRunnerConfig()
	cfg.QueueSize = 1
	cfg.WorkerCount = 1
	cfg.PendingJobAge = 20 * time.Millisecond
	cfg.StuckJobCheckInterval = 20 * time.Millisecond
	store := newMemoryStore()
	runner := NewRunner(store, cfg, discardLogger())

	gate := make(chan struct{})
	var mu sync.Mutex
	runs := make(map[uuid.UUID]int)
	execute := func(id uuid.UUID) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			<-gate
			mu.Lock()
			runs[id]++
			mu.Unlock()
			return nil
		}
	}
	runner.Register("test", func(rec Record) (Job, error) {
		return &testJob{id: rec.ID, jobType: rec.Type, execFn: execute(rec.ID)}, nil
	})

	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	jobs := make([]*testJob, 4)
	for i := range jobs {
		jobs[i] = newTestJob(nil)
		jobs[i].execFn = execute(jobs[i].id)
		require.NoError(t, runner.Submit(context.Background(), jobs[i]))
	}
	close(gate)

	assert.Eventually(t, func() bool {
		for _, j := range jobs {
			if store.status(j.ID()) != StatusCompleted {
				return false
			}
		}
		return true
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, j := range jobs {
		assert.Equal(t, 1, runs[j.ID()], "job %s runs exactly once", j.ID())
	}
}

func TestRunner_RecoverBacklogLargerThanQueue(t *testing.T) {
	store := newMemoryStore()
	old := time.Now().Add(-time.Hour)
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
		store.put(Record{ID: ids[i], Type: "test", Status: StatusPending, CreatedAt: old, UpdatedAt: old})
	}

	cfg := testRunnerConfig()
	cfg.QueueSize = 2
	cfg.PendingJobAge = 20 * time.Millisecond
	cfg.StuckJobCheckInterval = 20 * time.Millisecond
	runner := NewRunner(store, cfg, discardLogger())
	runner.Register("test", func(rec Record) (Job, error) {
		return &testJob{id: rec.ID, jobType: rec.Type}, nil
	})

	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	assert.Eventually(t, func() bool {
		for _, id := range ids {
			if store.status(id) != StatusCompleted {
				return false
			}
		}
		return true
	}, 3*time.Second, 10*time.Millisecond)
}

func TestRunner_RecoverRehydratesJobs(t *testing.T) {
	store := newMemoryStore()
	pendingID, processingID, orphanID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()
	store.put(Record{ID: pendingID, Type: "test", Status: StatusPending, CreatedAt: now, UpdatedAt: now})
	store.put(Record{ID: processingID, Type: "test", Status: StatusProcessing, CreatedAt: now, UpdatedAt: now})
	store.put(Record{ID: orphanID, Type: "legacy", Status: StatusPending, CreatedAt: now, UpdatedAt: now})

	var mu sync.Mutex
	executed := make(map[uuid.UUID]bool)

	runner := NewRunner(store, testRunnerConfig(), discardLogger())
	runner.Register("test", func(rec Record) (Job, error) {
		return &testJob{id: rec.ID, jobType: rec.Type, execFn: func(ctx context.Context) error {
			mu.Lock()
			executed[rec.ID] = true
			mu.Unlock()
			return nil
		}}, nil
	})

	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	assert.Eventually(t, func() bool {
		return store.status(pendingID) == StatusCompleted && store.status(processingID) == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.True(t, executed[pendingID])
	assert.True(t, executed[processingID])
	mu.Unlock()

	assert.Equal(t, StatusFailed, store.status(orphanID), "job without a factory is marked failed")
}

func TestRunner_StartTwice(t *testing.T) {
	runner := NewRunner(newMemoryStore(), testRunnerConfig(), discardLogger())
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	assert.Error(t, runner.Start(context.Background()))
}
