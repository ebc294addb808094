package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avolkov/banksync/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.Status) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s never reached status %s, last seen: %+v", jobID, want, job)
	return nil
}

func TestPublish_AppliesDefaults(t *testing.T) {
	store := NewStore()
	queue := NewQueue(10, 1, store)
	defer queue.Close()

	job := &jobs.Job{Kind: jobs.KindSyncSweep}
	if err := queue.Publish(context.Background(), job); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if job.ID == "" {
		t.Error("expected an ID assigned")
	}
	if job.Status != jobs.StatusPending {
		t.Errorf("expected status pending, got %s", job.Status)
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected CreatedAt set")
	}
	if job.MaxRetries != 3 {
		t.Errorf("expected default max retries 3, got %d", job.MaxRetries)
	}

	saved, err := store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("expected job persisted: %v", err)
	}
	if saved.Kind != jobs.KindSyncSweep {
		t.Errorf("expected persisted kind, got %s", saved.Kind)
	}
}

func TestQueue_ProcessesJobToCompletion(t *testing.T) {
	store := NewStore()
	queue := NewQueue(10, 2, store)
	defer queue.Close()

	done := make(chan string, 1)
	handler := func(ctx context.Context, job *jobs.Job) error {
		done <- job.ID
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := queue.Start(ctx, handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.Job{Kind: jobs.KindHealthScan}
	if err := queue.Publish(ctx, job); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never invoked")
	}

	completed := waitForStatus(t, store, job.ID, jobs.StatusCompleted)
	if completed.Error != "" {
		t.Errorf("expected no error on completed job, got %q", completed.Error)
	}
	if completed.StartedAt == nil || completed.CompletedAt == nil {
		t.Error("expected start and completion timestamps recorded")
	}
}

func TestQueue_RetriesFailedJob(t *testing.T) {
	store := NewStore()
	queue := NewQueue(10, 1, store)
	defer queue.Close()

	var attempts atomic.Int32
	handler := func(ctx context.Context, job *jobs.Job) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient failure")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := queue.Start(ctx, handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.Job{Kind: jobs.KindSyncSweep, MaxRetries: 3}
	if err := queue.Publish(ctx, job); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if attempts.Load() >= 3 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if got := attempts.Load(); got < 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}

	completed := waitForStatus(t, store, job.ID, jobs.StatusCompleted)
	if completed.RetryCount != 2 {
		t.Errorf("expected 2 retries recorded, got %d", completed.RetryCount)
	}
}

func TestQueue_PublishAfterCloseFails(t *testing.T) {
	queue := NewQueue(10, 1, NewStore())
	if err := queue.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err := queue.Publish(context.Background(), &jobs.Job{Kind: jobs.KindSyncSweep})
	if err == nil {
		t.Fatal("expected Publish to fail on a closed queue")
	}
}

func TestQueue_StopWaitsForInFlightJobs(t *testing.T) {
	store := NewStore()
	queue := NewQueue(10, 1, store)

	started := make(chan struct{})
	release := make(chan struct{})
	handler := func(ctx context.Context, job *jobs.Job) error {
		close(started)
		<-release
		return nil
	}

	ctx := context.Background()
	if err := queue.Start(ctx, handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.Job{Kind: jobs.KindSyncSweep}
	if err := queue.Publish(ctx, job); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	<-started

	stopped := make(chan error, 1)
	go func() {
		stopped <- queue.Stop(context.Background())
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-stopped; err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	waitForStatus(t, store, job.ID, jobs.StatusCompleted)
}
