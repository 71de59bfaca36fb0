package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tuanngo/cashbook/internal/jobs"
)

func TestQueuePublishAndProcess(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	q := NewQueue(10, store)

	var processed atomic.Int64
	handler := func(ctx context.Context, job jobs.Job) error {
		processed.Add(1)
		return nil
	}

	if err := q.Start(ctx, handler); err != nil {
		t.Fatal(err)
	}

	job := &jobs.ScanImageJob{
		RunID:    "run-1",
		GCSURI:   "gs://bucket/scans/a.jpg",
		Filename: "a.jpg",
		MimeType: "image/jpeg",
	}
	if err := q.PublishScanImage(ctx, job); err != nil {
		t.Fatal(err)
	}
	if job.JobID == "" {
		t.Fatal("publish must assign a job id")
	}

	deadline := time.Now().Add(2 * time.Second)
	for processed.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if processed.Load() != 1 {
		t.Fatalf("processed = %d, want 1", processed.Load())
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := q.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}

	saved, err := store.GetJob(ctx, job.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Status != jobs.JobStatusCompleted {
		t.Errorf("status = %s, want completed", saved.Status)
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	q := NewQueue(10, store)

	var attempts atomic.Int64
	handler := func(ctx context.Context, job jobs.Job) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient extract failure")
		}
		return nil
	}

	if err := q.Start(ctx, handler); err != nil {
		t.Fatal(err)
	}

	job := &jobs.ScanImageJob{GCSURI: "gs://bucket/scans/b.jpg", Filename: "b.jpg"}
	if err := q.PublishScanImage(ctx, job); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for attempts.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if attempts.Load() < 2 {
		t.Fatalf("attempts = %d, want >= 2", attempts.Load())
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_ = q.Stop(stopCtx)
}

func TestPublishAfterCloseFails(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(1, nil)
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if err := q.PublishScanImage(ctx, &jobs.ScanImageJob{}); err == nil {
		t.Error("publish on a closed queue must fail")
	}
}
