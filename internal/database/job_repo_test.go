package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/victorivanov/huddle/internal/models"
)

func createTestJob(t *testing.T, repo JobRepository, fireAt time.Time) *models.Job {
	t.Helper()
	job := &models.Job{
		ID:        uuid.NewString(),
		Kind:      models.JobDelayedSend,
		FireAt:    fireAt.UTC().Truncate(time.Microsecond),
		Payload:   []byte(`{"body":"hi"}`),
		State:     models.JobPending,
		CreatedBy: nextID(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return job
}

func TestJobRepo_CreateAndGet(t *testing.T) {
	pool := testPool(t)
	repo := NewJobRepository(pool)
	ctx := context.Background()

	job := createTestJob(t, repo, time.Now().Add(time.Hour))
	t.Cleanup(func() { _, _ = pool.Exec(ctx, `DELETE FROM scheduled_jobs WHERE id = $1`, job.ID) })

	got, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil after Create")
	}
	if got.Kind != models.JobDelayedSend || got.State != models.JobPending {
		t.Errorf("unexpected job %+v", got)
	}
	if !got.FireAt.Equal(job.FireAt) {
		t.Errorf("FireAt = %v, want %v", got.FireAt, job.FireAt)
	}
	if string(got.Payload) != `{"body": "hi"}` && string(got.Payload) != `{"body":"hi"}` {
		t.Errorf("unexpected payload %s", got.Payload)
	}

	missing, err := repo.GetByID(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("GetByID(missing): %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown job, got %+v", missing)
	}
}

func TestJobRepo_ClaimIsExclusive(t *testing.T) {
	pool := testPool(t)
	repo := NewJobRepository(pool)
	ctx := context.Background()

	job := createTestJob(t, repo, time.Now())
	t.Cleanup(func() { _, _ = pool.Exec(ctx, `DELETE FROM scheduled_jobs WHERE id = $1`, job.ID) })

	won, err := repo.Claim(ctx, job.ID)
	if err != nil || !won {
		t.Fatalf("first Claim = %v, %v; want true, nil", won, err)
	}
	won, err = repo.Claim(ctx, job.ID)
	if err != nil || won {
		t.Fatalf("second Claim = %v, %v; want false, nil", won, err)
	}
	cancelled, err := repo.Cancel(ctx, job.ID)
	if err != nil || cancelled {
		t.Fatalf("Cancel after Claim = %v, %v; want false, nil", cancelled, err)
	}
}

func TestJobRepo_ListPending(t *testing.T) {
	pool := testPool(t)
	repo := NewJobRepository(pool)
	ctx := context.Background()

	base := time.Now().Add(time.Hour)
	late := createTestJob(t, repo, base.Add(2*time.Minute))
	early := createTestJob(t, repo, base.Add(time.Minute))
	gone := createTestJob(t, repo, base)
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM scheduled_jobs WHERE id = ANY($1)`, []string{late.ID, early.ID, gone.ID})
	})
	if _, err := repo.Cancel(ctx, gone.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	jobs, err := repo.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	var order []string
	for _, j := range jobs {
		if j.ID == late.ID || j.ID == early.ID || j.ID == gone.ID {
			order = append(order, j.ID)
		}
	}
	if len(order) != 2 || order[0] != early.ID || order[1] != late.ID {
		t.Fatalf("expected [early, late], got %v", order)
	}
}
