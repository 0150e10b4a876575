package database

import (
	"context"
	"testing"
	"time"

	"github.com/victorivanov/huddle/internal/models"
)

func createTestMessage(t *testing.T, repo MessageRepository, c models.Container, authorID int64, body string) *models.Message {
	t.Helper()
	msg := &models.Message{
		ID:        nextID(),
		AuthorID:  authorID,
		Container: c,
		Body:      body,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.Create(context.Background(), msg); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return msg
}

func TestMessageRepo_CreateAndGet(t *testing.T) {
	pool := testPool(t)
	repo := NewMessageRepository(pool)
	w := createWorkspace(t, pool)

	msg := createTestMessage(t, repo, w.dm, w.member, "Hello, world!")

	got, err := repo.GetByID(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil after Create")
	}
	if got.Body != "Hello, world!" {
		t.Errorf("Body = %q, want %q", got.Body, "Hello, world!")
	}
	if got.Container != w.dm {
		t.Errorf("Container = %v, want %v", got.Container, w.dm)
	}
	if !got.CreatedAt.Equal(msg.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, msg.CreatedAt)
	}
}

func TestMessageRepo_GetByID_NotFound(t *testing.T) {
	pool := testPool(t)
	repo := NewMessageRepository(pool)

	got, err := repo.GetByID(context.Background(), 999999999)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestMessageRepo_ListByContainer_NewestFirst(t *testing.T) {
	pool := testPool(t)
	repo := NewMessageRepository(pool)
	w := createWorkspace(t, pool)

	var ids []int64
	for _, body := range []string{"one", "two", "three"} {
		ids = append(ids, createTestMessage(t, repo, w.channel, w.owner, body).ID)
	}
	createTestMessage(t, repo, w.dm, w.owner, "elsewhere")

	msgs, err := repo.ListByContainer(context.Background(), w.channel)
	if err != nil {
		t.Fatalf("ListByContainer: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if want := ids[len(ids)-1-i]; m.ID != want {
			t.Errorf("msgs[%d].ID = %d, want %d", i, m.ID, want)
		}
	}
}

func TestMessageRepo_ApplyAndDelete(t *testing.T) {
	pool := testPool(t)
	repo := NewMessageRepository(pool)
	reactions := NewReactionRepository(pool)
	w := createWorkspace(t, pool)
	ctx := context.Background()

	msg := createTestMessage(t, repo, w.channel, w.member, "draft")
	if err := repo.Apply(ctx, msg.ID, models.EditBody{Body: "final"}); err != nil {
		t.Fatalf("Apply(EditBody): %v", err)
	}
	if err := repo.Apply(ctx, msg.ID, models.SetPinned{Pinned: true}); err != nil {
		t.Fatalf("Apply(SetPinned): %v", err)
	}

	got, _ := repo.GetByID(ctx, msg.ID)
	if got.Body != "final" || !got.Pinned {
		t.Fatalf("unexpected message after patches: %+v", got)
	}

	if _, err := reactions.Add(ctx, msg.ID, w.owner, models.ReactionLike); err != nil {
		t.Fatalf("Add reaction: %v", err)
	}
	if err := repo.Delete(ctx, msg.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := repo.GetByID(ctx, msg.ID); got != nil {
		t.Fatal("message still present after Delete")
	}
	rows, err := reactions.GetByMessages(ctx, []int64{msg.ID})
	if err != nil {
		t.Fatalf("GetByMessages: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected reactions removed with message, got %d", len(rows))
	}
}
