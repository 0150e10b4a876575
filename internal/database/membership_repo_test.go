package database

import (
	"context"
	"fmt"
	"testing"
)

func TestMembershipRepo(t *testing.T) {
	pool := testPool(t)
	repo := NewMembershipRepository(pool)
	w := createWorkspace(t, pool)
	ctx := context.Background()
	stranger := nextID()

	tests := []struct {
		name  string
		check func() (bool, error)
		want  bool
	}{
		{"owner is channel member", func() (bool, error) { return repo.IsMember(ctx, w.owner, w.channel) }, true},
		{"member is dm member", func() (bool, error) { return repo.IsMember(ctx, w.member, w.dm) }, true},
		{"stranger is not member", func() (bool, error) { return repo.IsMember(ctx, stranger, w.channel) }, false},
		{"owner owns channel", func() (bool, error) { return repo.IsOwner(ctx, w.owner, w.channel) }, true},
		{"member does not own channel", func() (bool, error) { return repo.IsOwner(ctx, w.member, w.channel) }, false},
		{"dm creator owns dm", func() (bool, error) { return repo.IsOwner(ctx, w.owner, w.dm) }, true},
		{"unknown user is not global owner", func() (bool, error) { return repo.IsGlobalOwner(ctx, stranger) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.check()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	members, err := repo.Members(ctx, w.channel)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	handle, err := repo.Handle(ctx, w.member)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if want := fmt.Sprintf("user%d", w.member); handle != want {
		t.Errorf("Handle = %q, want %q", handle, want)
	}

	name, err := repo.ContainerName(ctx, w.channel)
	if err != nil {
		t.Fatalf("ContainerName: %v", err)
	}
	if want := fmt.Sprintf("chan%d", w.channel.ID); name != want {
		t.Errorf("ContainerName = %q, want %q", name, want)
	}
	if _, err := repo.ContainerName(ctx, w.dm); err != nil {
		t.Errorf("ContainerName(dm): %v", err)
	}
}
