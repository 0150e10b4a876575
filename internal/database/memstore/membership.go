package memstore

import (
	"context"
	"fmt"

	"github.com/victorivanov/huddle/internal/models"
)

// AddUser registers a user handle.
func (s *Store) AddUser(userID int64, handle string, globalOwner bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = &userRow{handle: handle, globalOwner: globalOwner}
}

// AddContainer creates a channel or DM with ownerID as its first member and owner.
func (s *Store) AddContainer(c models.Container, name string, ownerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[c] = &containerRow{
		name:    name,
		members: []int64{ownerID},
		owners:  map[int64]bool{ownerID: true},
	}
}

// Join adds userID to the container's members.
func (s *Store) Join(c models.Container, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.containers[c]
	if !ok {
		return
	}
	for _, id := range row.members {
		if id == userID {
			return
		}
	}
	row.members = append(row.members, userID)
}

// Leave removes userID from the container, dropping ownership too.
func (s *Store) Leave(c models.Container, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.containers[c]
	if !ok {
		return
	}
	kept := row.members[:0]
	for _, id := range row.members {
		if id != userID {
			kept = append(kept, id)
		}
	}
	row.members = kept
	delete(row.owners, userID)
}

// SetOwner grants or revokes container ownership.
func (s *Store) SetOwner(c models.Container, userID int64, owner bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.containers[c]; ok {
		if owner {
			row.owners[userID] = true
		} else {
			delete(row.owners, userID)
		}
	}
}

type membershipRepo struct{ s *Store }

func (r *membershipRepo) IsMember(_ context.Context, userID int64, c models.Container) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.containers[c]
	if !ok {
		return false, nil
	}
	for _, id := range row.members {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *membershipRepo) IsOwner(_ context.Context, userID int64, c models.Container) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.containers[c]
	return ok && row.owners[userID], nil
}

func (r *membershipRepo) IsGlobalOwner(_ context.Context, userID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	return ok && u.globalOwner, nil
}

func (r *membershipRepo) ContainerName(_ context.Context, c models.Container) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.containers[c]
	if !ok {
		return "", fmt.Errorf("container %s not found", c)
	}
	return row.name, nil
}

func (r *membershipRepo) Members(_ context.Context, c models.Container) ([]models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.containers[c]
	if !ok {
		return nil, nil
	}
	members := make([]models.Member, 0, len(row.members))
	for _, id := range row.members {
		var handle string
		if u, ok := r.s.users[id]; ok {
			handle = u.handle
		}
		members = append(members, models.Member{UserID: id, Handle: handle})
	}
	return members, nil
}

func (r *membershipRepo) Handle(_ context.Context, userID int64) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return "", fmt.Errorf("user %d not found", userID)
	}
	return u.handle, nil
}
