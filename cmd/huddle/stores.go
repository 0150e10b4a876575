package main

import (
	"context"
	"fmt"

	"github.com/victorivanov/huddle/internal/api"
	"github.com/victorivanov/huddle/internal/config"
	"github.com/victorivanov/huddle/internal/database"
	"github.com/victorivanov/huddle/internal/database/memstore"
	"github.com/victorivanov/huddle/internal/models"
	"github.com/victorivanov/huddle/internal/service"
)

// stores bundles the repositories of one backend.
type stores struct {
	messages      database.MessageRepository
	reactions     database.ReactionRepository
	notifications database.NotificationRepository
	standups      database.StandupRepository
	jobs          database.JobRepository
	membership    database.MembershipRepository

	pinger api.Pinger
	close  func()
	seed   func(ctx context.Context, notifier *service.Notifier) error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memoryStores(), nil
	default:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return &stores{
			messages:      database.NewMessageRepository(pool),
			reactions:     database.NewReactionRepository(pool),
			notifications: database.NewNotificationRepository(pool),
			standups:      database.NewStandupRepository(pool),
			jobs:          database.NewJobRepository(pool),
			membership:    database.NewMembershipRepository(pool),
			pinger:        pool,
			close:         pool.Close,
		}, nil
	}
}

// memoryStores returns a volatile backend seeded with a demo workspace:
// users 1 (alice, global owner) and 2 (bob), channel 1 "general" owned by
// alice with bob as a member, and DM 1 between them.
func memoryStores() *stores {
	store := memstore.New()
	return &stores{
		messages:      store.Messages(),
		reactions:     store.Reactions(),
		notifications: store.Notifications(),
		standups:      store.Standups(),
		jobs:          store.Jobs(),
		membership:    store.Membership(),
		pinger:        store,
		close:         func() {},
		seed: func(ctx context.Context, notifier *service.Notifier) error {
			const alice, bob int64 = 1, 2
			general, dm := models.Channel(1), models.DM(1)

			store.AddUser(alice, "alice", true)
			store.AddUser(bob, "bob", false)
			store.AddContainer(general, "general", alice)
			store.Join(general, bob)
			store.AddContainer(dm, "alice, bob", alice)
			store.Join(dm, bob)

			if err := notifier.OnAdded(ctx, general, alice, bob); err != nil {
				return err
			}
			return notifier.OnAdded(ctx, dm, alice, bob)
		},
	}
}
