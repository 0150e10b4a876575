package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/victorivanov/huddle/internal/database/memstore"
	"github.com/victorivanov/huddle/internal/models"
	"github.com/victorivanov/huddle/internal/msgid"
	"github.com/victorivanov/huddle/internal/scheduler"
)

const (
	alice int64 = 1 // owner of #general and the DM
	bob   int64 = 2
	carol int64 = 3
	bobby int64 = 4
	root  int64 = 9 // global owner, not a member of anything
)

var (
	general = models.Channel(10)
	random  = models.Channel(11)
	aliceDM = models.DM(20)
	epoch   = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
)

type dispatched struct {
	UserID int64
	Event  string
	Data   any
}

type fakeDispatcher struct {
	mu     sync.Mutex
	events []dispatched
}

func (d *fakeDispatcher) DispatchToUser(userID int64, event string, data any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, dispatched{UserID: userID, Event: event, Data: data})
}

func (d *fakeDispatcher) recipients(event string) []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ids []int64
	for _, e := range d.events {
		if e.Event == event {
			ids = append(ids, e.UserID)
		}
	}
	return ids
}

type fixture struct {
	ctx      context.Context
	store    *memstore.Store
	clock    *scheduler.ManualClock
	sched    *scheduler.Scheduler
	gw       *fakeDispatcher
	notifier *Notifier
	messages *MessageService
	deferred *DeferredService
	standups *StandupService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	store.AddUser(alice, "alice", false)
	store.AddUser(bob, "bob", false)
	store.AddUser(carol, "carol", false)
	store.AddUser(bobby, "bobby", false)
	store.AddUser(root, "root", true)

	store.AddContainer(general, "general", alice)
	store.Join(general, bob)
	store.Join(general, carol)
	store.Join(general, bobby)
	store.AddContainer(random, "random", carol)
	store.Join(random, bob)
	store.AddContainer(aliceDM, "alice, bob", alice)
	store.Join(aliceDM, bob)

	clock := scheduler.NewManualClock(epoch)
	sched := scheduler.New(store.Jobs(), clock, time.Second)
	t.Cleanup(sched.Stop)

	gw := &fakeDispatcher{}
	notifier := NewNotifier(store.Notifications(), store.Membership(), gw, clock)
	messages := NewMessageService(
		store.Messages(),
		store.Reactions(),
		store.Notifications(),
		store.Membership(),
		notifier,
		msgid.NewSeeded(7),
		clock,
		gw,
	)

	return &fixture{
		ctx:      context.Background(),
		store:    store,
		clock:    clock,
		sched:    sched,
		gw:       gw,
		notifier: notifier,
		messages: messages,
		deferred: NewDeferredService(messages, store.Jobs(), store.Standups(), sched),
		standups: NewStandupService(store.Standups(), store.Membership(), store.Jobs(), messages, sched),
	}
}

// notes returns every notification recorded for userID, newest first.
func (f *fixture) notes(t *testing.T, userID int64) []string {
	t.Helper()
	all, err := f.store.Notifications().ListByRecipient(f.ctx, userID, 1000)
	if err != nil {
		t.Fatalf("listing notifications: %v", err)
	}
	texts := make([]string, len(all))
	for i, n := range all {
		texts[i] = n.Text
	}
	return texts
}

func (f *fixture) send(t *testing.T, c models.Container, author int64, body string) int64 {
	t.Helper()
	id, err := f.messages.Send(f.ctx, c, author, body)
	if err != nil {
		t.Fatalf("Send(%q): %v", body, err)
	}
	return id
}

func (f *fixture) allMessages(t *testing.T, c models.Container) []models.Message {
	t.Helper()
	msgs, err := f.store.Messages().ListByContainer(f.ctx, c)
	if err != nil {
		t.Fatalf("listing messages: %v", err)
	}
	return msgs
}
