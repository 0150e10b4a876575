// Package memstore is an in-process implementation of the database
// repositories. It backs the development STORE=memory mode and the engine
// tests. Every repository shares one Store so cascades and standup flushes
// see a single consistent state.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/victorivanov/huddle/internal/database"
	"github.com/victorivanov/huddle/internal/models"
)

type messageRow struct {
	seq int64
	msg models.Message
}

type reactionRow struct {
	seq int64
	r   models.Reaction
}

type notificationRow struct {
	seq int64
	n   models.Notification
}

type userRow struct {
	handle      string
	globalOwner bool
}

type containerRow struct {
	name    string
	members []int64
	owners  map[int64]bool
}

// Store holds all state. The zero value is not usable; call New.
type Store struct {
	mu  sync.Mutex
	seq int64

	messages      map[int64]*messageRow
	reactions     []reactionRow
	notifications []notificationRow
	standups      map[int64]*models.StandupSession
	jobs          map[string]*models.Job

	users      map[int64]*userRow
	containers map[models.Container]*containerRow
}

func New() *Store {
	return &Store{
		messages:   make(map[int64]*messageRow),
		standups:   make(map[int64]*models.StandupSession),
		jobs:       make(map[string]*models.Job),
		users:      make(map[int64]*userRow),
		containers: make(map[models.Container]*containerRow),
	}
}

// Ping always succeeds; it lets the store stand in for a database on /health.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Messages() database.MessageRepository           { return &messageRepo{s} }
func (s *Store) Reactions() database.ReactionRepository         { return &reactionRepo{s} }
func (s *Store) Notifications() database.NotificationRepository { return &notificationRepo{s} }
func (s *Store) Standups() database.StandupRepository           { return &standupRepo{s} }
func (s *Store) Jobs() database.JobRepository                   { return &jobRepo{s} }
func (s *Store) Membership() database.MembershipRepository      { return &membershipRepo{s} }

// --- messages ---

type messageRepo struct{ s *Store }

func (r *messageRepo) Create(_ context.Context, msg *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertMessage(msg)
}

func (s *Store) insertMessage(msg *models.Message) error {
	if _, exists := s.messages[msg.ID]; exists {
		return fmt.Errorf("message %d already exists", msg.ID)
	}
	s.messages[msg.ID] = &messageRow{seq: s.nextSeq(), msg: *msg}
	return nil
}

func (r *messageRepo) GetByID(_ context.Context, id int64) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.messages[id]
	if !ok {
		return nil, nil
	}
	m := row.msg
	return &m, nil
}

func (r *messageRepo) ListByContainer(_ context.Context, c models.Container) ([]models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := make([]*messageRow, 0)
	for _, row := range r.s.messages {
		if row.msg.Container == c {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	messages := make([]models.Message, len(rows))
	for i, row := range rows {
		messages[i] = row.msg
	}
	return messages, nil
}

func (r *messageRepo) Apply(_ context.Context, id int64, patch models.MessagePatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.messages[id]
	if !ok {
		return nil
	}
	switch p := patch.(type) {
	case models.EditBody:
		row.msg.Body = p.Body
	case models.SetPinned:
		row.msg.Pinned = p.Pinned
	default:
		return fmt.Errorf("unsupported message patch %T", patch)
	}
	return nil
}

func (r *messageRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.messages, id)

	kept := r.s.reactions[:0]
	for _, row := range r.s.reactions {
		if row.r.MessageID != id {
			kept = append(kept, row)
		}
	}
	r.s.reactions = kept
	return nil
}

// --- reactions ---

type reactionRepo struct{ s *Store }

func (r *reactionRepo) Add(_ context.Context, messageID, userID int64, kind models.ReactionKind) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.reactions {
		if row.r.MessageID == messageID && row.r.UserID == userID && row.r.Kind == kind {
			return false, nil
		}
	}
	r.s.reactions = append(r.s.reactions, reactionRow{
		seq: r.s.nextSeq(),
		r:   models.Reaction{MessageID: messageID, UserID: userID, Kind: kind, CreatedAt: time.Now()},
	})
	return true, nil
}

func (r *reactionRepo) Remove(_ context.Context, messageID, userID int64, kind models.ReactionKind) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, row := range r.s.reactions {
		if row.r.MessageID == messageID && row.r.UserID == userID && row.r.Kind == kind {
			r.s.reactions = append(r.s.reactions[:i], r.s.reactions[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *reactionRepo) GetByMessages(_ context.Context, messageIDs []int64) ([]models.Reaction, error) {
	want := make(map[int64]bool, len(messageIDs))
	for _, id := range messageIDs {
		want[id] = true
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Reaction
	for _, row := range r.s.reactions {
		if want[row.r.MessageID] {
			out = append(out, row.r)
		}
	}
	return out, nil
}

// --- notifications ---

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Append(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notifications = append(r.s.notifications, notificationRow{seq: r.s.nextSeq(), n: *n})
	return nil
}

func (r *notificationRepo) ListByRecipient(_ context.Context, recipientID int64, limit int) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Notification
	for i := len(r.s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if n := r.s.notifications[i].n; n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

// --- standups ---

type standupRepo struct{ s *Store }

func (r *standupRepo) Get(_ context.Context, channelID int64) (*models.StandupSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.standupSnapshot(channelID), nil
}

func (s *Store) standupSnapshot(channelID int64) *models.StandupSession {
	cur, ok := s.standups[channelID]
	if !ok {
		return &models.StandupSession{ChannelID: channelID}
	}
	snap := *cur
	snap.Lines = append([]string(nil), cur.Lines...)
	return &snap
}

func (r *standupRepo) Start(_ context.Context, channelID, ownerID int64, deadline time.Time, jobID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cur, ok := r.s.standups[channelID]; ok && cur.Active {
		return false, nil
	}
	r.s.standups[channelID] = &models.StandupSession{
		ChannelID: channelID,
		Active:    true,
		OwnerID:   ownerID,
		Deadline:  deadline,
		JobID:     jobID,
	}
	return true, nil
}

func (r *standupRepo) Append(_ context.Context, channelID int64, line string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.standups[channelID]
	if !ok || !cur.Active {
		return false, nil
	}
	cur.Lines = append(cur.Lines, line)
	return true, nil
}

func (r *standupRepo) Close(_ context.Context, channelID int64, jobID string, compose func(*models.StandupSession) *models.Message) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.standups[channelID]
	if !ok || !cur.Active || cur.JobID != jobID {
		return nil, nil
	}

	msg := compose(r.s.standupSnapshot(channelID))
	if msg != nil {
		if err := r.s.insertMessage(msg); err != nil {
			return nil, err
		}
	}
	r.s.standups[channelID] = &models.StandupSession{ChannelID: channelID}
	return msg, nil
}

func (r *standupRepo) ListActive(_ context.Context) ([]models.StandupSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.StandupSession
	for _, cur := range r.s.standups {
		if cur.Active {
			session := *cur
			session.Lines = nil
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

func (r *standupRepo) Reset(_ context.Context, channelID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.standups[channelID] = &models.StandupSession{ChannelID: channelID}
	return nil
}

// --- jobs ---

type jobRepo struct{ s *Store }

func (r *jobRepo) Create(_ context.Context, job *models.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	j := *job
	r.s.jobs[job.ID] = &j
	return nil
}

func (r *jobRepo) GetByID(_ context.Context, id string) (*models.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, nil
	}
	out := *j
	return &out, nil
}

func (r *jobRepo) ListPending(_ context.Context) ([]models.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var jobs []models.Job
	for _, j := range r.s.jobs {
		if j.State == models.JobPending {
			jobs = append(jobs, *j)
		}
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].FireAt.Before(jobs[k].FireAt) })
	return jobs, nil
}

func (r *jobRepo) Claim(_ context.Context, id string) (bool, error) {
	return r.transition(id, models.JobFired)
}

func (r *jobRepo) Cancel(_ context.Context, id string) (bool, error) {
	return r.transition(id, models.JobCancelled)
}

func (r *jobRepo) transition(id string, to models.JobState) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok || j.State != models.JobPending {
		return false, nil
	}
	j.State = to
	return true, nil
}
