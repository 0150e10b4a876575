package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/victorivanov/huddle/internal/database"
	"github.com/victorivanov/huddle/internal/models"
	"github.com/victorivanov/huddle/internal/scheduler"
)

type standupFlushPayload struct {
	ChannelID int64 `json:"channel_id"`
}

// StandupService batches lines sent to a channel during a standup window
// into a single message posted by the standup's owner at the deadline.
type StandupService struct {
	standups   database.StandupRepository
	membership database.MembershipRepository
	jobs       database.JobRepository
	messages   *MessageService
	scheduler  *scheduler.Scheduler
}

// NewStandupService registers the flush handler on sched.
func NewStandupService(
	standups database.StandupRepository,
	membership database.MembershipRepository,
	jobs database.JobRepository,
	messages *MessageService,
	sched *scheduler.Scheduler,
) *StandupService {
	s := &StandupService{
		standups:   standups,
		membership: membership,
		jobs:       jobs,
		messages:   messages,
		scheduler:  sched,
	}
	sched.Register(models.JobStandupFlush, s.flush)
	return s
}

// Start opens a standup in channelID that closes after the given number of
// seconds, and returns the deadline.
func (s *StandupService) Start(ctx context.Context, channelID, ownerID int64, seconds int) (time.Time, error) {
	c := models.Channel(channelID)
	if err := s.messages.requireMember(ctx, ownerID, c); err != nil {
		return time.Time{}, err
	}
	if seconds < 0 {
		return time.Time{}, InvalidLength("INVALID_LENGTH", "standup length cannot be negative")
	}

	deadline := s.scheduler.Now().UTC().Truncate(time.Second).Add(time.Duration(seconds) * time.Second)
	jobID := uuid.NewString()

	started, err := s.standups.Start(ctx, channelID, ownerID, deadline, jobID)
	if err != nil {
		slog.Error("failed to start standup", "channelID", channelID, "error", err)
		return time.Time{}, internalError()
	}
	if !started {
		return time.Time{}, AlreadyInState("STANDUP_ACTIVE", "a standup is already active in this channel")
	}

	payload, err := json.Marshal(standupFlushPayload{ChannelID: channelID})
	if err != nil {
		return time.Time{}, internalError()
	}
	job := &models.Job{
		ID:        jobID,
		Kind:      models.JobStandupFlush,
		FireAt:    deadline,
		Payload:   payload,
		CreatedBy: ownerID,
	}
	if err := s.scheduler.Schedule(ctx, job); err != nil {
		slog.Error("failed to schedule standup flush", "channelID", channelID, "error", err)
		if err := s.standups.Reset(ctx, channelID); err != nil {
			slog.Error("failed to roll back standup", "channelID", channelID, "error", err)
		}
		return time.Time{}, internalError()
	}
	return deadline, nil
}

// Send buffers a line from senderID in the active standup.
func (s *StandupService) Send(ctx context.Context, channelID, senderID int64, line string) error {
	if err := s.messages.requireMember(ctx, senderID, models.Channel(channelID)); err != nil {
		return err
	}
	if utf8.RuneCountInString(line) > models.MaxBodyLength {
		return InvalidLength("INVALID_LENGTH", "standup message must be at most 1000 characters")
	}

	handle, err := s.membership.Handle(ctx, senderID)
	if err != nil {
		slog.Error("failed to resolve handle", "userID", senderID, "error", err)
		return internalError()
	}
	appended, err := s.standups.Append(ctx, channelID, handle+": "+line)
	if err != nil {
		slog.Error("failed to append standup line", "channelID", channelID, "error", err)
		return internalError()
	}
	if !appended {
		return NotActive("STANDUP_NOT_ACTIVE", "no standup is active in this channel")
	}
	return nil
}

// Active reports whether a standup is running in channelID and its deadline.
func (s *StandupService) Active(ctx context.Context, channelID, callerID int64) (*models.StandupStatus, error) {
	if err := s.messages.requireMember(ctx, callerID, models.Channel(channelID)); err != nil {
		return nil, err
	}
	session, err := s.standups.Get(ctx, channelID)
	if err != nil {
		slog.Error("failed to load standup", "channelID", channelID, "error", err)
		return nil, internalError()
	}

	status := &models.StandupStatus{IsActive: session.Active}
	if session.Active {
		deadline := session.Deadline.Unix()
		status.Deadline = &deadline
	}
	return status, nil
}

// Recover settles active sessions left behind by a crash. A session whose
// flush job was claimed but never completed is flushed now; one whose job is
// missing or cancelled is reset. Sessions with a pending job are left for
// the scheduler. Call it once at startup, after the scheduler has recovered.
func (s *StandupService) Recover(ctx context.Context) (int, error) {
	active, err := s.standups.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing active standups: %w", err)
	}

	settled := 0
	for _, session := range active {
		job, err := s.jobs.GetByID(ctx, session.JobID)
		if err != nil {
			return settled, fmt.Errorf("loading standup job %s: %w", session.JobID, err)
		}
		switch {
		case job != nil && job.State == models.JobPending:
			continue
		case job != nil && job.State == models.JobFired:
			if err := s.flush(ctx, job); err != nil {
				return settled, err
			}
		default:
			if err := s.standups.Reset(ctx, session.ChannelID); err != nil {
				return settled, fmt.Errorf("resetting standup in channel %d: %w", session.ChannelID, err)
			}
		}
		slog.Warn("settled orphaned standup", "channelID", session.ChannelID, "jobID", session.JobID)
		settled++
	}
	return settled, nil
}

// flush closes the standup opened by job. The buffered lines become one
// message from the stored owner, even if the owner has since left.
func (s *StandupService) flush(ctx context.Context, job *models.Job) error {
	var p standupFlushPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decoding standup flush: %w", err)
	}

	msg, err := s.standups.Close(ctx, p.ChannelID, job.ID, func(session *models.StandupSession) *models.Message {
		if len(session.Lines) == 0 {
			return nil
		}
		return &models.Message{
			ID:        s.messages.ids.Next(),
			AuthorID:  session.OwnerID,
			Container: models.Channel(p.ChannelID),
			Body:      strings.Join(session.Lines, "\n"),
			CreatedAt: s.messages.timestamp(),
		}
	})
	if err != nil {
		return fmt.Errorf("closing standup in channel %d: %w", p.ChannelID, err)
	}
	if msg != nil {
		s.messages.published(ctx, msg, "standup", msg.Body)
	}
	return nil
}
