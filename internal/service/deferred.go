package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/victorivanov/huddle/internal/database"
	"github.com/victorivanov/huddle/internal/models"
	"github.com/victorivanov/huddle/internal/scheduler"
)

// ScheduledSend identifies a message that will be posted later. MessageID is
// fixed up front so clients can refer to the message before it exists.
type ScheduledSend struct {
	MessageID int64  `json:"message_id,string"`
	JobID     string `json:"job_id"`
}

type delayedSendPayload struct {
	MessageID int64  `json:"message_id"`
	ChannelID int64  `json:"channel_id"`
	DMID      int64  `json:"dm_id"`
	AuthorID  int64  `json:"author_id"`
	Body      string `json:"body"`
}

// DeferredService schedules single delayed sends and cancels pending jobs
// of any kind.
type DeferredService struct {
	messages  *MessageService
	jobs      database.JobRepository
	standups  database.StandupRepository
	scheduler *scheduler.Scheduler
}

// NewDeferredService registers the delayed-send handler on sched.
func NewDeferredService(
	messages *MessageService,
	jobs database.JobRepository,
	standups database.StandupRepository,
	sched *scheduler.Scheduler,
) *DeferredService {
	s := &DeferredService{
		messages:  messages,
		jobs:      jobs,
		standups:  standups,
		scheduler: sched,
	}
	sched.Register(models.JobDelayedSend, s.deliver)
	return s
}

// SendLater schedules body to be posted to c by authorID at the given time.
// All validation happens now; the send itself cannot fail for the caller.
func (s *DeferredService) SendLater(ctx context.Context, c models.Container, authorID int64, body string, at time.Time) (*ScheduledSend, error) {
	if err := validateBody(body); err != nil {
		return nil, err
	}
	if at.Unix() < s.scheduler.Now().Unix() {
		return nil, InvalidTime("TIME_IN_PAST", "scheduled time is in the past")
	}
	if err := s.messages.requireMember(ctx, authorID, c); err != nil {
		return nil, err
	}

	messageID := s.messages.ids.Next()
	payload, err := json.Marshal(delayedSendPayload{
		MessageID: messageID,
		ChannelID: c.ChannelID(),
		DMID:      c.DMID(),
		AuthorID:  authorID,
		Body:      body,
	})
	if err != nil {
		return nil, internalError()
	}

	job := &models.Job{
		Kind:      models.JobDelayedSend,
		FireAt:    at,
		Payload:   payload,
		CreatedBy: authorID,
	}
	if err := s.scheduler.Schedule(ctx, job); err != nil {
		slog.Error("failed to schedule send", "authorID", authorID, "error", err)
		return nil, internalError()
	}

	return &ScheduledSend{MessageID: messageID, JobID: job.ID}, nil
}

// deliver posts a delayed send. Membership is not re-checked: the author was
// a member when the send was scheduled.
func (s *DeferredService) deliver(ctx context.Context, job *models.Job) error {
	var p delayedSendPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decoding delayed send: %w", err)
	}
	c, err := models.ContainerFromIDs(p.ChannelID, p.DMID)
	if err != nil {
		return fmt.Errorf("decoding delayed send: %w", err)
	}

	msg := &models.Message{
		ID:        p.MessageID,
		AuthorID:  p.AuthorID,
		Container: c,
		Body:      p.Body,
		CreatedAt: s.messages.timestamp(),
	}
	if err := s.messages.create(ctx, msg, "delayed", p.Body); err != nil {
		return fmt.Errorf("posting delayed send %d: %w", p.MessageID, err)
	}
	return nil
}

// Cancel stops a pending job created by callerID. Cancelling a standup flush
// ends that standup and discards its buffered lines.
func (s *DeferredService) Cancel(ctx context.Context, jobID string, callerID int64) error {
	if _, err := uuid.Parse(jobID); err != nil {
		return NotFound("UNKNOWN_JOB", "job not found")
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		slog.Error("failed to load job", "jobID", jobID, "error", err)
		return internalError()
	}
	if job == nil {
		return NotFound("UNKNOWN_JOB", "job not found")
	}
	if job.CreatedBy != callerID {
		return Forbidden("NOT_JOB_OWNER", "only the creator can cancel this job")
	}

	cancelled, err := s.scheduler.Cancel(ctx, job)
	if err != nil {
		slog.Error("failed to cancel job", "jobID", jobID, "error", err)
		return internalError()
	}
	if !cancelled {
		return AlreadyInState("JOB_NOT_PENDING", "job has already run or been cancelled")
	}

	if job.Kind == models.JobStandupFlush {
		var p standupFlushPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			slog.Error("failed to decode standup job", "jobID", jobID, "error", err)
			return internalError()
		}
		session, err := s.standups.Get(ctx, p.ChannelID)
		if err != nil {
			slog.Error("failed to load standup", "channelID", p.ChannelID, "error", err)
			return internalError()
		}
		if session.Active && session.JobID == job.ID {
			if err := s.standups.Reset(ctx, p.ChannelID); err != nil {
				slog.Error("failed to reset standup", "channelID", p.ChannelID, "error", err)
				return internalError()
			}
		}
	}
	return nil
}
