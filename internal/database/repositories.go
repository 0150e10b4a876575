package database

import (
	"context"
	"time"

	"github.com/victorivanov/huddle/internal/models"
)

// Lookups return (nil, nil) when the row does not exist.

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	// ListByContainer returns every message in the container, newest first by insertion order.
	ListByContainer(ctx context.Context, c models.Container) ([]models.Message, error)
	Apply(ctx context.Context, id int64, patch models.MessagePatch) error
	Delete(ctx context.Context, id int64) error
}

type ReactionRepository interface {
	// Add reports false when the (message, user, kind) triple already exists.
	Add(ctx context.Context, messageID, userID int64, kind models.ReactionKind) (bool, error)
	// Remove reports false when there was nothing to remove.
	Remove(ctx context.Context, messageID, userID int64, kind models.ReactionKind) (bool, error)
	GetByMessages(ctx context.Context, messageIDs []int64) ([]models.Reaction, error)
}

type NotificationRepository interface {
	Append(ctx context.Context, n *models.Notification) error
	// ListByRecipient returns at most limit notifications, newest first.
	ListByRecipient(ctx context.Context, recipientID int64, limit int) ([]models.Notification, error)
}

type StandupRepository interface {
	// Get returns the channel's session; an idle zero session when none was ever started.
	Get(ctx context.Context, channelID int64) (*models.StandupSession, error)
	// Start activates the session and reports false if it was already active.
	Start(ctx context.Context, channelID, ownerID int64, deadline time.Time, jobID string) (bool, error)
	// Append buffers a line and reports false if the session is idle.
	Append(ctx context.Context, channelID int64, line string) (bool, error)
	// Close ends the session opened by jobID. Under the session lock it hands the
	// buffered state to compose, persists the returned message (if any), clears
	// the buffer and marks the session idle. A session owned by another job is
	// left untouched.
	Close(ctx context.Context, channelID int64, jobID string, compose func(*models.StandupSession) *models.Message) (*models.Message, error)
	// ListActive returns every active session, without buffered lines.
	ListActive(ctx context.Context) ([]models.StandupSession, error)
	// Reset discards any buffered lines and marks the session idle.
	Reset(ctx context.Context, channelID int64) error
}

type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	ListPending(ctx context.Context) ([]models.Job, error)
	// Claim moves a pending job to fired and reports whether this caller won it.
	Claim(ctx context.Context, id string) (bool, error)
	// Cancel moves a pending job to cancelled and reports whether it was pending.
	Cancel(ctx context.Context, id string) (bool, error)
}

// MembershipRepository answers the authorization questions the message
// engine branches on. Membership itself is managed elsewhere.
type MembershipRepository interface {
	IsMember(ctx context.Context, userID int64, c models.Container) (bool, error)
	IsOwner(ctx context.Context, userID int64, c models.Container) (bool, error)
	IsGlobalOwner(ctx context.Context, userID int64) (bool, error)
	ContainerName(ctx context.Context, c models.Container) (string, error)
	Members(ctx context.Context, c models.Container) ([]models.Member, error)
	Handle(ctx context.Context, userID int64) (string, error)
}
