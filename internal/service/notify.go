package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/victorivanov/huddle/internal/database"
	"github.com/victorivanov/huddle/internal/gateway"
	"github.com/victorivanov/huddle/internal/metrics"
	"github.com/victorivanov/huddle/internal/models"
	"github.com/victorivanov/huddle/internal/scheduler"
)

// previewLength is how many characters of a message a tag notification quotes.
const previewLength = 20

// Notifier appends notifications to recipients' logs and pushes each one to
// the recipient over the gateway. Rules are evaluated when the triggering
// action happens, against membership at that moment.
type Notifier struct {
	notifications database.NotificationRepository
	membership    database.MembershipRepository
	gateway       gateway.Dispatcher
	clock         scheduler.Clock
}

func NewNotifier(
	notifications database.NotificationRepository,
	membership database.MembershipRepository,
	gw gateway.Dispatcher,
	clock scheduler.Clock,
) *Notifier {
	return &Notifier{
		notifications: notifications,
		membership:    membership,
		gateway:       gw,
		clock:         clock,
	}
}

// OnTextChanged notifies every current member of c whose "@handle" occurs in
// body, the actor included. Matching is plain substring containment, so
// "@bob" also matches inside "@bobby".
func (n *Notifier) OnTextChanged(ctx context.Context, c models.Container, actorID int64, body string) error {
	if !strings.Contains(body, "@") {
		return nil
	}

	members, err := n.membership.Members(ctx, c)
	if err != nil {
		return fmt.Errorf("listing members: %w", err)
	}

	var tagged []int64
	for _, m := range members {
		if m.Handle != "" && strings.Contains(body, "@"+m.Handle) {
			tagged = append(tagged, m.UserID)
		}
	}
	if len(tagged) == 0 {
		return nil
	}

	actor, name, err := n.describe(ctx, actorID, c)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("%s tagged you in %s: %s", actor, name, preview(body))
	for _, recipientID := range tagged {
		if err := n.emit(ctx, recipientID, c, text, "tag"); err != nil {
			return err
		}
	}
	return nil
}

// OnReacted notifies the author of msg, unless the reactor is the author or
// the author has left the container.
func (n *Notifier) OnReacted(ctx context.Context, msg *models.Message, reactorID int64) error {
	if reactorID == msg.AuthorID {
		return nil
	}
	stillMember, err := n.membership.IsMember(ctx, msg.AuthorID, msg.Container)
	if err != nil {
		return fmt.Errorf("checking author membership: %w", err)
	}
	if !stillMember {
		return nil
	}

	actor, name, err := n.describe(ctx, reactorID, msg.Container)
	if err != nil {
		return err
	}
	return n.emit(ctx, msg.AuthorID, msg.Container, fmt.Sprintf("%s reacted to your message in %s", actor, name), "react")
}

// OnAdded is called by the membership side when actorID adds users to c.
func (n *Notifier) OnAdded(ctx context.Context, c models.Container, actorID int64, recipientIDs ...int64) error {
	if len(recipientIDs) == 0 {
		return nil
	}
	actor, name, err := n.describe(ctx, actorID, c)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("%s added you to %s", actor, name)
	for _, recipientID := range recipientIDs {
		if err := n.emit(ctx, recipientID, c, text, "added"); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) describe(ctx context.Context, actorID int64, c models.Container) (string, string, error) {
	handle, err := n.membership.Handle(ctx, actorID)
	if err != nil {
		return "", "", fmt.Errorf("resolving handle: %w", err)
	}
	name, err := n.membership.ContainerName(ctx, c)
	if err != nil {
		return "", "", fmt.Errorf("resolving container name: %w", err)
	}
	return handle, name, nil
}

func (n *Notifier) emit(ctx context.Context, recipientID int64, c models.Container, text, reason string) error {
	note := &models.Notification{
		RecipientID: recipientID,
		Container:   c,
		Text:        text,
		CreatedAt:   n.clock.Now().UTC().Truncate(time.Second),
	}
	if err := n.notifications.Append(ctx, note); err != nil {
		return fmt.Errorf("appending notification: %w", err)
	}
	metrics.NotificationsEmitted.WithLabelValues(reason).Inc()
	n.gateway.DispatchToUser(recipientID, gateway.EventNotificationCreate, note)
	return nil
}

func preview(body string) string {
	runes := []rune(body)
	if len(runes) > previewLength {
		runes = runes[:previewLength]
	}
	return string(runes)
}
