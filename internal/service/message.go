package service

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/victorivanov/huddle/internal/database"
	"github.com/victorivanov/huddle/internal/gateway"
	"github.com/victorivanov/huddle/internal/metrics"
	"github.com/victorivanov/huddle/internal/models"
	"github.com/victorivanov/huddle/internal/msgid"
	"github.com/victorivanov/huddle/internal/scheduler"
)

// NotificationReadLimit caps how many notifications a read returns.
const NotificationReadLimit = 20

// shareDivider frames the quoted original in a shared message.
const shareDivider = "--------------------"

// MessageService handles the message lifecycle for channels and DMs.
type MessageService struct {
	messages      database.MessageRepository
	reactions     database.ReactionRepository
	notifications database.NotificationRepository
	membership    database.MembershipRepository
	notifier      *Notifier
	ids           *msgid.Source
	clock         scheduler.Clock
	gateway       gateway.Dispatcher
}

func NewMessageService(
	messages database.MessageRepository,
	reactions database.ReactionRepository,
	notifications database.NotificationRepository,
	membership database.MembershipRepository,
	notifier *Notifier,
	ids *msgid.Source,
	clock scheduler.Clock,
	gw gateway.Dispatcher,
) *MessageService {
	return &MessageService{
		messages:      messages,
		reactions:     reactions,
		notifications: notifications,
		membership:    membership,
		notifier:      notifier,
		ids:           ids,
		clock:         clock,
		gateway:       gw,
	}
}

// messageEventData is the gateway payload for message create/update events.
type messageEventData struct {
	MessageID int64  `json:"message_id,string"`
	AuthorID  int64  `json:"author_id,string"`
	ChannelID int64  `json:"channel_id"`
	DMID      int64  `json:"dm_id"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
	Pinned    bool   `json:"pinned"`
}

type messageDeleteData struct {
	MessageID int64 `json:"message_id,string"`
	ChannelID int64 `json:"channel_id"`
	DMID      int64 `json:"dm_id"`
}

type reactionEventData struct {
	MessageID int64               `json:"message_id,string"`
	ChannelID int64               `json:"channel_id"`
	DMID      int64               `json:"dm_id"`
	UserID    int64               `json:"user_id,string"`
	Kind      models.ReactionKind `json:"kind"`
}

func newMessageEvent(m *models.Message) messageEventData {
	return messageEventData{
		MessageID: m.ID,
		AuthorID:  m.AuthorID,
		ChannelID: m.Container.ChannelID(),
		DMID:      m.Container.DMID(),
		Body:      m.Body,
		Timestamp: m.CreatedAt.Unix(),
		Pinned:    m.Pinned,
	}
}

// Send posts body to c and returns the new message id.
func (s *MessageService) Send(ctx context.Context, c models.Container, authorID int64, body string) (int64, error) {
	if err := validateBody(body); err != nil {
		return 0, err
	}
	if err := s.requireMember(ctx, authorID, c); err != nil {
		return 0, err
	}

	msg := &models.Message{
		ID:        s.ids.Next(),
		AuthorID:  authorID,
		Container: c,
		Body:      body,
		CreatedAt: s.timestamp(),
	}
	if err := s.create(ctx, msg, "send", body); err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// Edit replaces the body of a message. An empty body deletes the message.
func (s *MessageService) Edit(ctx context.Context, messageID int64, body string, editorID int64) error {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return err
	}
	if utf8.RuneCountInString(body) > models.MaxBodyLength {
		return InvalidLength("INVALID_LENGTH", "message body must be at most 1000 characters")
	}
	if err := s.requireModify(ctx, msg, editorID); err != nil {
		return err
	}

	if body == "" {
		return s.delete(ctx, msg)
	}

	if err := s.messages.Apply(ctx, msg.ID, models.EditBody{Body: body}); err != nil {
		slog.Error("failed to edit message", "messageID", msg.ID, "error", err)
		return internalError()
	}
	msg.Body = body
	s.broadcast(ctx, msg.Container, gateway.EventMessageUpdate, newMessageEvent(msg))
	s.tag(ctx, msg.Container, editorID, body)
	return nil
}

// Remove deletes a message.
func (s *MessageService) Remove(ctx context.Context, messageID, callerID int64) error {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return err
	}
	if err := s.requireModify(ctx, msg, callerID); err != nil {
		return err
	}
	return s.delete(ctx, msg)
}

func (s *MessageService) Pin(ctx context.Context, messageID, callerID int64) error {
	return s.setPinned(ctx, messageID, callerID, true)
}

func (s *MessageService) Unpin(ctx context.Context, messageID, callerID int64) error {
	return s.setPinned(ctx, messageID, callerID, false)
}

func (s *MessageService) setPinned(ctx context.Context, messageID, callerID int64, pinned bool) error {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, callerID, msg.Container); err != nil {
		return err
	}
	privileged, err := s.privileged(ctx, callerID, msg.Container)
	if err != nil {
		return err
	}
	if !privileged {
		return Forbidden("NOT_OWNER", "only owners can pin messages")
	}

	if msg.Pinned == pinned {
		if pinned {
			return AlreadyInState("ALREADY_PINNED", "message is already pinned")
		}
		return AlreadyInState("NOT_PINNED", "message is not pinned")
	}

	if err := s.messages.Apply(ctx, msg.ID, models.SetPinned{Pinned: pinned}); err != nil {
		slog.Error("failed to set pinned", "messageID", msg.ID, "error", err)
		return internalError()
	}
	msg.Pinned = pinned
	s.broadcast(ctx, msg.Container, gateway.EventMessageUpdate, newMessageEvent(msg))
	return nil
}

// React adds reactorID's reaction of kind to a message.
func (s *MessageService) React(ctx context.Context, messageID, reactorID int64, kind models.ReactionKind) error {
	msg, err := s.loadVisible(ctx, messageID, reactorID)
	if err != nil {
		return err
	}
	if !kind.Valid() {
		return InvalidKind("INVALID_REACTION", "unsupported reaction kind")
	}

	added, err := s.reactions.Add(ctx, msg.ID, reactorID, kind)
	if err != nil {
		slog.Error("failed to add reaction", "messageID", msg.ID, "error", err)
		return internalError()
	}
	if !added {
		return AlreadyInState("ALREADY_REACTED", "you already reacted to this message")
	}

	s.broadcast(ctx, msg.Container, gateway.EventMessageReactionAdd, reactionEventData{
		MessageID: msg.ID,
		ChannelID: msg.Container.ChannelID(),
		DMID:      msg.Container.DMID(),
		UserID:    reactorID,
		Kind:      kind,
	})
	if err := s.notifier.OnReacted(ctx, msg, reactorID); err != nil {
		slog.Error("failed to emit react notification", "messageID", msg.ID, "error", err)
	}
	return nil
}

// Unreact removes reactorID's reaction of kind from a message.
func (s *MessageService) Unreact(ctx context.Context, messageID, reactorID int64, kind models.ReactionKind) error {
	msg, err := s.loadVisible(ctx, messageID, reactorID)
	if err != nil {
		return err
	}
	if !kind.Valid() {
		return InvalidKind("INVALID_REACTION", "unsupported reaction kind")
	}

	removed, err := s.reactions.Remove(ctx, msg.ID, reactorID, kind)
	if err != nil {
		slog.Error("failed to remove reaction", "messageID", msg.ID, "error", err)
		return internalError()
	}
	if !removed {
		return AlreadyInState("NOT_REACTED", "you have not reacted to this message")
	}

	s.broadcast(ctx, msg.Container, gateway.EventMessageReactionRemove, reactionEventData{
		MessageID: msg.ID,
		ChannelID: msg.Container.ChannelID(),
		DMID:      msg.Container.DMID(),
		UserID:    reactorID,
		Kind:      kind,
	})
	return nil
}

// Share posts a copy of a message, optionally prefixed by extra text, into
// target. The copy does not follow later edits of the source.
func (s *MessageService) Share(ctx context.Context, sourceID int64, extra string, target models.Container, sharerID int64) (int64, error) {
	source, err := s.load(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	if utf8.RuneCountInString(extra) > models.MaxBodyLength {
		return 0, InvalidLength("INVALID_LENGTH", "message must be at most 1000 characters")
	}
	if err := s.requireMember(ctx, sharerID, source.Container); err != nil {
		return 0, err
	}
	if err := s.requireMember(ctx, sharerID, target); err != nil {
		return 0, err
	}

	msg := &models.Message{
		ID:        s.ids.Next(),
		AuthorID:  sharerID,
		Container: target,
		Body:      sharedBody(extra, source.Body),
		CreatedAt: s.timestamp(),
	}
	if err := s.create(ctx, msg, "share", extra); err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func sharedBody(extra, original string) string {
	body := shareDivider + "\n" + original + "\n" + shareDivider
	if extra == "" {
		return body
	}
	return extra + "\n" + body
}

// Page returns one window of c's messages, newest first, with reactions
// summarized for viewerID.
func (s *MessageService) Page(ctx context.Context, c models.Container, viewerID int64, start int) (*models.Page, error) {
	if err := s.requireMember(ctx, viewerID, c); err != nil {
		return nil, err
	}

	all, err := s.messages.ListByContainer(ctx, c)
	if err != nil {
		slog.Error("failed to list messages", "container", c.String(), "error", err)
		return nil, internalError()
	}
	window, end, err := Paginate(all, start)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(window))
	for i, m := range window {
		ids[i] = m.ID
	}
	byMessage := make(map[int64][]models.Reaction, len(window))
	if len(ids) > 0 {
		rows, err := s.reactions.GetByMessages(ctx, ids)
		if err != nil {
			slog.Error("failed to load reactions", "container", c.String(), "error", err)
			return nil, internalError()
		}
		for _, r := range rows {
			byMessage[r.MessageID] = append(byMessage[r.MessageID], r)
		}
	}

	views := make([]models.MessageView, len(window))
	for i, m := range window {
		views[i] = models.MessageView{
			MessageID: m.ID,
			AuthorID:  m.AuthorID,
			Body:      m.Body,
			Timestamp: m.CreatedAt.Unix(),
			Reactions: AggregateReactions(byMessage[m.ID], viewerID),
			Pinned:    m.Pinned,
		}
	}
	return &models.Page{Messages: views, Start: start, End: end}, nil
}

// Notifications returns the caller's most recent notifications, newest first.
func (s *MessageService) Notifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	notes, err := s.notifications.ListByRecipient(ctx, userID, NotificationReadLimit)
	if err != nil {
		slog.Error("failed to list notifications", "userID", userID, "error", err)
		return nil, internalError()
	}
	if notes == nil {
		notes = []models.Notification{}
	}
	return notes, nil
}

// create persists msg and runs the post-write side effects. scan is the text
// searched for tags.
func (s *MessageService) create(ctx context.Context, msg *models.Message, source, scan string) error {
	if err := s.messages.Create(ctx, msg); err != nil {
		slog.Error("failed to create message", "messageID", msg.ID, "source", source, "error", err)
		return internalError()
	}
	s.published(ctx, msg, source, scan)
	return nil
}

// published runs the side effects of a message that is already stored.
func (s *MessageService) published(ctx context.Context, msg *models.Message, source, scan string) {
	metrics.MessagesCreated.WithLabelValues(source).Inc()
	s.broadcast(ctx, msg.Container, gateway.EventMessageCreate, newMessageEvent(msg))
	s.tag(ctx, msg.Container, msg.AuthorID, scan)
}

func (s *MessageService) delete(ctx context.Context, msg *models.Message) error {
	if err := s.messages.Delete(ctx, msg.ID); err != nil {
		slog.Error("failed to delete message", "messageID", msg.ID, "error", err)
		return internalError()
	}
	s.broadcast(ctx, msg.Container, gateway.EventMessageDelete, messageDeleteData{
		MessageID: msg.ID,
		ChannelID: msg.Container.ChannelID(),
		DMID:      msg.Container.DMID(),
	})
	return nil
}

// tag runs tag detection after a write has succeeded. The write stands even
// if notifying fails.
func (s *MessageService) tag(ctx context.Context, c models.Container, actorID int64, text string) {
	if text == "" {
		return
	}
	if err := s.notifier.OnTextChanged(ctx, c, actorID, text); err != nil {
		slog.Error("failed to emit tag notifications", "container", c.String(), "error", err)
	}
}

func (s *MessageService) broadcast(ctx context.Context, c models.Container, event string, data any) {
	members, err := s.membership.Members(ctx, c)
	if err != nil {
		slog.Error("failed to list members for dispatch", "container", c.String(), "error", err)
		return
	}
	for _, m := range members {
		s.gateway.DispatchToUser(m.UserID, event, data)
	}
}

func (s *MessageService) load(ctx context.Context, messageID int64) (*models.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		slog.Error("failed to load message", "messageID", messageID, "error", err)
		return nil, internalError()
	}
	if msg == nil {
		return nil, NotFound("UNKNOWN_MESSAGE", "message not found")
	}
	return msg, nil
}

// loadVisible is load for callers who must not learn that a message exists
// in a container they cannot see.
func (s *MessageService) loadVisible(ctx context.Context, messageID, userID int64) (*models.Message, error) {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return nil, err
	}
	member, err := s.membership.IsMember(ctx, userID, msg.Container)
	if err != nil {
		slog.Error("failed to check membership", "userID", userID, "error", err)
		return nil, internalError()
	}
	if !member {
		return nil, NotFound("UNKNOWN_MESSAGE", "message not found")
	}
	return msg, nil
}

func (s *MessageService) requireMember(ctx context.Context, userID int64, c models.Container) error {
	member, err := s.membership.IsMember(ctx, userID, c)
	if err != nil {
		slog.Error("failed to check membership", "userID", userID, "container", c.String(), "error", err)
		return internalError()
	}
	if !member {
		return Forbidden("NOT_MEMBER", "you are not a member of this "+c.Kind.String())
	}
	return nil
}

// requireModify allows the author or an owner, provided they are still a member.
func (s *MessageService) requireModify(ctx context.Context, msg *models.Message, userID int64) error {
	if err := s.requireMember(ctx, userID, msg.Container); err != nil {
		return err
	}
	if msg.AuthorID == userID {
		return nil
	}
	privileged, err := s.privileged(ctx, userID, msg.Container)
	if err != nil {
		return err
	}
	if !privileged {
		return Forbidden("NOT_AUTHOR", "only the author or an owner can change this message")
	}
	return nil
}

func (s *MessageService) privileged(ctx context.Context, userID int64, c models.Container) (bool, error) {
	owner, err := s.membership.IsOwner(ctx, userID, c)
	if err != nil {
		slog.Error("failed to check ownership", "userID", userID, "error", err)
		return false, internalError()
	}
	if owner {
		return true, nil
	}
	global, err := s.membership.IsGlobalOwner(ctx, userID)
	if err != nil {
		slog.Error("failed to check global ownership", "userID", userID, "error", err)
		return false, internalError()
	}
	return global, nil
}

func (s *MessageService) timestamp() time.Time {
	return s.clock.Now().UTC().Truncate(time.Second)
}

func validateBody(body string) error {
	n := utf8.RuneCountInString(body)
	if n < 1 || n > models.MaxBodyLength {
		return InvalidLength("INVALID_LENGTH", "message body must be 1-1000 characters")
	}
	return nil
}
