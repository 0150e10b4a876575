package models

import "time"

// MaxBodyLength is the largest message body, in characters, accepted for a send.
const MaxBodyLength = 1000

type Message struct {
	ID        int64     `json:"message_id,string"`
	AuthorID  int64     `json:"author_id,string"`
	Container Container `json:"-"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Pinned    bool      `json:"pinned"`
}

// MessagePatch is a single-field change to a stored message. The set of
// variants is closed: EditBody and SetPinned.
type MessagePatch interface {
	isMessagePatch()
}

// EditBody replaces a message body in place.
type EditBody struct {
	Body string
}

// SetPinned flips the pinned flag.
type SetPinned struct {
	Pinned bool
}

func (EditBody) isMessagePatch()  {}
func (SetPinned) isMessagePatch() {}

// MessageView is a message as returned by a page read.
type MessageView struct {
	MessageID int64             `json:"message_id,string"`
	AuthorID  int64             `json:"author_id,string"`
	Body      string            `json:"body"`
	Timestamp int64             `json:"timestamp"`
	Reactions []ReactionSummary `json:"reactions"`
	Pinned    bool              `json:"pinned"`
}

// Page is one window of a container's messages, newest first.
type Page struct {
	Messages []MessageView `json:"messages"`
	Start    int           `json:"start"`
	End      int           `json:"end"`
}
