package models

import "time"

type ReactionKind int

// ReactionLike is the only reaction kind currently accepted.
const ReactionLike ReactionKind = 1

func (k ReactionKind) Valid() bool { return k == ReactionLike }

type Reaction struct {
	MessageID int64        `json:"message_id,string"`
	UserID    int64        `json:"user_id,string"`
	Kind      ReactionKind `json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

// ReactionSummary is the per-viewer display form of all reactions of one kind.
type ReactionSummary struct {
	Kind             ReactionKind `json:"kind"`
	ReactorIDs       []int64      `json:"reactor_ids"`
	ViewerHasReacted bool         `json:"viewer_has_reacted"`
}
