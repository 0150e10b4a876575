package models

import (
	"encoding/json"
	"time"
)

// Notification is an append-only entry in a user's notification log.
type Notification struct {
	RecipientID int64     `json:"-"`
	Container   Container `json:"-"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"-"`
}

func (n Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ChannelID int64  `json:"channel_id"`
		DMID      int64  `json:"dm_id"`
		Text      string `json:"text"`
	}{
		ChannelID: n.Container.ChannelID(),
		DMID:      n.Container.DMID(),
		Text:      n.Text,
	})
}
