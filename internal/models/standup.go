package models

import "time"

// StandupSession is the per-channel buffering state. A zero Active means idle.
type StandupSession struct {
	ChannelID int64
	Active    bool
	OwnerID   int64
	Deadline  time.Time
	JobID     string
	Lines     []string
}

// StandupStatus is the public view of a channel's standup state.
type StandupStatus struct {
	IsActive bool   `json:"is_active"`
	Deadline *int64 `json:"deadline"`
}
