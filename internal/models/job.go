package models

import (
	"encoding/json"
	"time"
)

type JobKind string

const (
	JobDelayedSend  JobKind = "delayed_send"
	JobStandupFlush JobKind = "standup_flush"
)

type JobState string

const (
	JobPending   JobState = "pending"
	JobFired     JobState = "fired"
	JobCancelled JobState = "cancelled"
)

// Job is a persisted unit of deferred work.
type Job struct {
	ID        string          `json:"id"`
	Kind      JobKind         `json:"kind"`
	FireAt    time.Time       `json:"fire_at"`
	Payload   json.RawMessage `json:"payload"`
	State     JobState        `json:"state"`
	CreatedBy int64           `json:"created_by,string"`
	CreatedAt time.Time       `json:"created_at"`
}
