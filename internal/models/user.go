package models

// Member is a container member as seen by the engine.
type Member struct {
	UserID int64  `json:"user_id,string"`
	Handle string `json:"handle"`
}
