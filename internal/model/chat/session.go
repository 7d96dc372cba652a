package chat

import "time"

// Session captures a transient anonymous conversation held in memory.
type Session struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Turns     Transcript `json:"turns"`
}
