package models

import "time"

// Community is a campus community (club, dorm, course) that owns channels.
type Community struct {
	ID        int64     `json:"id,string"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id,string"`
	CreatedAt time.Time `json:"created_at"`
}
