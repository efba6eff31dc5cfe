package domain

import "time"

// Player represents a member of the poker community
type Player struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreatePlayerRequest represents a request to register a player
type CreatePlayerRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}
