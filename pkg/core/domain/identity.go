package domain

import "time"

// Identity is the opaque owner token handed to anonymous clients
type Identity struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
