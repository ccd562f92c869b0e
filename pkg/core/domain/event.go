package domain

import "time"

type EventKind string

const (
	EventLimitReached EventKind = "limit_reached"
	EventExpired      EventKind = "expired"
)

// LinkEvent records a notification emitted for a link
type LinkEvent struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	OwnerID   string    `json:"owner_id"`
	Kind      EventKind `json:"kind"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
