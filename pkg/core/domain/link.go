package domain

import "time"

const (
	CodeLength = 6

	MinUseLimit = 1
	MaxUseLimit = 1000
	MinTTLHours = 1
	MaxTTLHours = 8760
)

// Link represents a shortened URL with a use budget and a lifetime
type Link struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Target    string    `json:"target"`
	OwnerID   string    `json:"owner_id"`
	UseCount  int       `json:"use_count"`
	UseLimit  int       `json:"use_limit"`
	TTLHours  int       `json:"ttl_hours"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Deleted   bool      `json:"deleted"`
}

// ExpiresAt is the instant after which the link stops redirecting.
func (l *Link) ExpiresAt() time.Time {
	return l.CreatedAt.Add(time.Duration(l.TTLHours) * time.Hour)
}

func (l *Link) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt())
}

func (l *Link) LimitReached() bool {
	return l.UseCount >= l.UseLimit
}

// HoursElapsed returns the whole hours since creation, truncated.
func (l *Link) HoursElapsed(now time.Time) int {
	d := now.Sub(l.CreatedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Hour)
}
