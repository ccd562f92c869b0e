package postgres

import (
	"time"

	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
)

// linkModel is the gorm row for a link. ExpiresAt is denormalized from
// CreatedAt and TTLHours so the sweep can use an index.
type linkModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Code      string    `gorm:"size:6;not null;uniqueIndex:idx_links_code"`
	Target    string    `gorm:"size:2048;not null"`
	OwnerID   string    `gorm:"size:36;not null;index:idx_links_owner"`
	UseCount  int       `gorm:"not null;default:0"`
	UseLimit  int       `gorm:"not null"`
	TTLHours  int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
	ExpiresAt time.Time `gorm:"not null;index:idx_links_expiry"`
	Deleted   bool      `gorm:"not null;default:false"`
}

func (linkModel) TableName() string { return "links" }

func fromLink(l *domain.Link) *linkModel {
	return &linkModel{
		ID:        l.ID,
		Code:      l.Code,
		Target:    l.Target,
		OwnerID:   l.OwnerID,
		UseCount:  l.UseCount,
		UseLimit:  l.UseLimit,
		TTLHours:  l.TTLHours,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
		ExpiresAt: l.ExpiresAt(),
		Deleted:   l.Deleted,
	}
}

func (m *linkModel) toLink() *domain.Link {
	return &domain.Link{
		ID:        m.ID,
		Code:      m.Code,
		Target:    m.Target,
		OwnerID:   m.OwnerID,
		UseCount:  m.UseCount,
		UseLimit:  m.UseLimit,
		TTLHours:  m.TTLHours,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
		Deleted:   m.Deleted,
	}
}

type identityModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
}

func (identityModel) TableName() string { return "identities" }

type eventModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Code      string    `gorm:"size:6;not null;index:idx_link_events_code"`
	OwnerID   string    `gorm:"size:36;not null;index:idx_link_events_code"`
	Kind      string    `gorm:"size:32;not null"`
	Detail    string    `gorm:"size:512"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
}

func (eventModel) TableName() string { return "link_events" }

func (m *eventModel) toEvent() domain.LinkEvent {
	return domain.LinkEvent{
		ID:        m.ID,
		Code:      m.Code,
		OwnerID:   m.OwnerID,
		Kind:      domain.EventKind(m.Kind),
		Detail:    m.Detail,
		CreatedAt: m.CreatedAt.UTC(),
	}
}
