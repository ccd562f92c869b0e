package notifier

import (
	"context"
	"fmt"

	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
)

// EventRecorder is the slice of ports.LinkRepository the store notifier needs.
type EventRecorder interface {
	RecordEvent(ctx context.Context, event *domain.LinkEvent) error
}

// StoreNotifier keeps every notification as a LinkEvent so owners can list them.
type StoreNotifier struct {
	events EventRecorder
	clock  ports.Clock
}

func NewStoreNotifier(events EventRecorder, clock ports.Clock) *StoreNotifier {
	return &StoreNotifier{events: events, clock: clock}
}

func (n *StoreNotifier) NotifyLimitReached(ctx context.Context, link domain.Link) error {
	return n.record(ctx, link, domain.EventLimitReached,
		fmt.Sprintf("use limit of %d reached", link.UseLimit))
}

func (n *StoreNotifier) NotifyExpired(ctx context.Context, link domain.Link) error {
	return n.record(ctx, link, domain.EventExpired,
		fmt.Sprintf("lifetime of %d hours elapsed", link.TTLHours))
}

func (n *StoreNotifier) record(ctx context.Context, link domain.Link, kind domain.EventKind, detail string) error {
	event := &domain.LinkEvent{
		Code:      link.Code,
		OwnerID:   link.OwnerID,
		Kind:      kind,
		Detail:    detail,
		CreatedAt: n.clock.Now(),
	}
	if err := n.events.RecordEvent(ctx, event); err != nil {
		return fmt.Errorf("record %s event for '%s': %w", kind, link.Code, err)
	}
	return nil
}

var _ ports.Notifier = (*StoreNotifier)(nil)
