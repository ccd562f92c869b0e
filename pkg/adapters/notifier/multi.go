package notifier

import (
	"context"

	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	"go.uber.org/multierr"
)

// Multi fans a notification out to every notifier, in order. All of them
// are called even when one fails.
type Multi []ports.Notifier

func (m Multi) NotifyLimitReached(ctx context.Context, link domain.Link) error {
	var err error
	for _, n := range m {
		err = multierr.Append(err, n.NotifyLimitReached(ctx, link))
	}
	return err
}

func (m Multi) NotifyExpired(ctx context.Context, link domain.Link) error {
	var err error
	for _, n := range m {
		err = multierr.Append(err, n.NotifyExpired(ctx, link))
	}
	return err
}

var _ ports.Notifier = Multi(nil)
