package notifier

import (
	"context"

	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	"go.uber.org/zap"
)

// LogNotifier tells the owner through the application log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notifier")}
}

func (n *LogNotifier) NotifyLimitReached(ctx context.Context, link domain.Link) error {
	n.logger.Info("link use limit reached, further redirects are blocked",
		zap.String("owner_id", link.OwnerID),
		zap.Int("use_limit", link.UseLimit),
		zap.String("code", link.Code),
		zap.String("target", link.Target),
	)
	return nil
}

func (n *LogNotifier) NotifyExpired(ctx context.Context, link domain.Link) error {
	n.logger.Info("link lifetime expired",
		zap.String("owner_id", link.OwnerID),
		zap.Int("ttl_hours", link.TTLHours),
		zap.String("code", link.Code),
		zap.String("target", link.Target),
	)
	return nil
}

var _ ports.Notifier = (*LogNotifier)(nil)
