package services

import (
	"github.com/wadjakorntonsri/limitlink/pkg/metrics"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	"go.uber.org/zap"
)

type options struct {
	clock   ports.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures LinkService and Sweeper.
type Option func(*options)

func WithClock(clock ports.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock:  ports.SystemClock,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ResolveClock reports the clock a set of options selects, so adapters
// built next to the services share it.
func ResolveClock(opts []Option) ports.Clock {
	return buildOptions(opts).clock
}
