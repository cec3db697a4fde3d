package otp

import "github.com/merchant/backend/internal/domain/shared"

type serviceOptions struct {
	clock   shared.Clock
	metrics MetricsRecorder
}

// Option configures the issuance and verification services
type Option func(*serviceOptions)

// WithClock overrides the wall clock
func WithClock(clock shared.Clock) Option {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m MetricsRecorder) Option {
	return func(o *serviceOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

func applyOptions(opts []Option) serviceOptions {
	o := serviceOptions{clock: shared.SystemClock, metrics: NoopMetrics}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
