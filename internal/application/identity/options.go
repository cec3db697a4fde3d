package identity

import (
	"context"

	"github.com/merchant/backend/internal/domain/shared"
)

// EventRecorder receives authentication outcome events
type EventRecorder interface {
	RecordLogin(ctx context.Context, method string)
	RecordRegistration(ctx context.Context, source string)
}

type noopEvents struct{}

func (noopEvents) RecordLogin(context.Context, string)        {}
func (noopEvents) RecordRegistration(context.Context, string) {}

type serviceOptions struct {
	clock  shared.Clock
	events EventRecorder
}

// Option configures the identity services
type Option func(*serviceOptions)

// WithClock overrides the wall clock
func WithClock(clock shared.Clock) Option {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithEvents sets the recorder for login and registration events
func WithEvents(events EventRecorder) Option {
	return func(o *serviceOptions) {
		if events != nil {
			o.events = events
		}
	}
}

func applyOptions(opts []Option) serviceOptions {
	o := serviceOptions{clock: shared.SystemClock, events: noopEvents{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
