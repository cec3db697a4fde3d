package otp

import (
	"context"

	"github.com/merchant/backend/internal/domain/otp"
)

// MetricsRecorder receives OTP outcome events
type MetricsRecorder interface {
	RecordIssued(ctx context.Context, channel otp.Channel, purpose otp.Purpose, sent bool)
	RecordVerified(ctx context.Context, channel otp.Channel, purpose otp.Purpose, codeType otp.CodeType)
	RecordFailed(ctx context.Context, channel otp.Channel, purpose otp.Purpose, reason string)
}

type noopMetrics struct{}

func (noopMetrics) RecordIssued(context.Context, otp.Channel, otp.Purpose, bool)           {}
func (noopMetrics) RecordVerified(context.Context, otp.Channel, otp.Purpose, otp.CodeType) {}
func (noopMetrics) RecordFailed(context.Context, otp.Channel, otp.Purpose, string)         {}

// NoopMetrics discards all events
var NoopMetrics MetricsRecorder = noopMetrics{}
