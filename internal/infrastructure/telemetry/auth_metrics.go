package telemetry

import (
	"context"
	"errors"
	"strings"

	appidentity "github.com/merchant/backend/internal/application/identity"
	appotp "github.com/merchant/backend/internal/application/otp"
	"github.com/merchant/backend/internal/domain/otp"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// AuthMetrics counts OTP and login outcomes.
// It serves both the OTP services and the identity services as their recorder.
type AuthMetrics struct {
	otpIssued      *Counter
	otpVerified    *Counter
	otpFailed      *Counter
	loginSucceeded *Counter
	registered     *Counter
}

// NewAuthMetrics creates the auth counters on meter
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &AuthMetrics{}
	specs := []struct {
		target **Counter
		name   string
		desc   string
		unit   string
	}{
		{&m.otpIssued, "auth.otp_issued", "One-time codes issued or reused", "{code}"},
		{&m.otpVerified, "auth.otp_verified", "One-time codes accepted", "{code}"},
		{&m.otpFailed, "auth.otp_failed", "One-time code requests or checks rejected", "{failure}"},
		{&m.loginSucceeded, "auth.login_succeeded", "Successful sign-ins", "{login}"},
		{&m.registered, "auth.registered", "Accounts registered", "{account}"},
	}
	for _, s := range specs {
		c, err := NewCounter(meter, s.name, s.desc, s.unit)
		if err != nil {
			return nil, err
		}
		*s.target = c
	}
	return m, nil
}

// RecordIssued implements appotp.MetricsRecorder
func (m *AuthMetrics) RecordIssued(ctx context.Context, channel otp.Channel, purpose otp.Purpose, sent bool) {
	m.otpIssued.Inc(ctx,
		AttrChannel.String(string(channel)),
		AttrPurpose.String(string(purpose)),
		AttrSent.Bool(sent),
	)
}

// RecordVerified implements appotp.MetricsRecorder
func (m *AuthMetrics) RecordVerified(ctx context.Context, channel otp.Channel, purpose otp.Purpose, codeType otp.CodeType) {
	m.otpVerified.Inc(ctx,
		AttrChannel.String(string(channel)),
		AttrPurpose.String(string(purpose)),
		AttrMode.String(strings.ToLower(string(codeType))),
	)
}

// RecordFailed implements appotp.MetricsRecorder
func (m *AuthMetrics) RecordFailed(ctx context.Context, channel otp.Channel, purpose otp.Purpose, reason string) {
	m.otpFailed.Inc(ctx,
		AttrChannel.String(string(channel)),
		AttrPurpose.String(string(purpose)),
		AttrReasonCode.String(reason),
	)
}

// RecordLogin counts a successful sign-in by method
func (m *AuthMetrics) RecordLogin(ctx context.Context, method string) {
	m.loginSucceeded.Inc(ctx, AttrMethod.String(method))
}

// RecordRegistration counts a new account by how it was created
func (m *AuthMetrics) RecordRegistration(ctx context.Context, source string) {
	m.registered.Inc(ctx, AttrSource.String(source))
}

var (
	_ appotp.MetricsRecorder    = (*AuthMetrics)(nil)
	_ appidentity.EventRecorder = (*AuthMetrics)(nil)
)
