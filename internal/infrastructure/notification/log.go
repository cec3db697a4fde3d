package notification

import (
	"context"

	appotp "github.com/merchant/backend/internal/application/otp"
	"github.com/merchant/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LogSender writes codes to the log instead of delivering them.
// Development only; config validation rejects it in production.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{logger: log}
}

// SendOTP implements appotp.NotificationSender
func (s *LogSender) SendOTP(_ context.Context, msg appotp.Message) (bool, error) {
	s.logger.Info("OTP code (log driver)",
		zap.String("identifier", logger.MaskIdentifier(msg.Identifier)),
		zap.String("channel", string(msg.Channel)),
		zap.String("purpose", string(msg.Purpose)),
		zap.String("code", msg.Code),
		zap.Time("expires_at", msg.ExpiresAt),
	)
	return true, nil
}

var _ appotp.NotificationSender = (*LogSender)(nil)
