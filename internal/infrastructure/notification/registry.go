package notification

import (
	"fmt"

	appotp "github.com/merchant/backend/internal/application/otp"
	"github.com/merchant/backend/internal/domain/otp"
	"github.com/merchant/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewRegistry builds the channel to sender registry for the configured drivers
func NewRegistry(cfg config.NotificationConfig, log *zap.Logger) (*appotp.SenderRegistry, error) {
	senders := make(map[otp.Channel]appotp.NotificationSender, 2)

	switch cfg.EmailDriver {
	case "smtp":
		senders[otp.ChannelEmail] = NewSMTPSender(cfg.SMTP, log.Named("smtp"))
	case "log", "":
		senders[otp.ChannelEmail] = NewLogSender(log.Named("email"))
	default:
		return nil, fmt.Errorf("unknown email driver %q", cfg.EmailDriver)
	}

	switch cfg.SMSDriver {
	case "http":
		senders[otp.ChannelSMS] = NewHTTPSMSSender(cfg.SMS, log.Named("sms"))
	case "log", "":
		senders[otp.ChannelSMS] = NewLogSender(log.Named("sms"))
	default:
		return nil, fmt.Errorf("unknown sms driver %q", cfg.SMSDriver)
	}

	return appotp.NewSenderRegistry(senders), nil
}
