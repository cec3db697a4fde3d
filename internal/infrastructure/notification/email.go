package notification

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	appotp "github.com/merchant/backend/internal/application/otp"
	"github.com/merchant/backend/internal/infrastructure/config"
	"github.com/merchant/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers codes by email
type SMTPSender struct {
	cfg      config.SMTPConfig
	logger   *zap.Logger
	sendMail sendMailFunc
	now      func() time.Time
}

// NewSMTPSender creates an email sender for the configured relay
func NewSMTPSender(cfg config.SMTPConfig, log *zap.Logger) *SMTPSender {
	return &SMTPSender{
		cfg:      cfg,
		logger:   log,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

// SendOTP implements appotp.NotificationSender
func (s *SMTPSender) SendOTP(ctx context.Context, msg appotp.Message) (bool, error) {
	if s.cfg.Host == "" || s.cfg.From == "" {
		return false, fmt.Errorf("smtp: host and from address must be configured")
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	raw := buildMessage(s.cfg.From, msg.Identifier, subject(msg.Purpose), body(msg, s.now()))

	// net/smtp has no context support; the send is abandoned, not cancelled, on timeout
	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(addr, auth, s.cfg.From, []string{msg.Identifier}, raw)
	}()

	select {
	case <-ctx.Done():
		return false, fmt.Errorf("smtp: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			s.logger.Warn("Email delivery failed",
				zap.String("identifier", logger.MaskIdentifier(msg.Identifier)),
				zap.String("purpose", string(msg.Purpose)),
				zap.Error(err),
			)
			return false, fmt.Errorf("smtp: %w", err)
		}
	}

	s.logger.Info("Email code sent",
		zap.String("identifier", logger.MaskIdentifier(msg.Identifier)),
		zap.String("purpose", string(msg.Purpose)),
	)
	return true, nil
}

func buildMessage(from, to, subj, text string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subj + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(text + "\r\n")
	return []byte(b.String())
}

var _ appotp.NotificationSender = (*SMTPSender)(nil)
