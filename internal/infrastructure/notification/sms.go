package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appotp "github.com/merchant/backend/internal/application/otp"
	"github.com/merchant/backend/internal/infrastructure/config"
	"github.com/merchant/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// maxErrorBody bounds how much of a gateway error response is kept
const maxErrorBody = 512

type smsRequest struct {
	To      string `json:"to"`
	Sender  string `json:"sender,omitempty"`
	Message string `json:"message"`
}

// HTTPSMSSender delivers codes through a JSON SMS gateway
type HTTPSMSSender struct {
	cfg    config.SMSConfig
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewHTTPSMSSender creates an SMS sender for the configured gateway
func NewHTTPSMSSender(cfg config.SMSConfig, log *zap.Logger) *HTTPSMSSender {
	return &HTTPSMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log,
		now:    time.Now,
	}
}

// SendOTP implements appotp.NotificationSender
func (s *HTTPSMSSender) SendOTP(ctx context.Context, msg appotp.Message) (bool, error) {
	if s.cfg.BaseURL == "" || s.cfg.APIKey == "" {
		return false, fmt.Errorf("sms: gateway url and api key must be configured")
	}

	raw, err := json.Marshal(smsRequest{
		To:      msg.Identifier,
		Sender:  s.cfg.Sender,
		Message: body(msg, s.now()),
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return false, fmt.Errorf("sms: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("sms: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.logger.Warn("SMS delivery rejected",
			zap.String("identifier", logger.MaskIdentifier(msg.Identifier)),
			zap.Int("status", resp.StatusCode),
		)
		return false, fmt.Errorf("sms: gateway returned status=%d body=%s", resp.StatusCode, string(b))
	}

	s.logger.Info("SMS code sent",
		zap.String("identifier", logger.MaskIdentifier(msg.Identifier)),
		zap.String("purpose", string(msg.Purpose)),
	)
	return true, nil
}

var _ appotp.NotificationSender = (*HTTPSMSSender)(nil)
