package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/merchant/backend/internal/domain/otp"
)

// Message is a code to deliver
type Message struct {
	Identifier string
	Channel    otp.Channel
	Purpose    otp.Purpose
	Code       string
	ExpiresAt  time.Time
}

// NotificationSender delivers codes. A false result or an error both count
// as a delivery failure.
type NotificationSender interface {
	SendOTP(ctx context.Context, msg Message) (bool, error)
}

// SenderRegistry dispatches messages to the sender registered for their channel.
// It is built once at startup.
type SenderRegistry struct {
	senders map[otp.Channel]NotificationSender
}

// NewSenderRegistry creates a registry from a channel to sender map
func NewSenderRegistry(senders map[otp.Channel]NotificationSender) *SenderRegistry {
	r := &SenderRegistry{senders: make(map[otp.Channel]NotificationSender, len(senders))}
	for ch, s := range senders {
		r.senders[ch] = s
	}
	return r
}

// Sender returns the sender for a channel
func (r *SenderRegistry) Sender(ch otp.Channel) (NotificationSender, error) {
	s, ok := r.senders[ch]
	if !ok || s == nil {
		return nil, fmt.Errorf("no notification sender registered for channel %q", ch)
	}
	return s, nil
}

// SendOTP implements NotificationSender
func (r *SenderRegistry) SendOTP(ctx context.Context, msg Message) (bool, error) {
	s, err := r.Sender(msg.Channel)
	if err != nil {
		return false, err
	}
	return s.SendOTP(ctx, msg)
}

var _ NotificationSender = (*SenderRegistry)(nil)
