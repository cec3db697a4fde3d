// Package notification delivers one-time codes over email and SMS.
package notification

import (
	"fmt"
	"math"
	"time"

	appotp "github.com/merchant/backend/internal/application/otp"
	"github.com/merchant/backend/internal/domain/otp"
)

func subject(purpose otp.Purpose) string {
	switch purpose {
	case otp.PurposeEmailVerify:
		return "Verify your email address"
	case otp.PurposePasswordReset:
		return "Your password reset code"
	default:
		return "Your sign-in code"
	}
}

// body renders the plain text sent over both channels
func body(msg appotp.Message, now time.Time) string {
	text := fmt.Sprintf("%s: %s", subject(msg.Purpose), msg.Code)
	if !msg.ExpiresAt.IsZero() {
		minutes := int(math.Ceil(msg.ExpiresAt.Sub(now).Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		text += fmt.Sprintf(". It expires in %d minutes.", minutes)
	}
	return text + " If you did not request it, ignore this message."
}
