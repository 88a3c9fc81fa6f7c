package mail

import (
	"fmt"
	"net/smtp"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ShopFox/internal/pkg/env"
)

// SendMail sends an HTML email via the SMTP relay configured in SMTP_*.
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Warnf("[Mail] SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Errorf("[Mail] SMTP send error: %v", err)
	} else {
		log.Infof("[Mail] Email sent to %s via %s", to, addr)
	}
	return err
}

// NotifyPaymentFailure alerts the shop operator about a failed payment when
// SHOP_ALERT_EMAIL is configured.
func NotifyPaymentFailure(paymentID, orderID, rawStatus string) {
	to := env.GetEnv("SHOP_ALERT_EMAIL", "")
	if to == "" {
		return
	}

	subject := fmt.Sprintf("Payment failed: %s", paymentID)
	body := fmt.Sprintf(
		"<p>A payment was declined by the provider.</p>"+
			"<ul><li>Payment: %s</li><li>Order: %s</li><li>Provider status: %s</li></ul>",
		paymentID, orderID, rawStatus,
	)
	if err := SendMail(to, subject, body); err != nil {
		log.Errorf("[Mail] Failed to send payment failure alert for %s: %v", paymentID, err)
	}
}
