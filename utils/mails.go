package utils

import (
	"fmt"
	"net/smtp"
	"os"
)

// SendMail delivers a notification mail. The html body is optional; when
// present it is sent instead of the plain text one. Delivery failures are
// returned to the caller, there is no retry here.
func SendMail(to, subject, text, html string) error {
	from := os.Getenv("SMTP_FROM")
	password := os.Getenv("SMTP_PASSWORD")

	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		smtpHost = "smtp.gmail.com"
	}
	smtpPort := os.Getenv("SMTP_PORT")
	if smtpPort == "" {
		smtpPort = "587"
	}

	body := text
	contentType := "text/plain; charset=\"UTF-8\""
	if html != "" {
		body = html
		contentType = "text/html; charset=\"UTF-8\""
	}

	message := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: %s\r\n\r\n%s\r\n",
		from, to, subject, contentType, body,
	))

	auth := smtp.PlainAuth("", from, password, smtpHost)

	if err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, []string{to}, message); err != nil {
		LogError(err, "Error sending mail to "+to)
		return err
	}

	LogSuccess("Mail sent to " + to)
	return nil
}
