package main

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

var errSMTPNotConfigured = errors.New("SMTP credentials not configured")

func sendContactEmail(cfg SMTPConfig, name, email, message string) error {
	if cfg.User == "" || cfg.Pass == "" {
		return errSMTPNotConfigured
	}
	to := cfg.To
	if to == "" {
		to = cfg.User
	}
	return smtp.SendMail(cfg.Host+":"+cfg.Port,
		smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host),
		cfg.User, []string{to}, contactMessage(cfg.User, to, name, email, message))
}

// contactMessage composes the RFC 5322 message. Header values are stripped of
// line breaks so form input cannot inject headers.
func contactMessage(from, to, name, email, message string) []byte {
	clean := strings.NewReplacer("\r", " ", "\n", " ")
	name = clean.Replace(name)
	email = clean.Replace(email)

	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, name, email, message)

	return []byte("To: " + to + "\r\n" +
		"Subject: Portfolio Contact: " + name + "\r\n" +
		"From: " + from + "\r\n" +
		"Reply-To: " + email + "\r\n" +
		"\r\n" +
		body + "\r\n")
}
