package config

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"

	mail "github.com/go-mail/mail/v2"
)

// SMTPSettings is read at send time so a late-loaded .env still applies.
type SMTPSettings struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string
	SkipTLSVerify bool
}

func smtpSettingsFromEnv() SMTPSettings {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}
	return SMTPSettings{
		Host:          os.Getenv("SMTP_HOST"),
		Port:          port,
		User:          os.Getenv("SMTP_USER"),
		Pass:          os.Getenv("SMTP_PASS"),
		From:          os.Getenv("SMTP_FROM"), // e.g. "Bankeu DPMD <no-reply@dpmd.go.id>"
		SkipTLSVerify: os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1",
	}
}

// MailConfigured reports whether SendMail can deliver anything.
func MailConfigured() bool {
	s := smtpSettingsFromEnv()
	return s.Host != "" && s.From != ""
}

func SendMail(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	s := smtpSettingsFromEnv()
	if s.Host == "" || s.From == "" {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.SkipTLSVerify,
	}

	return d.DialAndSend(m)
}
