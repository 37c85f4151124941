package smtp

import (
	"fmt"
	smtpPkg "net/smtp"
	"os"
	"strings"
)

type ItfSmtp interface {
	Send(to []string, subject, body string) error
}

type smtp struct {
	auth smtpPkg.Auth
	addr string
	mail string
}

func New() ItfSmtp {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.gmail.com"
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}

	mail := os.Getenv("SMTP_MAIL")
	password := os.Getenv("SMTP_PASSWORD")

	return &smtp{
		auth: smtpPkg.PlainAuth("", mail, password, host),
		addr: host + ":" + port,
		mail: mail,
	}
}

func (s *smtp) Send(to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}

	message := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.mail, strings.Join(to, ", "), subject, body))

	return smtpPkg.SendMail(s.addr, s.auth, s.mail, to, message)
}
