package email

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

var ErrNotConfigured = errors.New("smtp host is not configured")

var headerSafe = strings.NewReplacer("\r", " ", "\n", " ")

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates a new email service. An empty host yields a service
// whose Send always returns ErrNotConfigured.
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
		send: smtp.SendMail,
	}
}

// Send renders tpl with data and delivers it to one recipient.
func (s *Service) Send(tpl Template, to string, data OrderData) error {
	if s.host == "" {
		return ErrNotConfigured
	}
	if strings.ContainsAny(to, "\r\n") || !strings.Contains(to, "@") {
		return fmt.Errorf("invalid recipient %q", to)
	}

	subject, body, err := Render(tpl, data)
	if err != nil {
		return err
	}
	subject = headerSafe.Replace(subject)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return s.send(addr, nil, s.from, []string{to}, []byte(msg))
}
