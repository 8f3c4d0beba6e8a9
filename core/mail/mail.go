// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Package mail provides outbound email delivery for transactional mail,
// currently only the password reset mail.
package mail

import (
	"context"

	gomail "gopkg.in/gomail.v2"

	"github.com/relabs-tech/campdir/core/logger"
)

// Message is one outbound mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer is the interface for outbound mail delivery.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// SMTPMailer delivers mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTP creates a mailer for the given SMTP relay.
func NewSMTP(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send delivers the message. It blocks until the relay has accepted the
// mail or refused it.
func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)
	if err := s.dialer.DialAndSend(msg); err != nil {
		logger.FromContext(ctx).WithError(err).Errorf("could not send mail to %s", m.To)
		return err
	}
	logger.FromContext(ctx).Infof("sent mail to %s", m.To)
	return nil
}

// LogMailer writes mail to the log instead of sending it. It is the
// default in development setups without an SMTP relay.
type LogMailer struct{}

// Send logs the message.
func (LogMailer) Send(ctx context.Context, m Message) error {
	logger.FromContext(ctx).Infof("[mail] to %s :: %s :: %s", m.To, m.Subject, m.Body)
	return nil
}
