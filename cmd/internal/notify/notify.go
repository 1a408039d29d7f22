// Package notify delivers RSVP confirmations to guests by SMS and email.
package notify

import (
	"context"
	"errors"
)

// ErrSMSNotConfigured is returned in production when the SMS gateway is not set up.
var ErrSMSNotConfigured = errors.New("notify: sms api not configured")

// Message is one confirmation. Empty ToPhone or ToEmail skips that channel.
type Message struct {
	ToPhone string
	ToEmail string
	ToName  string
	Subject string
	Body    string
}

// Notifier delivers a Message.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Noop drops every message.
type Noop struct{}

func (Noop) Notify(context.Context, Message) error { return nil }

// Multi delivers through every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
