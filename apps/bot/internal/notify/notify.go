// Package notify delivers bot messages to users' private channels.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"spadesbot/apps/bot/internal/logging"
	"spadesbot/apps/bot/internal/present"
	"spadesbot/apps/bot/internal/session"
)

// Messenger sends text to a user's private channel, opening it if needed.
type Messenger interface {
	SendDirect(ctx context.Context, userID, text string) error
}

type Dispatcher struct {
	messenger Messenger
	log       *logrus.Entry
}

func NewDispatcher(m Messenger) *Dispatcher {
	return &Dispatcher{messenger: m, log: logging.For("Notify")}
}

// NotifyUser sends text to one user as a block quote.
func (d *Dispatcher) NotifyUser(ctx context.Context, u session.User, text string) error {
	if err := d.messenger.SendDirect(ctx, u.ID, present.Wrap(text)); err != nil {
		return fmt.Errorf("notify %s: %w", u.ID, err)
	}
	return nil
}

// NotifyAll sends text to every user in order. A failed delivery is logged
// and does not stop the others; all failures are returned joined.
func (d *Dispatcher) NotifyAll(ctx context.Context, users []session.User, text string) error {
	var errs []error
	for _, u := range users {
		if err := d.NotifyUser(ctx, u, text); err != nil {
			d.log.WithField("user", u.ID).Warnf("delivery failed: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
