package notify

import (
	"context"

	"github.com/punchamoorthee/marketdeals/internal/domain"
	"github.com/sirupsen/logrus"
)

// Sender delivers a text message to a Telegram chat.
type Sender interface {
	SendText(chatID int64, text string) error
}

type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

// Telegram notifies the counterparty of an event in their linked chat.
// Users without a linked chat are skipped.
type Telegram struct {
	sender Sender
	users  UserLookup
	log    *logrus.Logger
}

func NewTelegram(sender Sender, users UserLookup, log *logrus.Logger) *Telegram {
	return &Telegram{sender: sender, users: users, log: log}
}

func (t *Telegram) Publish(ctx context.Context, ev domain.Event) {
	text := Message(ev)
	if text == "" {
		return
	}
	entry := t.log.WithFields(logrus.Fields{"deal_id": ev.Deal.ID, "event": ev.Kind})

	user, err := t.users.GetUser(ctx, ev.Recipient())
	if err != nil {
		entry.WithError(err).Warn("notification recipient lookup failed")
		return
	}
	if user.TelegramUserID == nil {
		return
	}
	if err := t.sender.SendText(*user.TelegramUserID, text); err != nil {
		entry.WithError(err).Warn("telegram notification failed")
	}
}
