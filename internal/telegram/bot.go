package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/tucnak/telebot.v2"
)

type Settings struct {
	Token string
	// WebhookURL switches the bot from long polling to a webhook served on
	// WebhookListen.
	WebhookURL    string
	WebhookListen string
}

type Bot struct {
	teleBot   *telebot.Bot
	responder *Responder
	log       *logrus.Logger
}

func NewBot(s Settings, responder *Responder, log *logrus.Logger) (*Bot, error) {
	var poller telebot.Poller = &telebot.LongPoller{Timeout: 10 * time.Second}
	if s.WebhookURL != "" {
		poller = &telebot.Webhook{
			Listen:   s.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: s.WebhookURL},
		}
	}

	tb, err := telebot.NewBot(telebot.Settings{
		Token:  s.Token,
		Poller: poller,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %v", err)
	}

	b := &Bot{teleBot: tb, responder: responder, log: log}
	tb.Handle(telebot.OnText, b.onMessage)
	for _, endpoint := range []string{telebot.OnPhoto, telebot.OnDocument, telebot.OnSticker, telebot.OnVoice, telebot.OnVideo} {
		tb.Handle(endpoint, b.onMessage)
	}
	return b, nil
}

func (b *Bot) onMessage(m *telebot.Message) {
	if m.Chat == nil {
		return
	}
	username := ""
	if m.Sender != nil {
		username = m.Sender.Username
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reply := b.responder.Reply(ctx, m.Chat.ID, username, m.Text)
	if _, err := b.teleBot.Send(m.Chat, reply); err != nil {
		b.log.WithError(err).WithField("chat_id", m.Chat.ID).Warn("telegram reply failed")
	}
}

// SendText delivers a plain message to a chat.
func (b *Bot) SendText(chatID int64, text string) error {
	_, err := b.teleBot.Send(&telebot.Chat{ID: chatID}, text)
	return err
}

// Start polls for updates until Stop is called.
func (b *Bot) Start() {
	b.log.Info("telegram bot started")
	b.teleBot.Start()
}

func (b *Bot) Stop() {
	b.teleBot.Stop()
}
