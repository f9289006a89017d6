// Package telegram runs the marketplace bot: account linking by code, balance
// lookups and the outgoing side of deal notifications.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/punchamoorthee/marketdeals/internal/cache"
	"github.com/punchamoorthee/marketdeals/internal/domain"
	"github.com/punchamoorthee/marketdeals/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	replyWelcome       = "Добро пожаловать!"
	replyNoUsername    = "\n\nУ вас не задано имя пользователя. Пожалуйста, укажите его в настройках телеграма"
	replyHelp          = "Отправьте код подключения с сайта, чтобы связать аккаунт.\nБаланс: показать баланс."
	replyLinkNoName    = "\n\nУ вас не задано 'имя пользователя'. Пожалуйста, укажите его в настройках телеграма (для этого нужно нажать на иконку 'три черточки' слева-вверху и там в настройках найти 'ИМЯ ПОЛЬЗОВАТЕЛЯ', а не просто 'Имя')"
	replyCodeInvalid   = "Код не действителен."
	replyCodeNoUser    = "Код не действителен.."
	replyLinked        = "Отлично! ваш телеграм подключен! теперь все функции доступны, можно вернуться на сайт и полноценно пользоваться."
	replyTaken         = "Юзер занят"
	replyNotLinked     = "Телеграм не подключен. Отправьте код подключения с сайта."
	replyBadCommand    = "bad command"
	replySendText      = "Отправьте текстовое сообщение"
	replyInternalError = "Что-то пошло не так, попробуйте позже."

	commandBalance = "Баланс"
)

type CodeStore interface {
	Lookup(ctx context.Context, code string) (int64, error)
	Delete(ctx context.Context, code string) error
}

type Accounts interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UserByTelegram(ctx context.Context, telegramID int64) (*domain.User, error)
	LinkTelegram(ctx context.Context, userID, telegramID int64, username string) error
	Balance(ctx context.Context, userID int64) (domain.Balance, error)
}

// Responder turns an incoming chat message into the bot's reply.
type Responder struct {
	codes    CodeStore
	accounts Accounts
	currency string
	log      *logrus.Logger
}

func NewResponder(codes CodeStore, accounts Accounts, currency string, log *logrus.Logger) *Responder {
	return &Responder{codes: codes, accounts: accounts, currency: currency, log: log}
}

func (r *Responder) Reply(ctx context.Context, chatID int64, username, text string) string {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return replySendText
	case text == "/start":
		if username == "" {
			return replyWelcome + replyNoUsername
		}
		return replyWelcome
	case text == "/help":
		return replyHelp
	case text == commandBalance:
		return r.balance(ctx, chatID)
	case isNumeric(text):
		return r.link(ctx, chatID, username, text)
	}
	return replyBadCommand
}

func isNumeric(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func (r *Responder) balance(ctx context.Context, chatID int64) string {
	user, err := r.accounts.UserByTelegram(ctx, chatID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return replyNotLinked
	}
	if err != nil {
		r.log.WithError(err).WithField("chat_id", chatID).Error("telegram user lookup failed")
		return replyInternalError
	}
	bal, err := r.accounts.Balance(ctx, user.ID)
	if err != nil {
		r.log.WithError(err).WithField("user_id", user.ID).Error("balance lookup failed")
		return replyInternalError
	}
	return fmt.Sprintf("Ваш баланс \xF0\x9F\x92\xB0 : %d %s", bal.Total, r.currency)
}

func (r *Responder) link(ctx context.Context, chatID int64, username, code string) string {
	if username == "" {
		return replyLinkNoName
	}

	userID, err := r.codes.Lookup(ctx, code)
	if errors.Is(err, cache.ErrCodeNotFound) {
		return replyCodeInvalid
	}
	if err != nil {
		r.log.WithError(err).Error("link code lookup failed")
		return replyInternalError
	}

	if _, err := r.accounts.GetUser(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return replyCodeNoUser
		}
		r.log.WithError(err).WithField("user_id", userID).Error("user lookup failed")
		return replyInternalError
	}

	if _, err := r.accounts.UserByTelegram(ctx, chatID); err == nil {
		return replyTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		r.log.WithError(err).WithField("chat_id", chatID).Error("telegram user lookup failed")
		return replyInternalError
	}

	if err := r.accounts.LinkTelegram(ctx, userID, chatID, username); err != nil {
		if errors.Is(err, store.ErrTelegramTaken) {
			return replyTaken
		}
		r.log.WithError(err).WithField("user_id", userID).Error("telegram link failed")
		return replyInternalError
	}

	r.log.WithFields(logrus.Fields{"user_id": userID, "chat_id": chatID}).Info("telegram connected")
	if err := r.codes.Delete(ctx, code); err != nil {
		r.log.WithError(err).Warn("link code delete failed")
	}
	return replyLinked
}
