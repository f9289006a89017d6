package notify

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/punchamoorthee/marketdeals/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendText(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID, text})
	return f.err
}

type fakeUsers map[int64]*domain.User

func (f fakeUsers) GetUser(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func chat(id int64) *int64 { return &id }

func testEvent(kind domain.EventKind, actor int64) domain.Event {
	offer := domain.NewOffer(1, "Мёд", 300)
	deal, _ := domain.NewDeal(offer, 2, 2, 300, domain.DealInner, "")
	return domain.Event{Kind: kind, Deal: *deal, Offer: *offer, Actor: actor}
}

func TestTelegramNotifiesCounterparty(t *testing.T) {
	sender := &fakeSender{}
	users := fakeUsers{
		1: {ID: 1, TelegramUserID: chat(1001)},
		2: {ID: 2, TelegramUserID: chat(1002)},
	}
	tg := NewTelegram(sender, users, quietLogger())

	tg.Publish(context.Background(), testEvent(domain.EventCreated, 2))
	tg.Publish(context.Background(), testEvent(domain.EventAccepted, 1))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(1001), sender.sent[0].chatID)
	assert.Contains(t, sender.sent[0].text, "Новая сделка")
	assert.Equal(t, int64(1002), sender.sent[1].chatID)
	assert.Contains(t, sender.sent[1].text, "принята")
}

func TestTelegramSkipsUnlinkedUsers(t *testing.T) {
	sender := &fakeSender{}
	tg := NewTelegram(sender, fakeUsers{1: {ID: 1}}, quietLogger())

	tg.Publish(context.Background(), testEvent(domain.EventCreated, 2))
	tg.Publish(context.Background(), testEvent(domain.EventAccepted, 1))

	assert.Empty(t, sender.sent)
}

func TestTelegramSendErrorIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("blocked by user")}
	tg := NewTelegram(sender, fakeUsers{1: {ID: 1, TelegramUserID: chat(5)}}, quietLogger())

	assert.NotPanics(t, func() {
		tg.Publish(context.Background(), testEvent(domain.EventCompleted, 2))
	})
	assert.Len(t, sender.sent, 1)
}

func TestMessageCoversEveryKind(t *testing.T) {
	for _, kind := range []domain.EventKind{
		domain.EventCreated, domain.EventUpdated, domain.EventViewed, domain.EventAccepted,
		domain.EventCanceledByBuyer, domain.EventCanceledBySeller, domain.EventCompleted,
	} {
		msg := Message(testEvent(kind, 1))
		assert.Contains(t, msg, "Мёд", "kind=%s", kind)
	}
	assert.Empty(t, Message(testEvent("unknown", 1)))
}

func TestAsyncDeliversBeforeClose(t *testing.T) {
	rec := &recorder{}
	a := NewAsync(rec, 2, 16, quietLogger())

	for i := 0; i < 10; i++ {
		a.Publish(context.Background(), testEvent(domain.EventCreated, 2))
	}
	a.Close()

	assert.Len(t, rec.events, 10)

	a.Publish(context.Background(), testEvent(domain.EventCreated, 2))
	a.Close()
	assert.Len(t, rec.events, 10)
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, b, NewLog(quietLogger())}.Publish(context.Background(), testEvent(domain.EventCompleted, 2))

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}
