// Package notify delivers committed deal events to the deal participants.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/punchamoorthee/marketdeals/internal/domain"
	"github.com/sirupsen/logrus"
)

type Publisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

// Log writes every event to the logger.
type Log struct {
	log *logrus.Logger
}

func NewLog(log *logrus.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Publish(_ context.Context, ev domain.Event) {
	l.log.WithFields(logrus.Fields{
		"event":     ev.Kind,
		"deal_id":   ev.Deal.ID,
		"recipient": ev.Recipient(),
	}).Debug("deal event")
}

// Multi fans an event out to every publisher in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev domain.Event) {
	for _, p := range m {
		p.Publish(ctx, ev)
	}
}

// Async hands events to a fixed pool of workers so slow deliveries never hold
// up a request. Events published after Close are dropped.
type Async struct {
	next   Publisher
	queue  chan domain.Event
	log    *logrus.Logger
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewAsync(next Publisher, workers, buffer int, log *logrus.Logger) *Async {
	if workers < 1 {
		workers = 1
	}
	a := &Async{
		next:  next,
		queue: make(chan domain.Event, buffer),
		log:   log,
	}
	a.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go a.worker()
	}
	return a
}

func (a *Async) worker() {
	defer a.wg.Done()
	for ev := range a.queue {
		a.next.Publish(context.Background(), ev)
	}
}

// Publish enqueues the event, dropping it when the queue is full.
func (a *Async) Publish(_ context.Context, ev domain.Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- ev:
	default:
		a.log.WithField("deal_id", ev.Deal.ID).Warn("notification queue full, dropping event")
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	a.wg.Wait()
}

// Message renders the Telegram text for an event, or "" when the event is not
// worth a notification.
func Message(ev domain.Event) string {
	title := ev.Offer.Title
	if title == "" {
		title = ev.Deal.OfferID.String()
	}
	switch ev.Kind {
	case domain.EventCreated:
		return fmt.Sprintf("Новая сделка по предложению «%s»: %d шт. на сумму %d.", title, ev.Deal.Quantity, ev.Deal.AmountCost)
	case domain.EventUpdated:
		return fmt.Sprintf("Сделка по предложению «%s» изменена: %d шт. на сумму %d.", title, ev.Deal.Quantity, ev.Deal.AmountCost)
	case domain.EventViewed:
		return fmt.Sprintf("Продавец просмотрел сделку по предложению «%s».", title)
	case domain.EventAccepted:
		return fmt.Sprintf("Сделка по предложению «%s» принята.", title)
	case domain.EventCanceledByBuyer:
		return fmt.Sprintf("Покупатель отменил сделку по предложению «%s».", title)
	case domain.EventCanceledBySeller:
		return fmt.Sprintf("Продавец отменил сделку по предложению «%s».", title)
	case domain.EventCompleted:
		return fmt.Sprintf("Сделка по предложению «%s» завершена.", title)
	}
	return ""
}
