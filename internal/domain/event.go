package domain

type EventKind string

const (
	EventCreated          EventKind = "created"
	EventUpdated          EventKind = "updated"
	EventViewed           EventKind = "viewed"
	EventAccepted         EventKind = "accepted"
	EventCanceledByBuyer  EventKind = "canceled_by_buyer"
	EventCanceledBySeller EventKind = "canceled_by_seller"
	EventCompleted        EventKind = "completed"
)

// Event is published after the change it describes has been committed.
type Event struct {
	Kind  EventKind
	Deal  Deal
	Offer Offer
	Actor int64
}

// Recipient is the participant that did not cause the event.
func (e Event) Recipient() int64 {
	if e.Actor == e.Deal.BuyerID {
		return e.Deal.SellerID
	}
	return e.Deal.BuyerID
}
