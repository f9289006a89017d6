package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

type DealStatus string

const (
	DealNew              DealStatus = "new"
	DealViewed           DealStatus = "view"
	DealAccepted         DealStatus = "accepted"
	DealAcceptedExternal DealStatus = "accepted-external"
	DealComplete         DealStatus = "complete"
	DealCompleteOutside  DealStatus = "complete-outside"
	DealCanceledByBuyer  DealStatus = "canceled-by-buyer"
	DealCanceledBySeller DealStatus = "canceled-by-seller"
)

func (s DealStatus) Valid() bool {
	switch s {
	case DealNew, DealViewed, DealAccepted, DealAcceptedExternal,
		DealComplete, DealCompleteOutside, DealCanceledByBuyer, DealCanceledBySeller:
		return true
	}
	return false
}

// Terminal statuses are never left once entered.
func (s DealStatus) Terminal() bool {
	switch s {
	case DealComplete, DealCompleteOutside, DealCanceledByBuyer, DealCanceledBySeller:
		return true
	}
	return false
}

// Holding statuses own a reservation on the offer.
func (s DealStatus) Holding() bool {
	return s == DealAccepted || s == DealAcceptedExternal
}

// DealType tells whether payment settles inside the platform.
type DealType string

const (
	DealInner    DealType = "inner"
	DealExternal DealType = "external"
)

func (t DealType) Valid() bool {
	return t == DealInner || t == DealExternal
}

type Action string

const (
	ActionAccept   Action = "accept"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionAccept, ActionCancel, ActionComplete:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

type Role int

const (
	RoleNone Role = iota
	RoleBuyer
	RoleSeller
)

func (r Role) String() string {
	switch r {
	case RoleBuyer:
		return "buyer"
	case RoleSeller:
		return "seller"
	}
	return "none"
}

// Deal is an agreement between a buyer and a seller for an offer.
type Deal struct {
	ID         uuid.UUID  `json:"id"`
	OfferID    uuid.UUID  `json:"offer_id"`
	BuyerID    int64      `json:"buyer_id"`
	SellerID   int64      `json:"seller_id"`
	Quantity   int64      `json:"quantity"`
	Cost       int64      `json:"cost"`
	ActualCost int64      `json:"actual_cost"`
	AmountCost int64      `json:"amount_cost"`
	Status     DealStatus `json:"status"`
	Type       DealType   `json:"type"`
	Comment    string     `json:"comment,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	ViewedAt   *time.Time `json:"viewed_at,omitempty"`
}

// NewDeal opens a deal on the offer for the buyer.
func NewDeal(offer *Offer, buyerID int64, quantity, price int64, typ DealType, comment string) (*Deal, error) {
	d := &Deal{
		ID:        uuid.New(),
		OfferID:   offer.ID,
		BuyerID:   buyerID,
		SellerID:  offer.UserID,
		Status:    DealNew,
		Type:      typ,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.SetTerms(quantity, price, comment); err != nil {
		return nil, err
	}
	return d, nil
}

// DealAmount returns quantity * price. Quantities below one, negative prices
// and products that do not fit in int64 yield ErrInvalidAmount.
func DealAmount(quantity, price int64) (int64, error) {
	if quantity < 1 || price < 0 {
		return 0, fmt.Errorf("%w: quantity %d, price %d", ErrInvalidAmount, quantity, price)
	}
	if price > 0 && quantity > math.MaxInt64/price {
		return 0, fmt.Errorf("%w: %d x %d overflows", ErrInvalidAmount, quantity, price)
	}
	return quantity * price, nil
}

// SetTerms updates the amount and price of a deal still open for negotiation.
// The deal is left untouched when the amount is out of range.
func (d *Deal) SetTerms(quantity, price int64, comment string) error {
	amount, err := DealAmount(quantity, price)
	if err != nil {
		return err
	}
	d.Quantity = quantity
	d.Cost = price
	d.ActualCost = price
	d.AmountCost = amount
	d.Comment = comment
	return nil
}

func (d *Deal) RoleOf(userID int64) Role {
	switch userID {
	case d.BuyerID:
		return RoleBuyer
	case d.SellerID:
		return RoleSeller
	}
	return RoleNone
}

func (d *Deal) Terminal() bool {
	return d.Status.Terminal()
}

// MarkViewed records the seller's first look at a new deal.
// It reports whether anything changed.
func (d *Deal) MarkViewed(role Role, now time.Time) bool {
	if role != RoleSeller || d.ViewedAt != nil || d.Status != DealNew {
		return false
	}
	d.Status = DealViewed
	d.ViewedAt = &now
	return true
}

// Transition is the outcome of applying an action to a deal.
type Transition struct {
	From        DealStatus
	To          DealStatus
	Event       EventKind
	Transaction *Transaction
}

// Apply moves the deal through the action on behalf of role, updating the
// offer's reservation to match. Nothing is modified when an error is returned.
func (d *Deal) Apply(action Action, role Role, offer *Offer, now time.Time) (*Transition, error) {
	if role == RoleNone {
		return nil, ErrNotParticipant
	}
	if offer == nil || offer.ID != d.OfferID {
		return nil, ErrOfferNotFound
	}
	if d.Terminal() {
		return nil, fmt.Errorf("%w: status %s", ErrDealClosed, d.Status)
	}

	next := *offer
	if offer.Quantity != nil {
		q := *offer.Quantity
		next.Quantity = &q
	}

	t := &Transition{From: d.Status}
	switch action {
	case ActionAccept:
		if role != RoleSeller {
			return nil, fmt.Errorf("%w: only the seller accepts", ErrForbiddenAction)
		}
		if d.Status != DealNew && d.Status != DealViewed {
			return nil, fmt.Errorf("%w: accept from %s", ErrInvalidTransition, d.Status)
		}
		if err := next.Reserve(d.Quantity); err != nil {
			return nil, err
		}
		t.To = DealAccepted
		if d.Type == DealExternal {
			t.To = DealAcceptedExternal
		}
		t.Event = EventAccepted

	case ActionCancel:
		if d.Status.Holding() {
			if err := next.Release(d.Quantity); err != nil {
				return nil, err
			}
		}
		if role == RoleSeller {
			t.To = DealCanceledBySeller
			t.Event = EventCanceledBySeller
		} else {
			t.To = DealCanceledByBuyer
			t.Event = EventCanceledByBuyer
		}

	case ActionComplete:
		if role != RoleBuyer {
			return nil, fmt.Errorf("%w: only the buyer completes", ErrForbiddenAction)
		}
		switch d.Status {
		case DealAccepted:
			t.To = DealComplete
		case DealAcceptedExternal:
			t.To = DealCompleteOutside
		default:
			return nil, fmt.Errorf("%w: complete from %s", ErrInvalidTransition, d.Status)
		}
		if err := next.Consume(d.Quantity); err != nil {
			return nil, err
		}
		t.Event = EventCompleted

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	next.UpdatedAt = &now
	*offer = next
	d.Status = t.To
	d.UpdatedAt = &now

	// Only settlements inside the platform move funds.
	if d.Status == DealComplete {
		t.Transaction = NewDealTransaction(d, now)
	}
	return t, nil
}
