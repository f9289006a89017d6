package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OfferStatus string

const (
	OfferNotAvailable OfferStatus = "not-available"
	OfferAvailable    OfferStatus = "available"
	OfferReserved     OfferStatus = "reserved"
	OfferOnDemand     OfferStatus = "on-demand"
)

func (s OfferStatus) Valid() bool {
	switch s {
	case OfferNotAvailable, OfferAvailable, OfferReserved, OfferOnDemand:
		return true
	}
	return false
}

// Measure is the unit an offer is sold in. MeasureNone offers carry no quantity.
type Measure string

const (
	MeasureNone  Measure = "none"
	MeasurePiece Measure = "piece"
	MeasureGram  Measure = "gram"
	MeasureKG    Measure = "kg"
	MeasureLitre Measure = "litre"
)

func (m Measure) Valid() bool {
	switch m {
	case MeasureNone, MeasurePiece, MeasureGram, MeasureKG, MeasureLitre:
		return true
	}
	return false
}

// Offer is a marketplace listing.
// When Quantity is set, 0 <= QuantityReserved <= *Quantity always holds.
type Offer struct {
	ID               uuid.UUID   `json:"id"`
	UserID           int64       `json:"user_id"`
	Title            string      `json:"title"`
	ShortDescription string      `json:"short_description,omitempty"`
	Description      string      `json:"description,omitempty"`
	Price            int64       `json:"price"`
	Measure          Measure     `json:"measure"`
	Quantity         *int64      `json:"quantity,omitempty"`
	QuantityReserved int64       `json:"quantity_reserved"`
	Status           OfferStatus `json:"status"`
	Enabled          bool        `json:"is_enabled"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        *time.Time  `json:"updated_at,omitempty"`
}

// NewOffer returns an enabled, available offer with a fresh id.
func NewOffer(userID int64, title string, price int64) *Offer {
	return &Offer{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Price:     price,
		Measure:   MeasureNone,
		Status:    OfferAvailable,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
}

// Normalize drops quantities from offers that are not measured.
func (o *Offer) Normalize() {
	if o.Measure == MeasureNone {
		o.Quantity = nil
		o.QuantityReserved = 0
	}
}

func (o *Offer) Validate() error {
	if o.Title == "" {
		return fmt.Errorf("title must not be blank")
	}
	if o.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if !o.Measure.Valid() {
		return fmt.Errorf("unknown measure %q", o.Measure)
	}
	if !o.Status.Valid() {
		return fmt.Errorf("unknown status %q", o.Status)
	}
	if o.Quantity != nil && *o.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	if o.QuantityReserved < 0 || (o.Quantity != nil && o.QuantityReserved > *o.Quantity) {
		return ErrInsufficientQuantity
	}
	return nil
}

// Tracked reports whether reservations are counted against a stock level.
// Only measured offers with a quantity keep stock; a sold-out offer stays
// tracked with nothing left to reserve.
func (o *Offer) Tracked() bool {
	return o.Measure != MeasureNone && o.Quantity != nil
}

// Available returns the unreserved stock, or nil when stock is not tracked.
func (o *Offer) Available() *int64 {
	if !o.Tracked() {
		return nil
	}
	n := *o.Quantity - o.QuantityReserved
	return &n
}

func (o *Offer) Orderable() bool {
	return o.Enabled && (o.Status == OfferAvailable || o.Status == OfferOnDemand)
}

// Reserve holds n units. Fully reserved available offers become reserved.
func (o *Offer) Reserve(n int64) error {
	if !o.Tracked() {
		return nil
	}
	if n < 1 || o.QuantityReserved+n > *o.Quantity {
		return fmt.Errorf("%w: reserve %d, available %d", ErrInsufficientQuantity, n, *o.Quantity-o.QuantityReserved)
	}
	o.QuantityReserved += n
	if o.QuantityReserved == *o.Quantity && o.Status == OfferAvailable {
		o.Status = OfferReserved
	}
	return nil
}

// Release returns n reserved units to stock.
func (o *Offer) Release(n int64) error {
	if !o.Tracked() {
		return nil
	}
	if n < 1 || n > o.QuantityReserved {
		return fmt.Errorf("%w: release %d, reserved %d", ErrReservationUnderflow, n, o.QuantityReserved)
	}
	o.QuantityReserved -= n
	if o.Status == OfferReserved {
		o.Status = OfferAvailable
	}
	return nil
}

// Consume removes n reserved units from both the reservation and the stock.
// An offer left with nothing in stock becomes not-available.
func (o *Offer) Consume(n int64) error {
	if !o.Tracked() {
		return nil
	}
	if n < 1 || n > o.QuantityReserved {
		return fmt.Errorf("%w: consume %d, reserved %d", ErrReservationUnderflow, n, o.QuantityReserved)
	}
	o.QuantityReserved -= n
	q := *o.Quantity - n
	o.Quantity = &q
	if q == 0 && o.QuantityReserved == 0 {
		o.Status = OfferNotAvailable
	} else if o.Status == OfferReserved && o.QuantityReserved < q {
		o.Status = OfferAvailable
	}
	return nil
}
