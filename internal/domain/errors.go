package domain

import "errors"

var (
	ErrOfferNotFound     = errors.New("offer not found")
	ErrOfferDisabled     = errors.New("offer disabled")
	ErrOfferNotOrderable = errors.New("offer not available for order")
	ErrOwnOffer          = errors.New("cannot order own offer")
	ErrQuantityExceeded  = errors.New("quantity exceeds available stock")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("deal amount out of range")
	ErrDealNotFound      = errors.New("deal not found")
	ErrUserNotFound      = errors.New("user not found")

	ErrNotParticipant    = errors.New("user is not a deal participant")
	ErrForbiddenAction   = errors.New("action not allowed for this participant")
	ErrDealClosed        = errors.New("deal already closed")
	ErrInvalidTransition = errors.New("invalid deal status transition")
	ErrUnknownAction     = errors.New("unknown deal action")
	ErrUnknownTab        = errors.New("unknown show type")

	ErrInsufficientQuantity = errors.New("reservation exceeds offer quantity")
	ErrReservationUnderflow = errors.New("release exceeds reserved quantity")
)
