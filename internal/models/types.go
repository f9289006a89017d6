package models

import (
	"encoding/json"

	"github.com/punchamoorthee/marketdeals/internal/domain"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// CreateDealRequest is the payload a buyer posts to open or amend a deal.
type CreateDealRequest struct {
	OfferID  string `json:"offer_id"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
	Type     string `json:"type"`
	Comment  string `json:"comment"`
}

// DealResponse is the canonical response structure for deal endpoints.
type DealResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Deal    *domain.Deal  `json:"deal,omitempty"`
	Offer   *domain.Offer `json:"offer,omitempty"`
	Created bool          `json:"-"`
}

// DealList is one page of a deals tab.
type DealList struct {
	Show  domain.DealTab `json:"show"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Total int            `json:"total"`
	Deals []domain.Deal  `json:"deals"`
}

type CreateOfferRequest struct {
	Title            string `json:"title"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	Price            int64  `json:"price"`
	Measure          string `json:"measure"`
	Quantity         *int64 `json:"quantity"`
	Status           string `json:"status"`
}

// OfferDetails is an offer together with how many deals it has drawn.
type OfferDetails struct {
	*domain.Offer
	DealsCount       int `json:"deals_count"`
	ActiveDealsCount int `json:"active_deals_count"`
}

// UserSummary is a user's balance plus a count of their listings.
type UserSummary struct {
	User                 *domain.User   `json:"user"`
	Balance              domain.Balance `json:"balance"`
	OffersCount          int            `json:"offers_count"`
	AvailableOffersCount int            `json:"available_offers_count"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
}

type LinkCodeResponse struct {
	Code    string `json:"code"`
	BotName string `json:"bot_name,omitempty"`
}

// IdempotencyRecord holds the state of a request key.
type IdempotencyRecord struct {
	Key            string
	RequestHash    string
	Status         string
	ResponseBody   json.RawMessage
	ResponseStatus int
}
