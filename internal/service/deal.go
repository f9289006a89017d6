package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/marketdeals/internal/domain"
	"github.com/punchamoorthee/marketdeals/internal/models"
	"github.com/punchamoorthee/marketdeals/internal/store"
	"github.com/sirupsen/logrus"
)

var dealTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "deals_transitions_total",
	Help: "Committed deal status changes, labeled by event and resulting status",
}, []string{"event", "status"})

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var actionMessages = map[domain.Action]string{
	domain.ActionAccept:   "Сделка принята.",
	domain.ActionCancel:   "Сделка отменена.",
	domain.ActionComplete: "Сделка завершена.",
}

// Publisher receives deal events after they are committed.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

type DealService struct {
	db         *pgxpool.Pool
	store      *store.Store
	publisher  Publisher
	log        *logrus.Logger
	maxRetries int
	now        func() time.Time
}

func NewDealService(s *store.Store, pub Publisher, log *logrus.Logger, maxRetries int) *DealService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &DealService{
		db:         s.Db,
		store:      s,
		publisher:  pub,
		log:        log,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateDeal opens a deal for the buyer, or amends the buyer's still-new deal
// on the same offer. The offer row is locked so stock checks cannot race.
func (s *DealService) CreateDeal(ctx context.Context, buyerID int64, req models.CreateDealRequest, idempotencyKey, reqHash string) (*models.DealResponse, *models.IdempotencyRecord, error) {
	offerID, err := uuid.Parse(req.OfferID)
	if err != nil {
		return nil, nil, domain.ErrOfferNotFound
	}
	typ := domain.DealType(req.Type)
	if typ == "" {
		typ = domain.DealInner
	}
	if !typ.Valid() {
		return nil, nil, fmt.Errorf("%w: deal type %q", ErrInvalidRequest, req.Type)
	}
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	var (
		resp     *models.DealResponse
		existing *models.IdempotencyRecord
		event    *domain.Event
	)
	err = s.inTx(ctx, "create_deal", func(tx pgx.Tx) error {
		resp, existing, event = nil, nil, nil

		rec, err := claimKey(ctx, tx, idempotencyKey, reqHash)
		if err != nil {
			return err
		}
		if rec != nil {
			existing = rec
			return nil
		}

		offer, err := store.GetOffer(ctx, tx, offerID, true)
		if err != nil {
			return err
		}
		if !offer.Enabled {
			return domain.ErrOfferDisabled
		}
		price := req.Price
		if price <= 0 {
			price = offer.Price
		}
		if !offer.Orderable() {
			return domain.ErrOfferNotOrderable
		}
		if offer.UserID == buyerID {
			return domain.ErrOwnOffer
		}
		amount, err := domain.DealAmount(quantity, price)
		if err != nil {
			return err
		}
		if typ == domain.DealInner {
			// Bumps the buyer's balance version so concurrent spenders conflict.
			if err := store.LockUser(ctx, tx, buyerID); err != nil {
				return err
			}
			bal, err := store.LoadBalance(ctx, tx, buyerID)
			if err != nil {
				return err
			}
			if amount > bal.Available {
				return domain.ErrInsufficientFunds
			}
		}
		if avail := offer.Available(); avail != nil && quantity > *avail {
			return domain.ErrQuantityExceeded
		}

		deal, err := store.FindNewDeal(ctx, tx, buyerID, offerID)
		if err != nil {
			return err
		}
		status := http.StatusCreated
		kind := domain.EventCreated
		if deal == nil {
			deal, err = domain.NewDeal(offer, buyerID, quantity, price, typ, req.Comment)
			if err != nil {
				return err
			}
			if err := store.InsertDeal(ctx, tx, deal); err != nil {
				return err
			}
		} else {
			status = http.StatusOK
			kind = ""
			if deal.Quantity != quantity {
				kind = domain.EventUpdated
			}
			now := s.now()
			if err := deal.SetTerms(quantity, price, req.Comment); err != nil {
				return err
			}
			deal.Type = typ
			deal.UpdatedAt = &now
			if err := store.UpdateDeal(ctx, tx, deal); err != nil {
				return err
			}
		}

		resp = &models.DealResponse{
			Status:  models.StatusSuccess,
			Message: "Сделка добавлена",
			Deal:    deal,
			Created: status == http.StatusCreated,
		}
		if kind != "" {
			event = &domain.Event{Kind: kind, Deal: *deal, Offer: *offer, Actor: buyerID}
		}
		return completeKey(ctx, tx, idempotencyKey, deal.ID, status, resp)
	})
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, existing, nil
	}

	s.committed(ctx, event)
	return resp, nil, nil
}

// ShowDeal returns the deal to one of its participants. The seller's first
// view of a new deal marks it viewed.
func (s *DealService) ShowDeal(ctx context.Context, dealID uuid.UUID, userID int64) (*domain.Deal, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	role := deal.RoleOf(userID)
	if role == domain.RoleNone {
		return nil, domain.ErrNotParticipant
	}
	if role != domain.RoleSeller || deal.ViewedAt != nil || deal.Status != domain.DealNew {
		return deal, nil
	}

	var event *domain.Event
	err = s.inTx(ctx, "view_deal", func(tx pgx.Tx) error {
		event = nil
		d, err := store.GetDeal(ctx, tx, dealID, true)
		if err != nil {
			return err
		}
		deal = d
		if !deal.MarkViewed(role, s.now()) {
			return nil
		}
		if err := store.UpdateDeal(ctx, tx, deal); err != nil {
			return err
		}
		event = &domain.Event{Kind: domain.EventViewed, Deal: *deal, Actor: userID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, event)
	return deal, nil
}

// ApplyAction performs accept, cancel or complete on behalf of userID. The
// deal, offer, transaction and ledger rows change in one database transaction.
func (s *DealService) ApplyAction(ctx context.Context, dealID uuid.UUID, userID int64, action domain.Action, idempotencyKey, reqHash string) (*models.DealResponse, *models.IdempotencyRecord, error) {
	var (
		resp     *models.DealResponse
		existing *models.IdempotencyRecord
		event    *domain.Event
	)
	err := s.inTx(ctx, "deal_"+string(action), func(tx pgx.Tx) error {
		resp, existing, event = nil, nil, nil

		rec, err := claimKey(ctx, tx, idempotencyKey, reqHash)
		if err != nil {
			return err
		}
		if rec != nil {
			existing = rec
			return nil
		}

		// Lock order is offer, deal, user everywhere.
		peek, err := store.GetDeal(ctx, tx, dealID, false)
		if err != nil {
			return err
		}
		if peek.RoleOf(userID) == domain.RoleNone {
			return domain.ErrNotParticipant
		}
		offer, err := store.GetOffer(ctx, tx, peek.OfferID, true)
		if err != nil {
			return err
		}
		deal, err := store.GetDeal(ctx, tx, dealID, true)
		if err != nil {
			return err
		}
		role := deal.RoleOf(userID)

		if action == domain.ActionAccept && deal.Type == domain.DealInner && !deal.Terminal() {
			if err := store.LockUser(ctx, tx, deal.BuyerID); err != nil {
				return err
			}
			bal, err := store.LoadBalance(ctx, tx, deal.BuyerID)
			if err != nil {
				return err
			}
			if deal.AmountCost > bal.Available {
				return domain.ErrInsufficientFunds
			}
		}

		tr, err := deal.Apply(action, role, offer, s.now())
		if err != nil {
			return err
		}
		if err := store.UpdateDeal(ctx, tx, deal); err != nil {
			return err
		}
		if err := store.SaveOfferStock(ctx, tx, offer); err != nil {
			return err
		}
		if tr.Transaction != nil {
			if err := store.InsertTransaction(ctx, tx, tr.Transaction); err != nil {
				return err
			}
		}

		resp = &models.DealResponse{
			Status:  models.StatusSuccess,
			Message: actionMessages[action],
			Deal:    deal,
			Offer:   offer,
		}
		event = &domain.Event{Kind: tr.Event, Deal: *deal, Offer: *offer, Actor: userID}
		return completeKey(ctx, tx, idempotencyKey, deal.ID, http.StatusOK, resp)
	})
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, existing, nil
	}

	s.committed(ctx, event)
	return resp, nil, nil
}

// ListDeals returns one page of a user's deals. Without an explicit tab the
// new tab is shown when there are new incoming deals, and the active tab
// otherwise. An unknown tab yields domain.ErrUnknownTab.
func (s *DealService) ListDeals(ctx context.Context, userID int64, tab string, page, limit int) (*models.DealList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	show := domain.TabActive
	if tab != "" {
		t, err := domain.ParseTab(tab)
		if err != nil {
			return nil, err
		}
		show = t
	}
	if tab == "" {
		n, err := s.store.CountDeals(ctx, store.DealFilter{UserID: userID, Tab: domain.TabNew})
		if err != nil {
			return nil, err
		}
		if n > 0 {
			show = domain.TabNew
		}
	}

	f := store.DealFilter{UserID: userID, Tab: show, Limit: limit, Offset: (page - 1) * limit}
	total, err := s.store.CountDeals(ctx, f)
	if err != nil {
		return nil, err
	}
	deals, err := s.store.ListDeals(ctx, f)
	if err != nil {
		return nil, err
	}
	return &models.DealList{Show: show, Page: page, Limit: limit, Total: total, Deals: deals}, nil
}

func (s *DealService) committed(ctx context.Context, ev *domain.Event) {
	if ev == nil {
		return
	}
	dealTransitionsTotal.WithLabelValues(string(ev.Kind), string(ev.Deal.Status)).Inc()
	s.log.WithFields(logrus.Fields{
		"deal_id": ev.Deal.ID,
		"event":   ev.Kind,
		"status":  ev.Deal.Status,
		"actor":   ev.Actor,
	}).Info("deal changed")

	if s.publisher != nil {
		s.publisher.Publish(ctx, *ev)
	}
}
