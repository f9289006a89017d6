package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/punchamoorthee/marketdeals/internal/domain"
	"github.com/punchamoorthee/marketdeals/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	HeaderUserID         = "X-User-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
	dealsPath            = "/api/v1/deals"
	maxBodyBytes         = 1 << 20
)

type DealProcessor interface {
	CreateDeal(ctx context.Context, buyerID int64, req models.CreateDealRequest, idempotencyKey, reqHash string) (*models.DealResponse, *models.IdempotencyRecord, error)
	ApplyAction(ctx context.Context, dealID uuid.UUID, userID int64, action domain.Action, idempotencyKey, reqHash string) (*models.DealResponse, *models.IdempotencyRecord, error)
	ShowDeal(ctx context.Context, dealID uuid.UUID, userID int64) (*domain.Deal, error)
	ListDeals(ctx context.Context, userID int64, tab string, page, limit int) (*models.DealList, error)
}

// Directory is the non-transactional side of the store.
type Directory interface {
	CreateUser(ctx context.Context, username string) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	Balance(ctx context.Context, userID int64) (domain.Balance, error)
	GetEntries(ctx context.Context, userID int64) ([]domain.LedgerEntry, error)
	CreateOffer(ctx context.Context, o *domain.Offer) error
	GetOffer(ctx context.Context, id uuid.UUID) (*domain.Offer, error)
	CountOffers(ctx context.Context, userID int64) (int, error)
	CountAvailableOffers(ctx context.Context, userID int64) (int, error)
	CountDealsForOffer(ctx context.Context, offerID uuid.UUID, active bool) (int, error)
}

type LinkCodeIssuer interface {
	Issue(ctx context.Context, userID int64) (string, error)
}

type Handler struct {
	deals   DealProcessor
	dir     Directory
	codes   LinkCodeIssuer
	botName string
	log     *logrus.Logger
}

func NewHandler(deals DealProcessor, dir Directory, codes LinkCodeIssuer, botName string, log *logrus.Logger) *Handler {
	return &Handler{deals: deals, dir: dir, codes: codes, botName: botName, log: log}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Username == "" {
		respondWithError(w, http.StatusBadRequest, "Укажите имя пользователя")
		return
	}
	user, err := h.dir.CreateUser(r.Context(), req.Username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, user)
}

func (h *Handler) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	if _, err := h.dir.GetUser(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	bal, err := h.dir.Balance(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, bal)
}

// GetSummaryHandler reports a user's balance and how many of their offers
// are listed and orderable.
func (h *Handler) GetSummaryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	user, err := h.dir.GetUser(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	summary := models.UserSummary{User: user}
	if summary.Balance, err = h.dir.Balance(ctx, id); err != nil {
		h.fail(w, r, err)
		return
	}
	if summary.OffersCount, err = h.dir.CountOffers(ctx, id); err != nil {
		h.fail(w, r, err)
		return
	}
	if summary.AvailableOffersCount, err = h.dir.CountAvailableOffers(ctx, id); err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetEntriesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	entries, err := h.dir.GetEntries(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}

// IssueLinkCodeHandler issues the code a user sends to the bot to connect
// their Telegram account.
func (h *Handler) IssueLinkCodeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if caller != id {
		respondWithError(w, http.StatusForbidden, "Нельзя получить код для другого пользователя")
		return
	}
	if _, err := h.dir.GetUser(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	code, err := h.codes.Issue(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, models.LinkCodeResponse{Code: code, BotName: h.botName})
}

func (h *Handler) CreateOfferHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var req models.CreateOfferRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Некорректный запрос")
		return
	}

	offer := domain.NewOffer(caller, req.Title, req.Price)
	offer.ShortDescription = req.ShortDescription
	offer.Description = req.Description
	offer.Quantity = req.Quantity
	if req.Measure != "" {
		offer.Measure = domain.Measure(req.Measure)
	}
	if req.Status != "" {
		offer.Status = domain.OfferStatus(req.Status)
	}
	offer.Normalize()
	if err := offer.Validate(); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.dir.CreateOffer(r.Context(), offer); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/offers/%s", offer.ID))
	respondWithJSON(w, http.StatusCreated, offer)
}

func (h *Handler) GetOfferHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, domain.ErrOfferNotFound)
		return
	}
	ctx := r.Context()
	offer, err := h.dir.GetOffer(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	details := models.OfferDetails{Offer: offer}
	if details.DealsCount, err = h.dir.CountDealsForOffer(ctx, id, false); err != nil {
		h.fail(w, r, err)
		return
	}
	if details.ActiveDealsCount, err = h.dir.CountDealsForOffer(ctx, id, true); err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, details)
}

func (h *Handler) ListDealsHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	list, err := h.deals.ListDeals(r.Context(), caller, q.Get("tab"), page, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateDealHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	body, reqHash, ok := readAndHash(w, r, caller)
	if !ok {
		return
	}

	var req models.CreateDealRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Некорректный запрос")
		return
	}

	resp, existing, err := h.deals.CreateDeal(r.Context(), caller, req, r.Header.Get(HeaderIdempotencyKey), reqHash)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if existing != nil {
		replay(w, existing)
		return
	}

	code := http.StatusOK
	if resp.Created {
		code = http.StatusCreated
		w.Header().Set("Location", fmt.Sprintf("%s/%s", dealsPath, resp.Deal.ID))
	}
	respondWithJSON(w, code, resp)
}

func (h *Handler) GetDealHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathDealID(w, r)
	if !ok {
		return
	}

	deal, err := h.deals.ShowDeal(r.Context(), id, caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.DealResponse{Status: models.StatusSuccess, Deal: deal})
}

// DealActionHandler applies the transition named by the action query parameter.
func (h *Handler) DealActionHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathDealID(w, r)
	if !ok {
		return
	}
	action, err := domain.ParseAction(r.URL.Query().Get("action"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_, reqHash, ok := readAndHash(w, r, caller)
	if !ok {
		return
	}

	resp, existing, err := h.deals.ApplyAction(r.Context(), id, caller, action, r.Header.Get(HeaderIdempotencyKey), reqHash)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if existing != nil {
		replay(w, existing)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// fail maps an error to its response. Outsiders poking at a deal are sent
// back to their deal list.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotParticipant) {
		http.Redirect(w, r, dealsPath, http.StatusSeeOther)
		return
	}
	code, msg := errorResponse(err)
	if code >= http.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}
	respondWithError(w, code, msg)
}

func callerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
	if err != nil || id < 1 {
		respondWithError(w, http.StatusUnauthorized, "Требуется авторизация")
		return 0, false
	}
	return id, true
}

func pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		respondWithError(w, http.StatusNotFound, "Пользователь не найден")
		return 0, false
	}
	return id, true
}

func pathDealID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Сделка не найдена")
		return uuid.Nil, false
	}
	return id, true
}

// readAndHash reads the body and fingerprints the whole request, so an
// idempotency key reused for a different deal, action or caller is caught.
func readAndHash(w http.ResponseWriter, r *http.Request, caller int64) ([]byte, string, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Stream read error")
		return nil, "", false
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	h := sha256.New()
	fmt.Fprintf(h, "%s %s?%s %d\n", r.Method, r.URL.Path, r.URL.RawQuery, caller)
	h.Write(body)
	return body, hex.EncodeToString(h.Sum(nil)), true
}

func replay(w http.ResponseWriter, rec *models.IdempotencyRecord) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(rec.ResponseStatus)
	w.Write(rec.ResponseBody)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, models.DealResponse{Status: models.StatusError, Message: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
