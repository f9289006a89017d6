package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the handler into the public routes. A nil limiter disables
// rate limiting.
func NewRouter(h *Handler, limiter *RateLimiter, log *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(Instrument(log))

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods(http.MethodGet)

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	if limiter != nil {
		apiV1.Use(limiter.Middleware)
	}

	apiV1.HandleFunc("/users", h.CreateUserHandler).Methods(http.MethodPost)
	apiV1.HandleFunc("/users/{id:[0-9]+}/balance", h.GetBalanceHandler).Methods(http.MethodGet)
	apiV1.HandleFunc("/users/{id:[0-9]+}/summary", h.GetSummaryHandler).Methods(http.MethodGet)
	apiV1.HandleFunc("/users/{id:[0-9]+}/entries", h.GetEntriesHandler).Methods(http.MethodGet)
	apiV1.HandleFunc("/users/{id:[0-9]+}/telegram/code", h.IssueLinkCodeHandler).Methods(http.MethodPost)

	apiV1.HandleFunc("/offers", h.CreateOfferHandler).Methods(http.MethodPost)
	apiV1.HandleFunc("/offers/{id}", h.GetOfferHandler).Methods(http.MethodGet)

	apiV1.HandleFunc("/deals", h.ListDealsHandler).Methods(http.MethodGet)
	apiV1.HandleFunc("/deals", h.CreateDealHandler).Methods(http.MethodPost)
	apiV1.HandleFunc("/deals/{id}", h.GetDealHandler).Methods(http.MethodGet)
	apiV1.HandleFunc("/deals/{id}", h.DealActionHandler).Methods(http.MethodPost)

	return r
}
