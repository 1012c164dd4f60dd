package http

import (
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/textweather/internal/observability"
)

// NewRouter wires every route and middleware. limiter may be nil to disable rate limiting.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/", h.Index).Methods("GET")
	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	api := router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(limiter))
	api.Use(TimeoutMiddleware(requestTimeout))
	api.HandleFunc("/view", h.GetView).Methods("GET")
	api.HandleFunc("/setup", h.PostSetup).Methods("POST")
	api.HandleFunc("/search", h.PostSearch).Methods("POST")
	api.HandleFunc("/results/{index}", h.PostResult).Methods("POST")
	api.HandleFunc("/tabs/{id}", h.PostTab).Methods("POST")
	api.HandleFunc("/tabs/{id}/menu", h.PostTabMenu).Methods("POST")
	api.HandleFunc("/click", h.PostClick).Methods("POST")
	api.HandleFunc("/menu/delete", h.PostMenuDelete).Methods("POST")
	return router
}
