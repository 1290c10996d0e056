package rest

import (
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/seriouslysahid/CodeRed-sub001/internal/app"
	"github.com/seriouslysahid/CodeRed-sub001/internal/service"
	"github.com/seriouslysahid/CodeRed-sub001/internal/transport/rest/handler"
	"github.com/seriouslysahid/CodeRed-sub001/internal/transport/rest/middleware"
	"github.com/seriouslysahid/CodeRed-sub001/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	Core           *app.Core
	AuthService    *service.AuthService
	RiskService    *service.RiskService
	MessageService *service.MessageService
	// Admitter gates message generation; defaults to Core.Admission
	Admitter       middleware.Admitter
	Gatherer       prometheus.Gatherer
	WSHub          *ws.Hub
	Log            logrus.FieldLogger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	log := c.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	admitter := c.Admitter
	if admitter == nil {
		admitter = c.Core.Admission
	}
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService, validate)
	riskHandler := handler.NewRiskHandler(c.RiskService, validate, log.WithField("component", "risk"))
	messageHandler := handler.NewMessageHandler(c.MessageService, validate)
	healthHandler := handler.NewHealthHandler(c.Core.Breaker, c.Core.Generation.GeneratorName())

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)
	admissionMW := middleware.NewAdmissionMiddleware(admitter, c.Core.Metrics, log.WithField("component", "admission"))

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	r.HandleFunc("/health", healthHandler.Health).Methods("GET")
	if c.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(c.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/risk/assess", riskHandler.Assess).Methods("POST", "OPTIONS")
	v1.HandleFunc("/risk/batch", riskHandler.Batch).Methods("POST", "OPTIONS")
	v1.HandleFunc("/learners/{id}/signals", riskHandler.Ingest).Methods("POST", "OPTIONS")
	v1.HandleFunc("/learners/{id}/messages", messageHandler.History).Methods("GET", "OPTIONS")

	// Generation is the expensive path and is admission-gated
	genRoutes := v1.NewRoute().Subrouter()
	genRoutes.Use(admissionMW.Limit)
	genRoutes.HandleFunc("/learners/{id}/message", messageHandler.Generate).Methods("POST", "OPTIONS")

	// WebSocket route (token in query param)
	if c.WSHub != nil {
		wsHandler := ws.NewHandler(c.WSHub, c.AuthService, log.WithField("component", "ws"))
		v1.HandleFunc("/ws/dashboard", wsHandler.DashboardWS).Methods("GET")
	}

	// Staff routes (require staff auth)
	staffRoutes := v1.NewRoute().Subrouter()
	staffRoutes.Use(authMW.RequireStaff)

	staffRoutes.HandleFunc("/risk/reevaluate", riskHandler.Reevaluate).Methods("POST", "OPTIONS")
	staffRoutes.HandleFunc("/risk/board", riskHandler.Board).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization, X-API-Key"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
		w.Header().Set("Access-Control-Expose-Headers", "Retry-After, X-RateLimit-Remaining, X-RateLimit-Reset")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
