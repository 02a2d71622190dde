package gateway

import (
	"time"

	"github.com/gorilla/mux"

	"github.com/KentSpendy/BukCare/internal/doctor"
	"github.com/KentSpendy/BukCare/internal/iam"
	"github.com/KentSpendy/BukCare/internal/scheduling"
	"github.com/KentSpendy/BukCare/pkg/config"
	"github.com/KentSpendy/BukCare/pkg/interfaces"
	"github.com/KentSpendy/BukCare/pkg/logger"
	"github.com/KentSpendy/BukCare/pkg/monitoring"
	"github.com/KentSpendy/BukCare/pkg/types"
)

// Gateway carries the cross-cutting HTTP concerns: authentication, rate
// limiting, CORS, logging and the monitoring endpoints.
type Gateway struct {
	config  *config.Config
	logger  *logger.Logger
	iam     interfaces.IAMService
	metrics *monitoring.MetricsCollector
	health  *monitoring.HealthManager
	limiter *RateLimiter
}

// New creates a new gateway
func New(
	cfg *config.Config,
	log *logger.Logger,
	iamService interfaces.IAMService,
	metrics *monitoring.MetricsCollector,
	health *monitoring.HealthManager,
) *Gateway {
	// The bucket capacity is the steady per-minute rate plus the burst
	// allowance on top of it.
	limiter := NewRateLimiter(cfg.RateLimit.RequestsPerMin+cfg.RateLimit.BurstSize, time.Minute)
	limiter.StartCleanup(time.Hour)

	return &Gateway{
		config:  cfg,
		logger:  log,
		iam:     iamService,
		metrics: metrics,
		health:  health,
		limiter: limiter,
	}
}

// Router assembles the HTTP routing table. Health, metrics, registration,
// login and the public doctor directory stay unauthenticated; everything
// else sits behind the auth and rate limit middleware.
func (g *Gateway) Router(
	iamHandlers *iam.Handlers,
	schedulingHandlers *scheduling.Handlers,
	doctorHandlers *doctor.Handlers,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(mux.MiddlewareFunc(g.metrics.HTTPMiddleware))
	router.Use(g.loggingMiddleware)
	router.Use(g.corsMiddleware)
	router.Use(g.securityHeadersMiddleware)

	healthPath := g.config.Monitoring.HealthPath
	if healthPath == "" {
		healthPath = "/health"
	}
	metricsPath := g.config.Monitoring.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	router.HandleFunc(healthPath, g.health.HTTPHandler()).Methods("GET")
	router.Handle(metricsPath, g.metrics.Handler()).Methods("GET")

	iamHandlers.RegisterPublicRoutes(router)
	doctorHandlers.RegisterPublicRoutes(router)

	api := router.PathPrefix("/").Subrouter()
	api.Use(g.authMiddleware)
	api.Use(g.rateLimitMiddleware)

	iamHandlers.RegisterProtectedRoutes(api)
	schedulingHandlers.RegisterRoutes(api)

	// The doctor portal sits behind a role guard on top of authentication
	doctorPortal := api.PathPrefix("/doctor/").Subrouter()
	doctorPortal.Use(RequireRoles(types.RoleDoctor))
	schedulingHandlers.RegisterDoctorRoutes(doctorPortal)
	doctorHandlers.RegisterProtectedRoutes(doctorPortal)

	return router
}
