package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/metrics"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/application"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/auth"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/chat"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/notify"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/team"
)

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitUserWrite = 60
	rateLimitUserRead  = 240
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
)

// Deps holds everything the router needs.
type Deps struct {
	Logger         *slog.Logger
	Auth           auth.Service
	Applications   application.Service
	Teams          team.Service
	Chat           chat.Service
	Notifications  notify.Service
	Metrics        *metrics.Metrics
	Limiter        RateLimiter
	AllowedOrigins []string
	WSSendBuffer   int
	DBHealth       func(context.Context) error
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux           *chi.Mux
	logger        *slog.Logger
	auth          auth.Service
	applications  application.Service
	teams         team.Service
	chat          chat.Service
	notifications notify.Service
	metrics       *metrics.Metrics
	limiter       RateLimiter
	upgrader      websocket.Upgrader
	origins       []string
	sendBuffer    int
	dbHealth      func(context.Context) error

	// sockets outlive their upgrade request; Close cancels them.
	socketCtx    context.Context
	closeSockets context.CancelFunc
}

// NewRouter assembles routes with dependencies.
func NewRouter(deps Deps) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		mux:           chi.NewRouter(),
		logger:        logger,
		auth:          deps.Auth,
		applications:  deps.Applications,
		teams:         deps.Teams,
		chat:          deps.Chat,
		notifications: deps.Notifications,
		metrics:       deps.Metrics,
		limiter:       deps.Limiter,
		origins:       deps.AllowedOrigins,
		sendBuffer:    deps.WSSendBuffer,
		dbHealth:      deps.DBHealth,
		socketCtx:     ctx,
		closeSockets:  cancel,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     r.checkOrigin,
	}
	r.register()
	return r
}

// ServeHTTP delegates to the underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources and disconnects open sockets.
func (r *Router) Close() {
	r.closeSockets()
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	m := r.mux
	m.Use(chimiddleware.RequestID)
	m.Use(chimiddleware.RealIP)
	m.Use(r.audit)
	m.Use(chimiddleware.Recoverer)
	m.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	m.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "NOT_FOUND", "Route not found")
	})
	m.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	m.Get("/healthz", r.handleHealthz)
	m.Method(http.MethodGet, "/metrics", r.metrics.Handler())
	m.With(r.withRateLimit("/ws", rateLimitWebsocket, rateWindowRealtime)).Get("/ws", r.handleSocket)

	m.Route("/api", func(api chi.Router) {
		api.Use(r.requireAuth)

		api.Group(func(read chi.Router) {
			read.Use(r.withRateLimit("read", rateLimitUserRead, rateWindowDefault))
			read.Get("/applications/my", r.handleListMyApplications)
			read.Get("/applications/opening/{openingId}", r.handleListOpeningApplications)
			read.Get("/teams/my", r.handleListMyTeams)
			read.Get("/teams/opening/{openingId}", r.handleGetTeamByOpening)
			read.Get("/teams/{id}", r.handleGetTeam)
			read.Get("/messages/stats", r.handleMessageStats)
			read.Get("/messages/{teamId}", r.handleMessageHistory)
			read.Get("/notifications", r.handleListNotifications)
		})

		api.Group(func(write chi.Router) {
			write.Use(r.withRateLimit("write", rateLimitUserWrite, rateWindowDefault))
			write.Post("/applications", r.handleSubmitApplication)
			write.Put("/applications/{id}/accept", r.handleAcceptApplication)
			write.Put("/applications/{id}/reject", r.handleRejectApplication)
			write.Post("/messages/{teamId}", r.handlePostMessage)
			write.Put("/notifications/read-all", r.handleMarkAllNotificationsRead)
			write.Put("/notifications/{id}/read", r.handleMarkNotificationRead)
			write.Delete("/notifications/{id}", r.handleDeleteNotification)
		})
	})
}

func (r *Router) checkOrigin(req *http.Request) bool {
	origin := req.Header.Get("Origin")
	if origin == "" || len(r.origins) == 0 {
		return true
	}
	return slices.Contains(r.origins, "*") || slices.Contains(r.origins, origin)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}
