package peer

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/jecnabot/internal/api"
	"github.com/ashureev/jecnabot/internal/identity"
	"github.com/ashureev/jecnabot/internal/middleware"
	"github.com/ashureev/jecnabot/internal/store"
)

// RouterConfig holds what the peer's HTTP surface is assembled from.
type RouterConfig struct {
	Repo           store.Repository
	Responder      *Responder
	Sessions       *SessionManager
	TokenTTL       time.Duration
	AllowedOrigins []string
	FrontendURL    string
	IsDev          bool
	MessageLog     bool
	// RequestLogging enables chi's request logger.
	RequestLogging bool
}

// NewRouter builds the peer's routes: auth, health and the chat socket.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	if cfg.RequestLogging {
		r.Use(chiMiddleware.Logger)
	}
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	api.NewHealthHandler(cfg.Repo).RegisterHealth(r)
	authHandler := api.NewAuthHandler(api.NewHandler(cfg.Repo, cfg.TokenTTL))
	authHandler.OnLogout(cfg.Sessions.CloseUser)
	authHandler.RegisterRoutes(r)

	wsHandler := NewWebSocketHandler(cfg.Repo, cfg.Responder, cfg.Sessions, cfg.FrontendURL, cfg.IsDev)
	wsHandler.SetMessageLog(cfg.MessageLog)

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(cfg.Repo))
		r.Get("/ws", wsHandler.ServeHTTP)
	})

	return r
}
