package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"group-chat/auth"
	"group-chat/repositories"
	"group-chat/services"
	"group-chat/transport/ws"
)

// Dependencies is everything the HTTP surface needs, constructed once at
// process start and passed by handle. Handlers never reach for ambient
// globals.
type Dependencies struct {
	Log        *slog.Logger
	Auth       services.IAuthService
	Membership services.IMembershipService
	Chat       services.IChatService
	Profiles   repositories.IProfileRepository
	Tokens     *auth.TokenManager
	Gateway    *ws.Gateway
	UploadsDir string
}

// NewRouter assembles the full request surface. /signup and /login are the
// only operations reachable without a verified identity.
func NewRouter(deps Dependencies) http.Handler {
	validate := validator.New()

	authHandler := NewAuthHandler(deps.Auth, validate, deps.Log)
	groupHandler := NewGroupHandler(deps.Membership, deps.Profiles, validate, deps.Log)
	messageHandler := NewMessageHandler(deps.Chat, deps.Log)
	profileHandler := NewProfileHandler(deps.Profiles, deps.UploadsDir, deps.Log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(deps.Log))

	r.Post("/signup", authHandler.Signup)
	r.Post("/login", authHandler.Login)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(deps.UploadsDir))))

	r.Group(func(protected chi.Router) {
		protected.Use(auth.Middleware(deps.Tokens))

		protected.Post("/groups", groupHandler.Create)
		protected.Get("/groups", groupHandler.ListMine)
		protected.Post("/groups/{groupID}/join", groupHandler.Join)
		protected.Get("/groups/{groupID}/members", groupHandler.ListMembers)

		protected.Post("/groups/{groupID}/messages", messageHandler.Send)
		protected.Get("/groups/{groupID}/messages", messageHandler.GroupHistory)
		protected.Get("/messages", messageHandler.History)
		protected.Get("/messages/search", messageHandler.Search)

		protected.Post("/profile", profileHandler.Create)
		protected.Get("/profile", profileHandler.View)

		protected.Get("/ws", deps.Gateway.ServeWS)
	})

	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)
			log.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.Status(),
				"duration", time.Since(start))
		})
	}
}
