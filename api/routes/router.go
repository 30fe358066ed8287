package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/blogqna-backend/api/controllers"
	"github.com/angelmondragon/blogqna-backend/api/middleware"
	"github.com/angelmondragon/blogqna-backend/internal/auth"
	"github.com/angelmondragon/blogqna-backend/internal/comments"
	"github.com/angelmondragon/blogqna-backend/internal/notifications"
	"github.com/angelmondragon/blogqna-backend/internal/posts"
	"github.com/angelmondragon/blogqna-backend/pkg/auth/session"
	"github.com/angelmondragon/blogqna-backend/pkg/config"
	"github.com/angelmondragon/blogqna-backend/pkg/logger"
)

// RateLimiter is the fixed-window counter behind the auth and connect limits.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Params bundles everything the HTTP surface is built from.
type Params struct {
	Config        *config.Config
	Logger        *logger.Logger
	Sessions      session.AccessSessionChecker
	RateLimiter   RateLimiter
	Health        map[string]controllers.Pinger
	Metrics       prometheus.Gatherer
	Realtime      http.Handler
	Auth          auth.Service
	Posts         posts.Service
	Comments      comments.Service
	Notifications notifications.Service
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger
	limits := cfg.AuthRateLimit
	cookie := controllers.SessionCookie{
		Name:   cfg.Realtime.CookieName,
		Secure: !cfg.App.IsDev(),
		MaxAge: cfg.JWT.AccessTTL(),
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Realtime.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.Health, logg))
	})

	if p.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Metrics, promhttp.HandlerOpts{}))
	}

	if p.Realtime != nil {
		connect := middleware.NewAuthRateLimitPolicy("connect", limits.ConnectWindow, limits.ConnectIPLimit, 0)
		r.With(middleware.AuthRateLimit(connect, p.RateLimiter, logg)).Handle("/ws", p.Realtime)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		signup := middleware.NewAuthRateLimitPolicy("signup", limits.SignupWindow, limits.SignupIPLimit, limits.SignupEmailLimit)
		login := middleware.NewAuthRateLimitPolicy("login", limits.LoginWindow, limits.LoginIPLimit, limits.LoginEmailLimit)

		r.With(middleware.AuthRateLimit(signup, p.RateLimiter, logg)).Post("/signup", controllers.AuthSignup(p.Auth, logg))
		r.With(middleware.AuthRateLimit(login, p.RateLimiter, logg)).Post("/login", controllers.AuthLogin(p.Auth, cookie, logg))
		r.Post("/logout", controllers.AuthLogout(p.Auth, cookie, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, cookie, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, cookie.Name, logg))

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", controllers.ListPosts(p.Posts, logg))
			r.Post("/", controllers.CreatePost(p.Posts, logg))
			r.Route("/{postId}", func(r chi.Router) {
				r.Get("/", controllers.GetPost(p.Posts, logg))
				r.Post("/like", controllers.ToggleLike(p.Posts, logg))
				r.Get("/comments", controllers.CommentThread(p.Comments, logg))
				r.Post("/comments", controllers.CreateComment(p.Comments, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})
	})

	return r
}
