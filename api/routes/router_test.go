package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/blogqna-backend/api/controllers"
	"github.com/angelmondragon/blogqna-backend/internal/auth"
	"github.com/angelmondragon/blogqna-backend/internal/notifications"
	"github.com/angelmondragon/blogqna-backend/internal/users"
	pkgAuth "github.com/angelmondragon/blogqna-backend/pkg/auth"
	"github.com/angelmondragon/blogqna-backend/pkg/auth/session"
	"github.com/angelmondragon/blogqna-backend/pkg/config"
	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	"github.com/angelmondragon/blogqna-backend/pkg/enums"
	"github.com/angelmondragon/blogqna-backend/pkg/logger"
	"github.com/angelmondragon/blogqna-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessions struct{}

func (stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Signup(ctx context.Context, req auth.SignupRequest) (*users.UserDTO, error) {
	return &users.UserDTO{ID: "u1"}, nil
}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "a", RefreshToken: "r"}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessToken string) error {
	return nil
}

func (stubAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*auth.TokenPair, error) {
	return &auth.TokenPair{}, nil
}

type stubNotifications struct {
	mu     sync.Mutex
	userID string
}

func (s *stubNotifications) List(ctx context.Context, params notifications.ListParams) (*pagination.Page[models.Notification], error) {
	s.mu.Lock()
	s.userID = params.UserID
	s.mu.Unlock()
	return &pagination.Page[models.Notification]{Items: []models.Notification{}}, nil
}

func (s *stubNotifications) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (s *stubNotifications) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

type countingLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (c *countingLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "blogqna", ExpirationMinutes: 15},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:     time.Minute,
			LoginIPLimit:    10,
			LoginEmailLimit: 5,
			ConnectWindow:   time.Minute,
			ConnectIPLimit:  1,
		},
		Realtime: config.RealtimeConfig{CookieName: "token"},
	}
}

func newTestRouter(t *testing.T, notif *stubNotifications, realtime http.Handler) http.Handler {
	t.Helper()
	return NewRouter(Params{
		Config:        testConfig(),
		Logger:        logger.Nop(),
		Sessions:      stubSessions{},
		RateLimiter:   &countingLimiter{counts: map[string]int64{}},
		Health:        map[string]controllers.Pinger{"storage": stubPinger{}, "redis": stubPinger{}},
		Metrics:       prometheus.NewRegistry(),
		Realtime:      realtime,
		Auth:          stubAuthService{},
		Notifications: notif,
	})
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t, &stubNotifications{}, nil)
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t, &stubNotifications{}, nil)
	for _, path := range []string{"/api/v1/notifications", "/api/v1/posts"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, rec.Code)
		}
	}
}

func TestNotificationsAuthenticatedByCookie(t *testing.T) {
	cfg := testConfig()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: "ada",
		Role:   enums.UserRoleMember,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	notif := &stubNotifications{}
	router := newTestRouter(t, notif, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Cookie", "token="+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if notif.userID != "ada" {
		t.Fatalf("expected list for ada, got %s", notif.userID)
	}
}

func TestLoginSetsCookie(t *testing.T) {
	router := newTestRouter(t, &stubNotifications{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"ada@example.com","password":"pw"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "token=a") {
		t.Fatalf("expected session cookie, got %q", rec.Header().Get("Set-Cookie"))
	}
}

func TestRealtimeConnectIsRateLimited(t *testing.T) {
	hits := 0
	realtime := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	})
	router := newTestRouter(t, &stubNotifications{}, realtime)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if hits != 1 || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected second connect to be limited, hits=%d codes=%v", hits, codes)
	}
}
