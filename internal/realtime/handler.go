package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/angelmondragon/blogqna-backend/pkg/config"
	"github.com/angelmondragon/blogqna-backend/pkg/logger"
	"github.com/angelmondragon/blogqna-backend/pkg/metrics"
	"github.com/gorilla/websocket"
)

// WelcomeMessage is the first frame an authenticated client receives.
const WelcomeMessage = "WebSocket connection established"

type welcomeFrame struct {
	Message string `json:"message"`
}

// Handler upgrades requests to websockets, authenticates them and keeps the
// registry in sync with the connection lifecycle.
type Handler struct {
	resolver *Resolver
	registry *Registry
	upgrader websocket.Upgrader
	opts     ConnOptions
	logg     *logger.Logger
	metrics  *metrics.RealtimeMetrics
}

func NewHandler(resolver *Resolver, registry *Registry, cfg config.RealtimeConfig, logg *logger.Logger, m *metrics.RealtimeMetrics) *Handler {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Handler{
		resolver: resolver,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		opts:    ConnOptionsFromConfig(cfg),
		logg:    logg,
		metrics: m,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resolution := h.resolver.Resolve(ctx, r.Header.Get("Cookie"))

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.IncConnect(metrics.ConnectUpgradeFailed)
		h.logg.Warn(h.logg.WithField(ctx, "reason", err.Error()), "realtime.upgrade_failed")
		return
	}

	if !resolution.OK() {
		h.reject(ctx, ws, resolution)
		return
	}

	conn := newConn(ws, h.opts)
	ctx = h.logg.WithUserID(ctx, resolution.UserID)
	ctx = h.logg.WithConnectionID(ctx, conn.ID())

	welcome, _ := json.Marshal(welcomeFrame{Message: WelcomeMessage})
	_ = conn.Send(welcome)

	if prev := h.registry.Register(resolution.UserID, conn); prev != nil {
		h.logg.Info(ctx, "realtime.connection.superseded")
	}
	h.metrics.IncConnect(metrics.ConnectAccepted)
	h.logg.Info(ctx, "realtime.connection.open")

	go conn.writePump()
	readErr := conn.readPump()

	// Deregister before releasing the socket so lookups never return a dead channel.
	h.registry.Deregister(resolution.UserID, conn)
	_ = conn.Close()

	if readErr != nil && !websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) && !errors.Is(readErr, websocket.ErrCloseSent) {
		h.logg.Info(h.logg.WithField(ctx, "reason", readErr.Error()), "realtime.connection.error")
	}
	h.logg.Info(ctx, "realtime.connection.close")
}

func (h *Handler) reject(ctx context.Context, ws *websocket.Conn, res Resolution) {
	outcome := metrics.ConnectInvalidCredential
	if res.Rejection == RejectionMissingCredential {
		outcome = metrics.ConnectMissingCredential
	}
	h.metrics.IncConnect(outcome)

	fields := map[string]any{"rejection": res.Rejection.String()}
	if res.Err != nil {
		fields["reason"] = res.Err.Error()
	}
	h.logg.Warn(h.logg.WithFields(ctx, fields), "realtime.connection.rejected")

	msg := websocket.FormatCloseMessage(res.Rejection.CloseCode(), res.Rejection.Reason())
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.opts.WriteTimeout))
	_ = ws.Close()
}

// originChecker allows any origin when allowed is empty.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
