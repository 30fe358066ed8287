package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/blogqna-backend/pkg/config"
	"github.com/angelmondragon/blogqna-backend/pkg/logger"
	"github.com/angelmondragon/blogqna-backend/pkg/metrics"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsFixture struct {
	server   *httptest.Server
	registry *Registry
	url      string
}

func newWSFixture(t *testing.T, sessions *fakeSessions) *wsFixture {
	t.Helper()
	registry := NewRegistry(metrics.NewRealtimeMetrics(prometheus.NewRegistry()))
	var resolver *Resolver
	if sessions != nil {
		resolver = NewResolver(testJWT, "token", sessions)
	} else {
		resolver = NewResolver(testJWT, "token", nil)
	}
	handler := NewHandler(resolver, registry, config.RealtimeConfig{
		SendBuffer:   4,
		WriteTimeout: time.Second,
		PongWait:     5 * time.Second,
		PingPeriod:   time.Second,
	}, logger.Nop(), nil)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &wsFixture{
		server:   server,
		registry: registry,
		url:      "ws" + strings.TrimPrefix(server.URL, "http"),
	}
}

func (f *wsFixture) dial(t *testing.T, cookie string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if cookie != "" {
		header.Set("Cookie", cookie)
	}
	ws, _, err := websocket.DefaultDialer.Dial(f.url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readText(t *testing.T, ws *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, payload, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)
	return payload
}

func expectClose(t *testing.T, ws *websocket.Conn, code int) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "expected close error, got %v", err)
	assert.Equal(t, code, closeErr.Code)
}

func TestHandlerRegistersAuthenticatedConnection(t *testing.T) {
	f := newWSFixture(t, nil)
	token := mintToken(t, testJWT, "user-a", "jti-a", time.Now())
	ws := f.dial(t, "token="+token)

	var welcome map[string]string
	require.NoError(t, json.Unmarshal(readText(t, ws), &welcome))
	assert.Equal(t, WelcomeMessage, welcome["message"])

	require.Eventually(t, func() bool {
		_, ok := f.registry.Lookup("user-a")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	ch, _ := f.registry.Lookup("user-a")
	require.NoError(t, ch.Send([]byte(`{"kind":"like"}`)))
	assert.JSONEq(t, `{"kind":"like"}`, string(readText(t, ws)))
}

func TestHandlerDeregistersOnClientClose(t *testing.T) {
	f := newWSFixture(t, nil)
	token := mintToken(t, testJWT, "user-a", "jti-a", time.Now())
	ws := f.dial(t, "token="+token)
	readText(t, ws)

	require.NoError(t, ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second)))
	_ = ws.Close()

	require.Eventually(t, func() bool {
		return f.registry.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandlerRejectsMissingCredential(t *testing.T) {
	f := newWSFixture(t, nil)
	ws := f.dial(t, "theme=dark")
	expectClose(t, ws, CloseMissingCredential)
	assert.Equal(t, 0, f.registry.Len())
}

func TestHandlerRejectsInvalidCredential(t *testing.T) {
	f := newWSFixture(t, nil)
	ws := f.dial(t, "token=garbage")
	expectClose(t, ws, CloseInvalidCredential)
	assert.Equal(t, 0, f.registry.Len())
}

func TestHandlerRejectsRevokedSession(t *testing.T) {
	f := newWSFixture(t, &fakeSessions{live: map[string]bool{}})
	token := mintToken(t, testJWT, "user-a", "jti-revoked", time.Now())
	ws := f.dial(t, "token="+token)
	expectClose(t, ws, CloseInvalidCredential)
}

func TestHandlerSupersedingConnectionSurvivesOldClose(t *testing.T) {
	f := newWSFixture(t, nil)
	token := mintToken(t, testJWT, "user-a", "jti-a", time.Now())

	first := f.dial(t, "token="+token)
	readText(t, first)
	require.Eventually(t, func() bool { return f.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	firstCh, _ := f.registry.Lookup("user-a")

	second := f.dial(t, "token="+token)
	readText(t, second)
	require.Eventually(t, func() bool {
		ch, ok := f.registry.Lookup("user-a")
		return ok && ch != firstCh
	}, 2*time.Second, 10*time.Millisecond)
	secondCh, _ := f.registry.Lookup("user-a")

	_ = first.Close()
	require.Eventually(t, func() bool {
		select {
		case <-firstCh.(*Conn).Done():
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	ch, ok := f.registry.Lookup("user-a")
	require.True(t, ok, "newer connection must stay registered")
	assert.Equal(t, secondCh, ch)

	require.NoError(t, ch.Send([]byte(`{"n":1}`)))
	assert.JSONEq(t, `{"n":1}`, string(readText(t, second)))
}

func TestConnSendFailsFastWhenFullOrClosed(t *testing.T) {
	c := newConn(nil, ConnOptions{SendBuffer: 1})
	require.NoError(t, c.Send([]byte("a")))
	assert.ErrorIs(t, c.Send([]byte("b")), ErrChannelFull)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send([]byte("c")), ErrChannelClosed)
}

func TestOriginChecker(t *testing.T) {
	allowAll := originChecker(nil)
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example")
	assert.True(t, allowAll(req))

	check := originChecker([]string{"http://localhost:3000"})
	assert.False(t, check(req))
	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))
}

func TestConnOptionsDefaults(t *testing.T) {
	opts := ConnOptionsFromConfig(config.RealtimeConfig{PongWait: 10 * time.Second, PingPeriod: 20 * time.Second})
	assert.Equal(t, 16, opts.SendBuffer)
	assert.Equal(t, 9*time.Second, opts.PingPeriod)
	assert.Equal(t, int64(4096), opts.MaxMessageBytes)
}

func TestConnWriteFailureLeavesReleaseToOwner(t *testing.T) {
	type observation struct {
		readErr    error
		doneClosed bool
	}
	observed := make(chan observation, 1)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := newConn(ws, ConnOptions{
			SendBuffer:      1,
			WriteTimeout:    -time.Second,
			PongWait:        5 * time.Second,
			PingPeriod:      time.Hour,
			MaxMessageBytes: 1024,
		})
		assert.NoError(t, c.Send([]byte(`{"n":1}`)))
		go c.writePump()

		readErr := c.readPump()
		obs := observation{readErr: readErr}
		select {
		case <-c.Done():
			obs.doneClosed = true
		default:
		}
		_ = c.Close()
		observed <- obs
	}))
	t.Cleanup(server.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	select {
	case obs := <-observed:
		assert.Error(t, obs.readErr)
		assert.False(t, obs.doneClosed, "write failure must not release the channel before its owner deregisters it")
	case <-time.After(3 * time.Second):
		t.Fatal("read loop did not end after the write failure")
	}
}
