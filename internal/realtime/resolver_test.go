package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/blogqna-backend/pkg/auth"
	"github.com/angelmondragon/blogqna-backend/pkg/config"
	"github.com/angelmondragon/blogqna-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "blogqna-test", ExpirationMinutes: 30}

type fakeSessions struct {
	live map[string]bool
	err  error
}

func (f *fakeSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.live[accessID], nil
}

func mintToken(t *testing.T, cfg config.JWTConfig, userID, jti string, issuedAt time.Time) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, issuedAt, auth.AccessTokenPayload{UserID: userID, Role: enums.UserRoleMember, JTI: jti})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestResolverAcceptsValidToken(t *testing.T) {
	token := mintToken(t, testJWT, "user-a", "jti-a", time.Now())
	r := NewResolver(testJWT, "", &fakeSessions{live: map[string]bool{"jti-a": true}})

	res := r.Resolve(context.Background(), "theme=dark; token="+token)
	if !res.OK() {
		t.Fatalf("expected success, got %v (%v)", res.Rejection, res.Err)
	}
	if res.UserID != "user-a" || res.SessionID != "jti-a" {
		t.Fatalf("unexpected resolution %+v", res)
	}
}

func TestResolverMissingCredential(t *testing.T) {
	r := NewResolver(testJWT, "token", nil)
	for _, header := range []string{"", ";;;", "theme=dark", "token=", "token"} {
		res := r.Resolve(context.Background(), header)
		if res.Rejection != RejectionMissingCredential {
			t.Fatalf("header %q: expected missing credential, got %v", header, res.Rejection)
		}
		if res.Rejection.CloseCode() != 4000 {
			t.Fatalf("expected close code 4000, got %d", res.Rejection.CloseCode())
		}
	}
}

func TestResolverInvalidCredential(t *testing.T) {
	valid := mintToken(t, testJWT, "user-a", "jti-a", time.Now())
	expired := mintToken(t, testJWT, "user-a", "jti-a", time.Now().Add(-2*time.Hour))
	foreign := testJWT
	foreign.Secret = "someone-else"
	forged := mintToken(t, foreign, "user-a", "jti-a", time.Now())

	r := NewResolver(testJWT, "token", nil)
	for name, token := range map[string]string{
		"malformed": "not-a-jwt",
		"tampered":  valid + "x",
		"expired":   expired,
		"forged":    forged,
	} {
		res := r.Resolve(context.Background(), "token="+token)
		if res.Rejection != RejectionInvalidCredential {
			t.Fatalf("%s: expected invalid credential, got %v", name, res.Rejection)
		}
		if res.Err == nil {
			t.Fatalf("%s: expected cause to be kept", name)
		}
		if res.Rejection.CloseCode() != 4001 {
			t.Fatalf("expected close code 4001, got %d", res.Rejection.CloseCode())
		}
	}
}

func TestResolverRejectsRevokedSession(t *testing.T) {
	token := mintToken(t, testJWT, "user-a", "jti-gone", time.Now())
	r := NewResolver(testJWT, "token", &fakeSessions{live: map[string]bool{}})

	res := r.Resolve(context.Background(), "token="+token)
	if res.Rejection != RejectionInvalidCredential || !errors.Is(res.Err, ErrSessionRevoked) {
		t.Fatalf("expected revoked session rejection, got %+v", res)
	}
}

func TestResolverFailsClosedOnSessionStoreError(t *testing.T) {
	token := mintToken(t, testJWT, "user-a", "jti-a", time.Now())
	storeErr := errors.New("redis unavailable")
	r := NewResolver(testJWT, "token", &fakeSessions{err: storeErr})

	res := r.Resolve(context.Background(), "token="+token)
	if res.Rejection != RejectionInvalidCredential || !errors.Is(res.Err, storeErr) {
		t.Fatalf("expected invalid credential wrapping store error, got %+v", res)
	}
}

func TestResolverCustomCookieName(t *testing.T) {
	token := mintToken(t, testJWT, "user-a", "jti-a", time.Now())
	r := NewResolver(testJWT, "session", nil)

	if res := r.Resolve(context.Background(), "token="+token); res.Rejection != RejectionMissingCredential {
		t.Fatalf("expected default cookie to be ignored, got %v", res.Rejection)
	}
	if res := r.Resolve(context.Background(), "session="+token); !res.OK() {
		t.Fatalf("expected custom cookie to resolve, got %v", res.Rejection)
	}
}
