package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/blogqna-backend/pkg/auth"
	"github.com/angelmondragon/blogqna-backend/pkg/auth/session"
	"github.com/angelmondragon/blogqna-backend/pkg/config"
)

// DefaultCookieName is the cookie carrying the session token.
const DefaultCookieName = "token"

// Close codes sent when a connection attempt is rejected.
const (
	CloseMissingCredential = 4000
	CloseInvalidCredential = 4001
)

// ErrSessionRevoked is the cause attached when a valid token names an ended session.
var ErrSessionRevoked = errors.New("session revoked")

// Rejection classifies why a connection attempt was refused.
type Rejection int

const (
	RejectionNone Rejection = iota
	RejectionMissingCredential
	RejectionInvalidCredential
)

func (r Rejection) String() string {
	switch r {
	case RejectionNone:
		return "none"
	case RejectionMissingCredential:
		return "missing_credential"
	case RejectionInvalidCredential:
		return "invalid_credential"
	default:
		return fmt.Sprintf("rejection(%d)", int(r))
	}
}

// CloseCode maps the rejection to the websocket close code sent to the client.
func (r Rejection) CloseCode() int {
	switch r {
	case RejectionMissingCredential:
		return CloseMissingCredential
	case RejectionInvalidCredential:
		return CloseInvalidCredential
	default:
		return 1000
	}
}

// Reason is the close frame text for the rejection.
func (r Rejection) Reason() string {
	switch r {
	case RejectionMissingCredential:
		return "Token not provided"
	case RejectionInvalidCredential:
		return "Invalid token"
	default:
		return ""
	}
}

// Resolution is the outcome of resolving a connection's identity. Exactly one of
// UserID or Rejection is meaningful; Err carries the underlying cause for logs.
type Resolution struct {
	UserID    string
	SessionID string
	Rejection Rejection
	Err       error
}

// OK reports whether the connection is authenticated.
func (r Resolution) OK() bool {
	return r.Rejection == RejectionNone && r.UserID != ""
}

// Resolver turns the Cookie header of an upgrade request into a user identity.
type Resolver struct {
	jwt        config.JWTConfig
	cookieName string
	sessions   session.AccessSessionChecker
}

// NewResolver builds a resolver. sessions may be nil, in which case revoked
// sessions are not detected and only signature, issuer and expiry are checked.
func NewResolver(jwtCfg config.JWTConfig, cookieName string, sessions session.AccessSessionChecker) *Resolver {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Resolver{jwt: jwtCfg, cookieName: cookieName, sessions: sessions}
}

// Resolve never panics and never returns an error; every failure is a Rejection.
func (r *Resolver) Resolve(ctx context.Context, cookieHeader string) (res Resolution) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Resolution{Rejection: RejectionInvalidCredential, Err: fmt.Errorf("resolve panic: %v", rec)}
		}
	}()

	token := ParseCookieHeader(cookieHeader)[r.cookieName]
	if token == "" {
		return Resolution{Rejection: RejectionMissingCredential}
	}

	claims, err := auth.ParseAccessToken(r.jwt, token)
	if err != nil {
		return Resolution{Rejection: RejectionInvalidCredential, Err: err}
	}

	sessionID := claims.SessionID()
	if r.sessions != nil {
		if sessionID == "" {
			return Resolution{Rejection: RejectionInvalidCredential, Err: ErrSessionRevoked}
		}
		live, err := r.sessions.HasSession(ctx, sessionID)
		if err != nil {
			return Resolution{Rejection: RejectionInvalidCredential, Err: fmt.Errorf("session lookup: %w", err)}
		}
		if !live {
			return Resolution{Rejection: RejectionInvalidCredential, Err: ErrSessionRevoked}
		}
	}

	return Resolution{UserID: claims.UserID, SessionID: sessionID}
}
