package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Identity is the authenticated principal of a request.
type Identity struct {
	UserID string
	Email  string
}

type contextKey string

const identityKey = contextKey("identity")

// TokenVerifier is the part of TokenManager the middleware depends on.
type TokenVerifier interface {
	Verify(tokenStr string) (*Claims, error)
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the identity stored by Middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// WebSocketProtocol is the subprotocol a browser offers, followed by its token,
// to authenticate a websocket handshake. Browsers cannot set an Authorization
// header there.
const WebSocketProtocol = "carlist.bearer"

// Middleware rejects requests without a valid bearer token and attaches the
// verified identity to the request context.
func Middleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return authenticate(verifier, func(r *http.Request) (string, error) {
		return BearerToken(r.Header.Get("Authorization"))
	})
}

// WebSocketMiddleware is Middleware for websocket handshakes. It also accepts
// the token as the subprotocol offered after WebSocketProtocol.
func WebSocketMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return authenticate(verifier, func(r *http.Request) (string, error) {
		if r.Header.Get("Authorization") != "" {
			return BearerToken(r.Header.Get("Authorization"))
		}
		return SubprotocolToken(r.Header.Values("Sec-WebSocket-Protocol"))
	})
}

func authenticate(verifier TokenVerifier, extract func(*http.Request) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := extract(r)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Missing or malformed auth token")
				unauthorized(w, "Missing auth token")
				return
			}

			claims, err := verifier.Verify(tokenStr)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Rejected auth token")
				unauthorized(w, "Invalid auth token")
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: claims.UserID, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubprotocolToken finds the token offered next to WebSocketProtocol in
// Sec-WebSocket-Protocol header values.
func SubprotocolToken(headers []string) (string, error) {
	var offered []string
	for _, h := range headers {
		for _, p := range strings.Split(h, ",") {
			if p = strings.TrimSpace(p); p != "" {
				offered = append(offered, p)
			}
		}
	}
	for i, p := range offered {
		if p == WebSocketProtocol && i+1 < len(offered) {
			return offered[i+1], nil
		}
	}
	return "", errors.New("missing websocket token subprotocol")
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="carlist"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
