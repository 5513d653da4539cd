package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/ashita-ai/mekiki/internal/auth"
	"github.com/ashita-ai/mekiki/internal/ctxutil"
	"github.com/ashita-ai/mekiki/internal/model"
)

// requireAdmin gates mutating routes. Two credential shapes are accepted in
// the Authorization header: the static admin API key, verified against its
// Argon2id hash, and a JWT minted from that key via the token endpoint.
// With no admin key configured the route is open; startup logs a warning.
func (h *Handlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminKeyHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "missing or malformed authorization header")
			return
		}

		// JWTs have a dotted three-part shape; checking them first keeps
		// the common path off the Argon2id hash, which is deliberately
		// expensive.
		if h.jwtMgr != nil && looksLikeJWT(token) {
			claims, err := h.jwtMgr.ValidateToken(token)
			if err == nil && claims.IsAdmin() {
				next.ServeHTTP(w, r.WithContext(ctxutil.WithClaims(r.Context(), claims)))
				return
			}
			writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid or expired token")
			return
		}

		valid, err := auth.VerifyAPIKey(token, h.adminKeyHash)
		if err != nil || !valid {
			writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
			return
		}
		claims := &auth.Claims{Role: auth.RoleAdmin}
		next.ServeHTTP(w, r.WithContext(ctxutil.WithClaims(r.Context(), claims)))
	})
}

// adminActor names the credential behind an admin request for log
// attribution: the token's JTI when a JWT was presented, "api-key" for the
// static key, "open" when no admin key is configured.
func adminActor(ctx context.Context) string {
	claims := ctxutil.ClaimsFromContext(ctx)
	switch {
	case claims == nil:
		return "open"
	case claims.ID != "":
		return "token:" + claims.ID
	default:
		return "api-key"
	}
}

// bearerToken extracts the Bearer credential from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}
