package middleware

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey avoids collisions when storing values in request contexts.
type contextKey string

const (
	ctxCallerIDKey contextKey = "caller_id"
	ctxServiceKey  contextKey = "service"
	ctxScopeKey    contextKey = "scope"
)

// ScopeAdmin marks callers allowed to touch catalog administration.
const ScopeAdmin = "admin"

// serviceClaims is the token shape issued to platform services calling
// the ledger. CallerID identifies the service instance for rate limiting
// and audit; Scope gates the admin surface.
type serviceClaims struct {
	CallerID string `json:"caller_id"`
	Service  string `json:"service"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates bearer JWTs issued to platform services and
// injects the caller identity into the context.
type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// Authenticate enforces bearer auth and populates caller details on the
// request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			jsonError(w, http.StatusUnauthorized, "Bearer token required")
			return
		}

		claims := &serviceClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			jsonError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		callerID, err := uuid.Parse(claims.CallerID)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "Invalid caller ID in token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxCallerIDKey, callerID)
		if claims.Service != "" {
			ctx = context.WithValue(ctx, ctxServiceKey, claims.Service)
		}
		if claims.Scope != "" {
			ctx = context.WithValue(ctx, ctxScopeKey, claims.Scope)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// RequireScope rejects callers whose token scope does not match.
func (m *AuthMiddleware) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := ScopeFromContext(r.Context())
			if !ok || got != scope {
				jsonError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CallerIDFromContext returns the authenticated caller's UUID from context.
func CallerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxCallerIDKey).(uuid.UUID)
	return id, ok
}

// ServiceFromContext returns the calling service's name from context.
func ServiceFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxServiceKey).(string)
	return s, ok
}

// ScopeFromContext returns the caller's token scope from context.
func ScopeFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxScopeKey).(string)
	return s, ok
}

// CORS admits only the origins named in CORS_ALLOWED_ORIGINS; with no
// configuration the origin is reflected, which suits an internal API
// fronted by its own gateway.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, Idempotency-Key")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func originAllowed(origin string) bool {
	allowed := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if allowed == "" {
		return true
	}
	for _, o := range strings.Split(allowed, ",") {
		if strings.EqualFold(strings.TrimSpace(o), origin) {
			return true
		}
	}
	return false
}
