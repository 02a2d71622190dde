package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/KentSpendy/BukCare/pkg/types"
)

// corsMiddleware handles CORS headers for the configured origins
func (g *Gateway) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && g.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) originAllowed(origin string) bool {
	for _, allowed := range g.config.Server.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// securityHeadersMiddleware adds security headers
func (g *Gateway) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request with its outcome
func (g *Gateway) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		g.logger.HTTPRequest(r.Method, r.URL.Path, r.RemoteAddr, recorder.statusCode, time.Since(start).Milliseconds())
	})
}

// authMiddleware validates the bearer token and puts the claims on the
// request context.
func (g *Gateway) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			g.writeErrorResponse(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			g.writeErrorResponse(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := g.iam.ValidateToken(parts[1])
		if err != nil {
			g.writeErrorResponse(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(types.ContextWithClaims(r.Context(), claims)))
	})
}

// rateLimitMiddleware applies per-user rate limiting. Runs after auth.
func (g *Gateway) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.config.RateLimit.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := types.ClaimsFromContext(r.Context())
		if !ok {
			g.writeErrorResponse(w, http.StatusInternalServerError, "User claims not found in context")
			return
		}

		allowed, err := g.limiter.Allow(claims.UserID)
		if err != nil {
			g.writeErrorResponse(w, http.StatusInternalServerError, "Rate limiter failure")
			return
		}
		if !allowed {
			g.logger.WithField("user_id", claims.UserID).Warn("Rate limit exceeded")
			g.writeErrorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRoles restricts a handler to the given roles
func RequireRoles(roles ...types.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := types.ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeJSONError(w, http.StatusForbidden, "Insufficient permissions")
		})
	}
}

func (g *Gateway) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	writeJSONError(w, statusCode, message)
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// responseRecorder captures the response status code for logging
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
