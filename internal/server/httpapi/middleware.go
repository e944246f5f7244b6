package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	MsgBodyRequired       = "Request body is required."
	MsgBodyTooLarge       = "Request body is too large"
	MsgMissingAuthHeader  = "Invalid or missing authorization header"
	MsgInvalidTokenClaims = "Invalid token payload"
	MsgTooManyAttempts    = "Too many attempts, try again later"

	maxBodyBytes = 1 << 20
)

type ctxKey string

const principalKey ctxKey = "principal"

// principalFrom returns the verified access token payload stored by
// authenticate.
func principalFrom(ctx context.Context) (*auth.Payload, bool) {
	p, ok := ctx.Value(principalKey).(*auth.Payload)
	return p, ok
}

// requireBody rejects requests whose body is missing, blank or an empty
// JSON object.
func (s *HTTPServer) requireBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, r, s.logger, common.InvalidArgument(MsgBodyTooLarge))
			return
		}
		if isEmptyBody(body) {
			writeError(w, r, s.logger, common.InvalidArgument(MsgBodyRequired))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func isEmptyBody(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return true
	}
	var obj map[string]json.RawMessage
	return json.Unmarshal(trimmed, &obj) == nil && len(obj) == 0
}

// authenticate requires a valid ACCESS bearer token.
func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, r, s.logger, common.NewError(common.CodeInvalidCredentials, MsgMissingAuthHeader))
			return
		}

		payload, err := s.tokens.VerifyType(strings.TrimSpace(header[len("Bearer "):]), auth.TokenAccess)
		if err != nil {
			writeError(w, r, s.logger, err)
			return
		}
		if payload.UserID == "" || !payload.Role.Valid() {
			writeError(w, r, s.logger, common.NewError(common.CodeInvalidCredentials, MsgInvalidTokenClaims))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, payload)))
	})
}

// allowRoles admits authenticated callers holding one of roles.
func (s *HTTPServer) allowRoles(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principalFrom(r.Context())
			if !ok || !hasRole(p.Role, roles) {
				writeError(w, r, s.logger, common.NewError(common.CodeForbidden, common.MsgAccessDenied))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasRole(role models.Role, allowed []models.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// logRequests logs every request once it completes, at error level for 5xx,
// warn for 4xx and info otherwise, and feeds the HTTP metrics.
func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", float64(duration.Microseconds()) / 1000,
			"request_id", middleware.GetReqID(r.Context()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error(r.Context(), "http request", args...)
		case status >= http.StatusBadRequest:
			s.logger.Warn(r.Context(), "http request", args...)
		default:
			s.logger.Info(r.Context(), "http request", args...)
		}

		if s.metrics != nil {
			s.metrics.ObserveHTTP(route, r.Method, status, duration)
		}
	})
}
