package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"roomchat/internal/auth"
	"roomchat/internal/models"
	"roomchat/pkg/logger"

	"github.com/go-chi/chi/v5/middleware"
)

const sessionCookie = "session"

type ctxKey int

const userKey ctxKey = iota

// tokenFromRequest looks for a token in the Authorization header, then the
// token query parameter (browsers cannot set headers on websocket upgrades),
// then the session cookie.
func tokenFromRequest(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, token, ok := strings.Cut(authz, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func withUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func userFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// currentUser resolves the request's user, or nil when there is no valid
// session. Lookup failures other than a bad token are returned.
func currentUser(r *http.Request, authService *auth.Service) (*models.User, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return nil, nil
	}
	user, err := authService.CurrentUser(r.Context(), token)
	if errors.Is(err, auth.ErrInvalidToken) {
		return nil, nil
	}
	return user, err
}

// requireUser rejects requests without a valid session with 401.
func requireUser(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := currentUser(r, authService)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if user == nil {
				writeError(w, r, auth.ErrInvalidToken)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// requestLogger logs one line per request. The chi wrapper keeps Hijack
// working for websocket upgrades.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log := logger.With("req_id", middleware.GetReqID(r.Context()))
		switch {
		case status >= 500:
			log.Error("%s %s %d %d bytes in %s", r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start))
		case status >= 400:
			log.Warn("%s %s %d %d bytes in %s", r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start))
		default:
			log.Info("%s %s %d %d bytes in %s", r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start))
		}
	})
}
