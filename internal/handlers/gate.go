package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"

	"roomchat/internal/auth"
	"roomchat/internal/models"
)

const (
	authPath    = "/auth"
	flashCookie = "flash"
	flashMaxAge = 60
)

type pageState struct {
	SignedIn bool            `json:"signed_in"`
	User     *models.Profile `json:"user,omitempty"`
	Notice   *models.Notice  `json:"notice,omitempty"`
}

// Gate guards the page routes: "/" and "/join/*" need a session, "/auth"
// must not have one.
type Gate struct {
	authService *auth.Service
}

func NewGate(authService *auth.Service) *Gate {
	return &Gate{authService: authService}
}

// RequireSession sends visitors without a session to the sign-in page,
// remembering where they were going.
func (g *Gate) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := currentUser(r, g.authService)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if user == nil {
			target := authPath
			if r.URL.Path != homePath {
				target += "?next=" + url.QueryEscape(r.URL.RequestURI())
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// Home is GET /. It hands over any pending notice exactly once.
func (g *Gate) Home(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	writeJSON(w, http.StatusOK, pageState{
		SignedIn: true,
		User:     user.Profile(),
		Notice:   takeFlash(w, r),
	})
}

// Auth is GET /auth.
func (g *Gate) Auth(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, g.authService)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user != nil {
		http.Redirect(w, r, homePath, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, pageState{Notice: takeFlash(w, r)})
}

func setFlash(w http.ResponseWriter, n *models.Notice) {
	data, err := json.Marshal(n)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func takeFlash(w http.ResponseWriter, r *http.Request) *models.Notice {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var n models.Notice
	if err := json.Unmarshal(data, &n); err != nil {
		return nil
	}
	return &n
}
