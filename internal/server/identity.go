package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"tailscale.com/client/tailscale/apitype"
)

type contextKey int

const (
	userInfoKey contextKey = iota
	userIDKey
)

// idTokenCookie carries the raw OIDC ID token after a browser login.
const idTokenCookie = "gymio_id_token"

// UserInfo identifies the caller.
type UserInfo struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

func withUserInfo(r *http.Request, info UserInfo) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userInfoKey, info))
}

// userInfoFromContext returns the caller identity set by an identity middleware.
func userInfoFromContext(r *http.Request) (UserInfo, bool) {
	info, ok := r.Context().Value(userInfoKey).(UserInfo)
	return info, ok && info.Login != ""
}

// userIDFromContext returns the user id set by RequireUser, or 0.
func userIDFromContext(r *http.Request) int {
	id, _ := r.Context().Value(userIDKey).(int)
	return id
}

// mustUserID writes 401 and reports false when the request carries no user.
func mustUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	uid := userIDFromContext(r)
	if uid == 0 {
		writeUnauthorized(w)
		return 0, false
	}
	return uid, true
}

// DevIdentity treats every request as coming from login.
func DevIdentity(login string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, withUserInfo(r, UserInfo{Login: login, DisplayName: login}))
		})
	}
}

// WhoIser resolves a tailnet peer address to its owner.
// The tsnet local client implements it.
type WhoIser interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// TailscaleIdentity identifies callers by their tailnet login. Requests whose
// peer cannot be resolved carry no identity.
func TailscaleIdentity(whois WhoIser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, err := whois.WhoIs(r.Context(), r.RemoteAddr)
			if err != nil {
				log.Warn("tailscale whois failed", "remote", r.RemoteAddr, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if who == nil || who.UserProfile == nil || who.UserProfile.LoginName == "" {
				next.ServeHTTP(w, r)
				return
			}
			info := UserInfo{Login: who.UserProfile.LoginName, DisplayName: who.UserProfile.DisplayName}
			if info.DisplayName == "" {
				info.DisplayName = info.Login
			}
			next.ServeHTTP(w, withUserInfo(r, info))
		})
	}
}

type idClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

func (c idClaims) userInfo() UserInfo {
	info := UserInfo{Login: c.Email, DisplayName: c.Name}
	if info.Login == "" {
		info.Login = c.Subject
	}
	if info.DisplayName == "" {
		info.DisplayName = info.Login
	}
	return info
}

// OIDCIdentity identifies callers by a verified ID token taken from the
// Authorization bearer header or the login cookie.
func OIDCIdentity(verifier *oidc.IDTokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			tok, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				log.Debug("id token rejected", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			var claims idClaims
			if err := tok.Claims(&claims); err != nil {
				log.Warn("id token claims", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, withUserInfo(r, claims.userInfo()))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(idTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireUser rejects requests without an identity and maps the identity to
// a stored user, creating it on first access.
func RequireUser(db Store, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := userInfoFromContext(r)
			if !ok {
				writeUnauthorized(w)
				return
			}
			uid, err := db.GetOrCreateUser(r.Context(), info.Login, info.DisplayName)
			if err != nil {
				log.Error("resolving user", "login", info.Login, "error", err)
				writeInternal(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, uid)))
		})
	}
}
