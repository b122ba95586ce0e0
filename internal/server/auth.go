package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/claude/gymio/internal/config"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const stateCookie = "gymio_oauth_state"

// OIDCAuth runs the browser login against a hosted identity provider.
type OIDCAuth struct {
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewOIDCAuth discovers the provider at cfg.IssuerURL.
func NewOIDCAuth(ctx context.Context, cfg config.OIDCConfig) (*OIDCAuth, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering oidc provider: %w", err)
	}
	return &OIDCAuth{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// Verifier checks ID tokens issued for this client.
func (a *OIDCAuth) Verifier() *oidc.IDTokenVerifier {
	return a.verifier
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "sso disabled"})
		return
	}
	state := generateState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})
	http.Redirect(w, r, s.oidc.oauth.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "sso disabled"})
		return
	}
	state, err := r.Cookie(stateCookie)
	if err != nil || r.URL.Query().Get("state") != state.Value {
		writeInvalid(w)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})

	token, err := s.oidc.oauth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.log.Warn("oidc code exchange", "error", err)
		writeUnauthorized(w)
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		s.log.Warn("oidc token response without id_token")
		writeUnauthorized(w)
		return
	}
	idToken, err := s.oidc.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		s.log.Warn("oidc id token verification", "error", err)
		writeUnauthorized(w)
		return
	}
	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		s.log.Warn("oidc claims", "error", err)
		writeUnauthorized(w)
		return
	}
	info := claims.userInfo()
	if _, err := s.db.GetOrCreateUser(r.Context(), info.Login, info.DisplayName); err != nil {
		s.log.Error("creating user after login", "login", info.Login, "error", err)
		writeInternal(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     idTokenCookie,
		Value:    rawIDToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(idToken.Expiry).Seconds()),
	})
	s.log.Info("user logged in", "login", info.Login)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     idTokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
