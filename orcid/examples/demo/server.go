// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/hashicorp/cap-orcid/orcid"
	"github.com/hashicorp/go-hclog"
)

const sessionCookie = "orcid_demo_session"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
  <head>
    <title>ORCID demo app</title>
  </head>
  <body>
    {{- if .Error }}
    <p id="error">{{ .Error }}</p>
    {{- end }}
    {{- if .ORCID }}
    <p>Signed in with ORCID iD <b id="orcid">{{ .ORCID }}</b>{{ if .Name }} as <span id="name">{{ .Name }}</span>{{ end }} <a id="signout" href="/signout">sign out</a></p>
    <p><a id="user_info" href="/user_info">Show the identity as JSON</a></p>
    <p><a id="orcid_profile" href="/orcid_profile">Fetch the full ORCID record as JSON</a></p>
    {{- else }}
    <p><a id="login" href="/auth/orcid">Log in with my ORCID iD</a></p>
    {{- end }}
  </body>
</html>
`))

type indexPage struct {
	ORCID string
	Name  string
	Error string
}

type server struct {
	cfg      demoConfig
	provider *orcid.Provider
	store    sessionStore
	logger   hclog.Logger
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /auth/orcid", s.handleLogin)
	mux.HandleFunc("GET /auth/orcid/callback", s.handleCallback)
	mux.HandleFunc("GET /user_info", s.handleUserInfo)
	mux.HandleFunc("GET /orcid_profile", s.handleProfile)
	mux.HandleFunc("GET /signout", s.handleSignout)
	return s.logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

// session returns the browser's session, or nil when it has none.
func (s *server) session(r *http.Request) *webSession {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	sess, err := s.store.Get(r.Context(), c.Value)
	if err != nil {
		if !errors.Is(err, errSessionNotFound) {
			s.logger.Error("unable to read session", "error", err)
		}
		return nil
	}
	return sess
}

func (s *server) saveSession(w http.ResponseWriter, r *http.Request, sess *webSession) error {
	if err := s.store.Save(r.Context(), sess); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *server) renderIndex(w http.ResponseWriter, status int, page indexPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, page); err != nil {
		s.logger.Error("unable to render page", "error", err)
	}
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.logger.Error("unable to write response", "error", err)
	}
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage{}
	if sess := s.session(r); sess.SignedIn() {
		page.ORCID = sess.Token.ORCID
		page.Name = sess.Token.Name
	}
	s.renderIndex(w, http.StatusOK, page)
}

// handleLogin starts a login. Query parameters ORCID understands, like
// given_names or email, are passed on to the authorization request.
func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	if sess == nil {
		var err error
		if sess, err = newWebSession(s.cfg.SessionTTL); err != nil {
			s.logger.Error("unable to create session", "error", err)
			http.Error(w, "unable to create session", http.StatusInternalServerError)
			return
		}
	}
	state, err := orcid.NewState()
	if err != nil {
		s.logger.Error("unable to create state", "error", err)
		http.Error(w, "unable to create state", http.StatusInternalServerError)
		return
	}
	req := r.URL.Query()
	req.Set("state", state)
	params := s.provider.AuthorizeParams(req, sess)

	authURL, err := s.provider.AuthURL(state, params)
	if err != nil {
		s.logger.Error("unable to create authorization url", "error", err)
		http.Error(w, "unable to start login", http.StatusInternalServerError)
		return
	}
	if err := s.saveSession(w, r, sess); err != nil {
		s.logger.Error("unable to save session", "error", err)
		http.Error(w, "unable to save session", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.logger.Warn("ORCID returned an error", "error", e, "description", q.Get("error_description"))
		s.renderIndex(w, http.StatusUnauthorized, indexPage{Error: fmt.Sprintf("ORCID sign in failed: %s", e)})
		return
	}
	sess := s.session(r)
	if sess == nil || sess.Values[orcid.SessionStateKey] == "" || sess.Values[orcid.SessionStateKey] != q.Get("state") {
		s.renderIndex(w, http.StatusBadRequest, indexPage{Error: "the sign in request is unknown or expired"})
		return
	}
	delete(sess.Values, orcid.SessionStateKey)

	tk, err := s.provider.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		s.logger.Error("unable to exchange code", "error", err)
		s.renderIndex(w, http.StatusUnauthorized, indexPage{Error: "ORCID sign in failed"})
		return
	}
	login, err := s.provider.NewSession(tk)
	if err != nil {
		s.logger.Error("unable to create login session", "error", err)
		http.Error(w, "unable to sign in", http.StatusInternalServerError)
		return
	}
	identity := login.Identity(r.Context())
	if err := login.ProfileErr(r.Context()); err != nil {
		s.logger.Warn("signed in without profile data", "orcid", identity.UID, "error", err)
	}
	raw, err := json.Marshal(identity)
	if err != nil {
		s.logger.Error("unable to marshal identity", "error", err)
		http.Error(w, "unable to sign in", http.StatusInternalServerError)
		return
	}
	sess.Identity = raw
	sess.setToken(tk)
	if err := s.saveSession(w, r, sess); err != nil {
		s.logger.Error("unable to save session", "error", err)
		http.Error(w, "unable to save session", http.StatusInternalServerError)
		return
	}
	s.logger.Info("signed in", "orcid", identity.UID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	if !sess.SignedIn() {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Identity)
}

func (s *server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	if !sess.SignedIn() {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}
	tk, err := sess.orcidToken()
	if err != nil {
		s.logger.Error("unable to restore token", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "unable to restore token"})
		return
	}
	record, err := s.provider.FetchRecord(r.Context(), tk)
	if err != nil {
		s.logger.Error("unable to fetch record", "orcid", tk.ORCID(), "error", err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "unable to fetch the ORCID record"})
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *server) handleSignout(w http.ResponseWriter, r *http.Request) {
	if sess := s.session(r); sess != nil {
		if err := s.store.Delete(r.Context(), sess.ID); err != nil {
			s.logger.Error("unable to delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
