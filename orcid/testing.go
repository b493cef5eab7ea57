// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package orcid

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/cap-orcid/orcid/internal/strutils"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// TestORCID is the ORCID iD the TestProvider issues tokens for unless told
// otherwise. It's ORCID's own demonstration record.
const TestORCID = "0000-0002-1825-0097"

// TestProvider is a local server which fakes ORCID's OAuth, API and OpenID
// endpoints. It answers for ORCID's real hosts: clients reach it through
// HTTPClient() or Transport(), which send every request for an orcid.org host
// to the local server and leave other hosts alone. The host a request was
// made for is preserved, so the fake can issue the right OpenID issuer.
type TestProvider struct {
	httpServer *httptest.Server
	signingKey *rsa.PrivateKey
	keyID      string
	jwks       *jose.JSONWebKeySet

	mu                  sync.Mutex
	clientID            string
	clientSecret        string
	expectedAuthCode    string
	allowedRedirectURIs []string
	replyORCID          string
	replyName           string
	replyScope          string
	omitORCID           bool
	issueIDTokens       bool
	idTokenSubject      string
	resources           map[string]interface{}
	resourceStatus      int
	requests            map[string]int
	hosts               map[string]int
	lastAPIRequest      *http.Request

	t *testing.T
}

// StartTestProvider creates a disposable TestProvider which is stopped when
// the test completes. Its defaults: client "test-client-id", secret
// "test-client-secret", auth code "test-code", redirect URI
// "https://example.com/callback", and replies for TestORCID named "Josiah
// Carberry" with a small person of both API versions.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(err)

	p := &TestProvider{
		t:                   t,
		signingKey:          key,
		keyID:               "test-key",
		clientID:            "test-client-id",
		clientSecret:        "test-client-secret",
		expectedAuthCode:    "test-code",
		allowedRedirectURIs: []string{"https://example.com/callback"},
		replyORCID:          TestORCID,
		replyName:           "Josiah Carberry",
		replyScope:          ScopeAuthenticate,
		resources:           map[string]interface{}{},
		requests:            map[string]int{},
		hosts:               map[string]int{},
	}
	p.jwks = &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       &key.PublicKey,
				KeyID:     p.keyID,
				Algorithm: string(jose.RS256),
				Use:       "sig",
			},
		},
	}
	p.setDefaultResources(TestORCID)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.Start()
	t.Cleanup(p.httpServer.Close)
	return p
}

func (p *TestProvider) setDefaultResources(uid string) {
	p.resources["/v2.0/"+uid+"/person"] = map[string]interface{}{
		"name": map[string]interface{}{
			"given-names": map[string]interface{}{"value": "Josiah"},
			"family-name": map[string]interface{}{"value": "Carberry"},
		},
	}
	p.resources["/v2.0/"+uid+"/record"] = map[string]interface{}{
		"orcid-identifier": map[string]interface{}{"path": uid},
	}
	p.resources["/v1.2/"+uid+"/orcid-profile"] = map[string]interface{}{
		"orcid-profile": map[string]interface{}{
			"orcid-identifier": map[string]interface{}{"path": uid},
		},
	}
	p.resources["/v1.2/"+uid+"/orcid-bio"] = map[string]interface{}{
		"orcid-profile": map[string]interface{}{
			"orcid-bio": map[string]interface{}{
				"personal-details": map[string]interface{}{
					"given-names": map[string]interface{}{"value": "Josiah"},
					"family-name": map[string]interface{}{"value": "Carberry"},
				},
			},
		},
	}
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the base URL of the local server.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// Transport returns a RoundTripper which sends requests for ORCID hosts to
// the TestProvider.
func (p *TestProvider) Transport() http.RoundTripper {
	target, err := url.Parse(p.Addr())
	require.NoError(p.t, err)
	return &rewriteTransport{target: target, base: http.DefaultTransport}
}

// HTTPClient returns a client suitable for WithHTTPClient.
func (p *TestProvider) HTTPClient() *http.Client {
	return &http.Client{Transport: p.Transport(), Timeout: 5 * time.Second}
}

// SetClientCreds configures the client credentials /oauth/token requires.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetExpectedAuthCode configures the code /oauth/authorize issues and
// /oauth/token accepts.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetAllowedRedirectURIs configures the redirect URIs the OAuth endpoints
// accept.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetReplyORCID configures the orcid and name parameters of token responses.
// The uid gets the default resources, if it has none yet.
func (p *TestProvider) SetReplyORCID(uid, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyORCID = uid
	p.replyName = name
	if _, ok := p.resources["/v2.0/"+uid+"/person"]; !ok {
		p.setDefaultResources(uid)
	}
}

// SetReplyScope configures the scope parameter of token responses.
func (p *TestProvider) SetReplyScope(scope string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyScope = scope
}

// OmitORCID forces an error state where token responses carry no orcid
// parameter.
func (p *TestProvider) OmitORCID() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitORCID = true
}

// IssueIDTokens makes token responses include an RS256 id_token for the
// reply ORCID iD.
func (p *TestProvider) IssueIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issueIDTokens = true
}

// SetIDTokenSubject overrides the subject of issued id_tokens.
func (p *TestProvider) SetIDTokenSubject(sub string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idTokenSubject = sub
}

// SetResource configures the JSON body returned for an API path, for example
// "/v2.0/0000-0002-1825-0097/person". A nil body removes the resource.
func (p *TestProvider) SetResource(path string, body interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if body == nil {
		delete(p.resources, path)
		return
	}
	p.resources[path] = body
}

// SetResourceStatus forces every API request to fail with the status code.
// Zero restores normal replies.
func (p *TestProvider) SetResourceStatus(code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resourceStatus = code
}

// Requests returns how many requests were made for a path.
func (p *TestProvider) Requests(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[path]
}

// HostRequests returns how many requests were made for an ORCID host.
func (p *TestProvider) HostRequests(host string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hosts[host]
}

// LastAPIRequest returns the most recent API request, or nil.
func (p *TestProvider) LastAPIRequest() *http.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAPIRequest
}

// SignIDToken signs an RS256 id_token with the TestProvider's key.
func (p *TestProvider) SignIDToken(claims jwt.Claims, privateClaims interface{}) string {
	p.t.Helper()
	require := require.New(p.t)
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: p.signingKey},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader(jose.HeaderKey("kid"), p.keyID),
	)
	require.NoError(err)

	b := jwt.Signed(sig).Claims(claims)
	if privateClaims != nil {
		b = b.Claims(privateClaims)
	}
	raw, err := b.CompactSerialize()
	require.NoError(err)
	return raw
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, status int, out interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(out)
}

func (p *TestProvider) writeTokenError(w http.ResponseWriter, status int, code, desc string) {
	p.writeJSON(w, status, struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: code,
		Desc: desc,
	})
}

func (p *TestProvider) writeAuthError(w http.ResponseWriter, req *http.Request, code string) {
	qv := req.URL.Query()
	redirectURI := qv.Get("redirect_uri") +
		"?state=" + url.QueryEscape(qv.Get("state")) +
		"&error=" + url.QueryEscape(code)
	http.Redirect(w, req, redirectURI, http.StatusFound)
}

// issuerFor returns the OpenID issuer of the ORCID host a request was made
// for.
func issuerFor(host string) string {
	if strings.Contains(host, "sandbox.") {
		return "https://sandbox.orcid.org"
	}
	return "https://orcid.org"
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests[req.URL.Path]++
	p.hosts[req.Host]++

	switch {
	case req.URL.Path == "/.well-known/openid-configuration":
		issuer := issuerFor(req.Host)
		p.writeJSON(w, http.StatusOK, map[string]interface{}{
			"issuer":                                issuer,
			"authorization_endpoint":                issuer + "/oauth/authorize",
			"token_endpoint":                        issuer + "/oauth/token",
			"jwks_uri":                              issuer + "/oauth/jwks",
			"response_types_supported":              []string{"code"},
			"subject_types_supported":               []string{"public"},
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})

	case req.URL.Path == "/oauth/jwks":
		p.writeJSON(w, http.StatusOK, p.jwks)

	case req.URL.Path == "/oauth/authorize":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()
		switch {
		case !strutils.StrListContains(p.allowedRedirectURIs, qv.Get("redirect_uri")):
			http.Error(w, "redirect_uri is not allowed", http.StatusBadRequest)
			return
		case qv.Get("response_type") != "code":
			p.writeAuthError(w, req, "unsupported_response_type")
			return
		case qv.Get("client_id") != p.clientID:
			p.writeAuthError(w, req, "unauthorized_client")
			return
		case qv.Get("state") == "":
			p.writeAuthError(w, req, "invalid_request")
			return
		}
		redirectURI := qv.Get("redirect_uri") +
			"?state=" + url.QueryEscape(qv.Get("state")) +
			"&code=" + url.QueryEscape(p.expectedAuthCode)
		http.Redirect(w, req, redirectURI, http.StatusFound)

	case req.URL.Path == "/oauth/token":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch {
		case req.FormValue("grant_type") != "authorization_code":
			p.writeTokenError(w, http.StatusBadRequest, "invalid_request", "bad grant_type")
			return
		case req.FormValue("client_id") != p.clientID || req.FormValue("client_secret") != p.clientSecret:
			p.writeTokenError(w, http.StatusUnauthorized, "invalid_client", "bad client credentials")
			return
		case !strutils.StrListContains(p.allowedRedirectURIs, req.FormValue("redirect_uri")):
			p.writeTokenError(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
			return
		case req.FormValue("code") != p.expectedAuthCode:
			p.writeTokenError(w, http.StatusBadRequest, "invalid_grant", "unexpected auth code")
			return
		}
		reply := map[string]interface{}{
			"access_token":  "test-access-token",
			"token_type":    "bearer",
			"refresh_token": "test-refresh-token",
			"expires_in":    631138518,
			"scope":         p.replyScope,
			"name":          p.replyName,
			"orcid":         p.replyORCID,
		}
		if p.omitORCID {
			delete(reply, "orcid")
		}
		if p.issueIDTokens {
			sub := p.replyORCID
			if p.idTokenSubject != "" {
				sub = p.idTokenSubject
			}
			now := time.Now()
			reply["id_token"] = p.SignIDToken(jwt.Claims{
				Subject:   sub,
				Issuer:    issuerFor(req.Host),
				Audience:  jwt.Audience{p.clientID},
				IssuedAt:  jwt.NewNumericDate(now),
				NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
				Expiry:    jwt.NewNumericDate(now.Add(5 * time.Minute)),
			}, map[string]interface{}{
				"given_name":  "Josiah",
				"family_name": "Carberry",
			})
		}
		p.writeJSON(w, http.StatusOK, reply)

	case strings.HasPrefix(req.URL.Path, "/v2.0/") || strings.HasPrefix(req.URL.Path, "/v1.2/"):
		p.lastAPIRequest = req.Clone(req.Context())
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if req.Header.Get("Authorization") != "Bearer test-access-token" {
			p.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
			return
		}
		if p.resourceStatus != 0 {
			p.writeJSON(w, p.resourceStatus, map[string]string{"error": "forced failure"})
			return
		}
		body, ok := p.resources[req.URL.Path]
		if !ok {
			p.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		// a raw body lets tests return responses which aren't json objects
		if raw, ok := body.([]byte); ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(raw)
			return
		}
		p.writeJSON(w, http.StatusOK, body)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// rewriteTransport sends requests for ORCID hosts to target. The request's
// Host is kept, so the server sees which ORCID host was asked for.
type rewriteTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (r *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Hostname()
	if host != "orcid.org" && !strings.HasSuffix(host, ".orcid.org") {
		return r.base.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	out.URL.Scheme = r.target.Scheme
	out.URL.Host = r.target.Host
	out.Host = req.URL.Host
	return r.base.RoundTrip(out)
}
