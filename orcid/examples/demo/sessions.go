// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/cap-orcid/orcid"
	"github.com/hashicorp/cap-orcid/sdk/id"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

var errSessionNotFound = errors.New("session not found")

// webSession is the server side state of one browser.
type webSession struct {
	ID        string            `json:"id"`
	Values    map[string]string `json:"values,omitempty"`
	Identity  json.RawMessage   `json:"identity,omitempty"`
	Token     *storedToken      `json:"token,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// storedToken keeps what the demo needs to call the ORCID API again. The
// orcid.Token redacts itself when marshaled, so it isn't stored directly.
type storedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry"`
	ORCID       string    `json:"orcid"`
	Name        string    `json:"name,omitempty"`
}

func newWebSession(ttl time.Duration) (*webSession, error) {
	sid, err := id.New("sess")
	if err != nil {
		return nil, err
	}
	return &webSession{
		ID:        sid,
		Values:    map[string]string{},
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// Set implements orcid.SessionWriter.
func (s *webSession) Set(key, value string) {
	if s.Values == nil {
		s.Values = map[string]string{}
	}
	s.Values[key] = value
}

// SignedIn reports whether the session completed a login.
func (s *webSession) SignedIn() bool { return s != nil && s.Token != nil }

func (s *webSession) setToken(t *orcid.Token) {
	ot := t.Oauth2Token()
	s.Token = &storedToken{
		AccessToken: string(t.AccessToken()),
		TokenType:   ot.TokenType,
		Expiry:      t.Expiry(),
		ORCID:       t.ORCID(),
		Name:        t.Name(),
	}
}

// orcidToken rebuilds the login's token.
func (s *webSession) orcidToken() (*orcid.Token, error) {
	if s.Token == nil {
		return nil, errSessionNotFound
	}
	ot := (&oauth2.Token{
		AccessToken: s.Token.AccessToken,
		TokenType:   s.Token.TokenType,
		Expiry:      s.Token.Expiry,
	}).WithExtra(map[string]interface{}{
		"orcid": s.Token.ORCID,
		"name":  s.Token.Name,
	})
	return orcid.NewToken(ot)
}

type sessionStore interface {
	Get(ctx context.Context, id string) (*webSession, error)
	Save(ctx context.Context, s *webSession) error
	Delete(ctx context.Context, id string) error
}

// memoryStore keeps sessions in process.
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]webSession
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: map[string]webSession{}}
}

func (m *memoryStore) Get(_ context.Context, id string) (*webSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errSessionNotFound
	}
	if time.Now().After(s.ExpiresAt) {
		delete(m.sessions, id)
		return nil, errSessionNotFound
	}
	values := make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		values[k] = v
	}
	s.Values = values
	return &s, nil
}

func (m *memoryStore) Save(_ context.Context, s *webSession) error {
	if s.ID == "" {
		return errors.New("session id is empty")
	}
	stored := *s
	stored.Values = make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		stored.Values[k] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = stored
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// redisStore keeps sessions in redis until they expire.
type redisStore struct {
	client redis.UniversalClient
	prefix string
}

func newRedisStore(client redis.UniversalClient) *redisStore {
	return &redisStore{client: client, prefix: "orcid-demo:session:"}
}

func (r *redisStore) Get(ctx context.Context, id string) (*webSession, error) {
	if id == "" {
		return nil, errSessionNotFound
	}
	data, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errSessionNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var s webSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *redisStore) Save(ctx context.Context, s *webSession) error {
	if s.ID == "" {
		return errors.New("session id is empty")
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session is expired")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.client.Set(ctx, r.prefix+s.ID, data, ttl).Err()
}

func (r *redisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return r.client.Del(ctx, r.prefix+id).Err()
}

// newSessionStore returns a redis store when redisURL is set.
func newSessionStore(ctx context.Context, redisURL string) (sessionStore, func() error, error) {
	if redisURL == "" {
		return newMemoryStore(), func() error { return nil }, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisStore(client), client.Close, nil
}
