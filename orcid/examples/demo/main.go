// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Command demo is a small web application which signs people in with their
// ORCID iD.
//
// Configure it with environment variables, or a .env file:
//
//	ORCID_CLIENT_ID          required
//	ORCID_CLIENT_SECRET      required
//	ORCID_SANDBOX            use sandbox.orcid.org (default true)
//	ORCID_MEMBER             use the member API (default false)
//	ORCID_API_VERSION        2.0 (default) or 1.2
//	ORCID_OPENID             request openid and verify the id_token
//	ORCID_SCOPE              scope of authorization requests
//	ORCID_DEMO_ADDR          listen address (default localhost:9292)
//	ORCID_DEMO_BASE_URL      external URL of the app (default http://ORCID_DEMO_ADDR)
//	ORCID_DEMO_LANG          language of ORCID's sign in screen (default en)
//	ORCID_DEMO_LOG_LEVEL     trace, debug, info (default), warn or error
//	ORCID_DEMO_REDIS_URL     keep sessions in redis, for example redis://localhost:6379/0
//	ORCID_DEMO_SESSION_TTL   session lifetime (default 1h)
//
// The redirect URI registered with ORCID must be ORCID_DEMO_BASE_URL followed
// by /auth/orcid/callback.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/cap-orcid/orcid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "orcid-demo",
		Level: cfg.logLevel(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, closeStore, err := newServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer srv.provider.Done()
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("unable to close session store", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	e := srv.provider.Endpoints()
	logger.Info("connecting to ORCID", "site", e.Site, "client_id", cfg.ClientID, "namespace", srv.provider.Config().Namespace())
	logger.Info("listening", "addr", cfg.Addr, "redirect_uri", cfg.redirectURL())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newServer wires the ORCID provider and the session store. The returned func
// closes the store.
func newServer(ctx context.Context, cfg demoConfig, logger hclog.Logger, opt ...orcid.Option) (*server, func() error, error) {
	pc, err := cfg.providerConfig(logger, opt...)
	if err != nil {
		return nil, nil, fmt.Errorf("orcid config: %w", err)
	}
	p, err := orcid.NewProvider(pc)
	if err != nil {
		return nil, nil, fmt.Errorf("orcid provider: %w", err)
	}
	store, closeStore, err := newSessionStore(ctx, cfg.RedisURL)
	if err != nil {
		p.Done()
		return nil, nil, err
	}
	return &server{
		cfg:      cfg,
		provider: p,
		store:    store,
		logger:   logger,
	}, closeStore, nil
}
