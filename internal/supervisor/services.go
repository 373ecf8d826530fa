// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/porchlight-labs/porchlight/internal/logging"
)

// GCTarget is the slice of the Badger store the GC service needs.
type GCTarget interface {
	RunGC(discardRatio float64) error
}

// BadgerGCService periodically runs Badger's value-log garbage collection.
// It implements suture.Service.
type BadgerGCService struct {
	target   GCTarget
	interval time.Duration
}

// NewBadgerGCService creates the GC service. interval <= 0 defaults to 10
// minutes.
func NewBadgerGCService(target GCTarget, interval time.Duration) *BadgerGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &BadgerGCService{target: target, interval: interval}
}

// Serve runs GC on a ticker until the context is canceled. Badger returns
// ErrNoRewrite when there is nothing to collect; that is a normal outcome,
// not a failure.
func (s *BadgerGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.target.RunGC(0.5); err != nil {
				logging.Debug().Err(err).Msg("badger value-log GC pass")
			}
		}
	}
}

func (s *BadgerGCService) String() string { return "badger-gc" }

// HTTPService runs an http.Server under supervision with graceful shutdown
// on context cancellation.
type HTTPService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewHTTPService wraps the server. shutdownTimeout <= 0 defaults to 10s.
func NewHTTPService(server *http.Server, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve listens until the context is canceled, then shuts down gracefully.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("http server shutdown")
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *HTTPService) String() string { return "http-server" }
