// Package api provides the HTTP surface for PartsLine.
//
// It exposes the Twilio voice webhooks that drive the call flow, a local
// JSON API for transcript search, and the quote/health endpoints. The API
// wires together the catalog, extraction, session, flow, and store modules.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/partsline/partsline/internal/catalog"
	"github.com/partsline/partsline/internal/extract"
	"github.com/partsline/partsline/internal/flow"
	"github.com/partsline/partsline/internal/session"
	"github.com/partsline/partsline/internal/store"
)

// DefaultAddr is the listen address when none is configured, matching the
// service's historical default port.
const DefaultAddr = ":4000"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server holds the API dependencies and registers the HTTP handlers.
type Server struct {
	ctrl *flow.Controller
	st   store.Store
	addr string
}

// NewServer creates an API server around a call flow controller and a quote
// store.
func NewServer(ctrl *flow.Controller, st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{ctrl: ctrl, st: st, addr: cfg.Addr}
}

// Run bootstraps every module from its option slice and serves HTTP until
// the listener fails. Only startup conditions (catalog load, store open,
// listener bind) are fatal; per-call failures are always converted into
// spoken responses by the flow controller.
func Run(catalogPath string, extractOpts []extract.Option, sessionOpts []session.Option, storeOpts []store.Option, apiOpts []Option) error {
	items, err := catalog.Load(catalogPath)
	if err != nil {
		return fmt.Errorf("catalog load failed: %w", err)
	}

	st, err := store.NewStore(storeOpts...)
	if err != nil {
		return fmt.Errorf("quote store init failed: %w", err)
	}
	defer st.Close()

	var extractor extract.Extractor
	if cli, err := extract.NewClient(extractOpts...); err != nil {
		// Without a key every extraction degrades to the empty query and
		// callers hear "no results found".
		slog.Warn("api.Run: extraction disabled", "error", err)
	} else {
		extractor = cli
	}

	sessions := session.NewCacheStore(sessionOpts...)
	ctrl := flow.NewController(items, sessions, extractor, st)
	srv := NewServer(ctrl, st, apiOpts...)

	return srv.Serve()
}

// Serve registers the handlers and blocks on the HTTP listener.
func (s *Server) Serve() error {
	mux := http.NewServeMux()
	mux.HandleFunc(flow.TurnVoice, s.voiceHandler)
	mux.HandleFunc(flow.TurnProcessSpeech, s.processSpeechHandler)
	mux.HandleFunc(flow.TurnHandleChoice, s.handleChoiceHandler)
	mux.HandleFunc("/api/parse-and-search", s.parseAndSearchHandler)
	mux.HandleFunc("/quotes", s.quotesHandler)
	mux.HandleFunc("/health", s.healthHandler)

	slog.Info("Server.Serve: PartsLine API listening", "addr", s.addr)
	return http.ListenAndServe(s.addr, mux)
}
