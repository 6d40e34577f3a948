// Package server exposes the session manager over HTTP: login initiation,
// OAuth callback, cookie-session endpoints for web clients, and the
// bearer-token endpoints for mobile clients.
package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-atproto-sessions/internal/config"
	"github.com/jrsteele09/go-atproto-sessions/oauthclient"
	"github.com/jrsteele09/go-atproto-sessions/sessions"
	"github.com/jrsteele09/go-atproto-sessions/storage"
)

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	sessions *sessions.Manager
	log      zerolog.Logger
}

func New(cfg config.Config, client oauthclient.Client, store storage.Store, log zerolog.Logger) (*Server, error) {
	manager, err := sessions.New(sessions.Config{
		Client:       client,
		Store:        store,
		Secret:       cfg.GetCookieSecret(),
		BaseURL:      cfg.GetBaseURL(),
		CookieName:   cfg.GetCookieName(),
		SessionTTL:   cfg.GetSessionTTL(),
		MobileScheme: cfg.GetMobileScheme(),
		Logger:       &log,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		sessions: manager,
		log:      log,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.log.Info().Str("method", parts[0]).Str("path", parts[1]).Msg("Route registered")
		} else {
			s.log.Info().Str("path", parts[0]).Msg("Route registered")
		}
	}
}
