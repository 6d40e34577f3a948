package server

import (
	"context"
	"net/http"
)

type contextKey string

const (
	// ContextKeyDID holds the authenticated DID for protected routes.
	ContextKeyDID contextKey = "did"
	// ContextKeyHandle holds the authenticated handle for protected routes.
	ContextKeyHandle contextKey = "handle"
)

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) APIMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chainedMiddleWare := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
	}
	chainedMiddleWare = append(chainedMiddleWare, mw...)
	return chainedMiddleWare
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.env == "DEV" {
			s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("Request")
		}
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Handler panicked")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

// RequireSession validates the request's session cookie and injects the
// DID and handle into the request context. Anonymous requests get a 401.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			result, err := s.sessions.ValidateSession(w, r)
			if err != nil {
				s.log.Error().Err(err).Msg("Session validation failed")
				http.Error(w, "Session validation failed", http.StatusInternalServerError)
				return
			}
			if !result.Valid {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyDID, result.DID)
			ctx = context.WithValue(ctx, ContextKeyHandle, result.Handle)
			next(w, r.WithContext(ctx))
		}
	}
}
