package server

const (
	RouteLogin         = "/auth/login"
	RouteCallback      = "/auth/callback"
	RouteSession       = "/auth/session"
	RouteLogout        = "/auth/logout"
	RouteMobileSession = "/auth/mobile/session"
	RouteMobileRefresh = "/auth/mobile/refresh"
	RouteMe            = "/api/me"
)

func (s *Server) initRoutes() {
	// LOGIN
	s.RegisterRouteFunc("POST "+RouteLogin, s.LoginHandler())
	s.RegisterRouteFunc("GET "+RouteCallback, s.CallbackHandler())
	s.RegisterRouteFunc("POST "+RouteCallback, s.CallbackHandler()) // For form_post response mode
	s.RegisterRouteFunc("GET "+RouteLogout, s.LogoutHandler())

	// Web session API
	s.RegisterRouteFunc("GET "+RouteSession, s.SessionHandler())

	// Mobile session API
	s.RegisterRouteFunc("GET "+RouteMobileSession, s.MobileSessionHandler())
	s.RegisterRouteFunc("POST "+RouteMobileRefresh, s.MobileRefreshHandler())

	// Protected routes
	s.RegisterRouteHandler("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireSession())...))
}
