package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hospitaldesk/internal/handlers"
	"hospitaldesk/internal/middlewares"
	"hospitaldesk/internal/models"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(middlewares.RequestLogger)
	r.Use(middlewares.PrometheusMiddleware)
	r.Use(middlewares.CorsMiddleware(s.cfg.AllowedOrigins))
	r.Use(s.apiLimiter.Limit)

	ch := handlers.NewCommonHandler(s.db, s.doctorPool)
	r.HandleFunc("/health", ch.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.registerAuthRoutes(r)
	s.registerHospitalRoutes(r)
	s.registerChatRoutes(r)

	return r
}

func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return middlewares.AuthMiddleware(s.tokens)(h)
}

func (s *Server) adminOnly(h http.HandlerFunc) http.Handler {
	return middlewares.AuthMiddleware(s.tokens)(middlewares.RequireRole(models.RoleAdmin)(h))
}

func (s *Server) authLimited(h http.HandlerFunc) http.Handler {
	return s.authLimiter.Limit(h)
}

func (s *Server) registerAuthRoutes(r *mux.Router) {
	uh := handlers.NewUserHandler(s.userService)
	ah := handlers.NewAuthHandler(s.authService, s.otpService)

	r.Handle("/api/auth/register", s.authLimited(uh.Register)).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/login", s.authLimited(uh.Login)).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/refresh-token", s.authLimited(uh.RefreshToken)).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/logout", s.authed(uh.Logout)).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/profile", s.authed(uh.GetMyProfile)).Methods("GET", "OPTIONS")
	r.Handle("/api/auth/profile", s.authed(uh.UpdateMyProfile)).Methods("PATCH", "PUT", "OPTIONS")
	r.Handle("/api/auth/profile", s.authed(uh.DeleteMyAccount)).Methods("DELETE", "OPTIONS")

	r.Handle("/api/auth/otp/request", s.authLimited(ah.RequestOTP)).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/otp/verify", s.authLimited(ah.VerifyOTP)).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/forgot-password", s.authLimited(ah.ForgotPassword)).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/reset-password", s.authLimited(ah.ResetPassword)).Methods("POST", "OPTIONS")

	r.HandleFunc("/api/auth/oauth/{provider}", ah.ProviderAuth).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/auth/oauth/{provider}/callback", ah.ProviderCallback).Methods("GET", "OPTIONS")
}

func (s *Server) registerHospitalRoutes(r *mux.Router) {
	hh := handlers.NewHospitalHandler(s.hospitalService)

	r.Handle("/api/hospitals", s.authed(hh.GetHospitals)).Methods("GET", "OPTIONS")
	r.Handle("/api/hospitals", s.adminOnly(hh.CreateHospital)).Methods("POST", "OPTIONS")
	r.Handle("/api/hospitals/{id}", s.authed(hh.GetHospitalByID)).Methods("GET", "OPTIONS")
	r.Handle("/api/hospitals/{id}", s.adminOnly(hh.UpdateHospital)).Methods("PUT", "OPTIONS")
	r.Handle("/api/hospitals/{id}", s.adminOnly(hh.DeleteHospital)).Methods("DELETE", "OPTIONS")
}

// Sending and reading chat accept guests when CHAT_REQUIRE_AUTH is off;
// clearing history always needs a user.
func (s *Server) registerChatRoutes(r *mux.Router) {
	ch := handlers.NewChatHandler(s.chatService)

	chatAuth := middlewares.OptionalAuth(s.tokens)
	if s.cfg.ChatRequireAuth {
		chatAuth = middlewares.AuthMiddleware(s.tokens)
	}

	r.Handle("/api/chatbot/message", chatAuth(http.HandlerFunc(ch.SendMessage))).Methods("POST", "OPTIONS")
	r.Handle("/api/chatbot/history", chatAuth(http.HandlerFunc(ch.GetHistory))).Methods("GET", "OPTIONS")
	r.Handle("/api/chatbot/history", s.authed(ch.ClearHistory)).Methods("DELETE", "OPTIONS")
}
