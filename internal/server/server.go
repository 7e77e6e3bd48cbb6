package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"hospitaldesk/internal/config"
	"hospitaldesk/internal/database"
	"hospitaldesk/internal/middlewares"
	"hospitaldesk/internal/repositories"
	"hospitaldesk/internal/services"
)

type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	db         database.Service
	doctorPool *pgxpool.Pool

	tokens          services.TokenService
	userService     services.UserService
	authService     services.AuthService
	otpService      services.OTPService
	hospitalService services.HospitalService
	chatService     services.ChatService

	apiLimiter  *middlewares.RateLimiter
	authLimiter *middlewares.RateLimiter
}

// NewServer wires repositories and services over the given stores. The
// doctor pool may be nil, in which case doctor lookups come back empty.
func NewServer(ctx context.Context, cfg *config.Config, db database.Service, doctorPool *pgxpool.Pool) (*Server, error) {
	userRepo := repositories.NewUserRepository(db)
	otpRepo := repositories.NewOTPRepository(db)
	chatRepo := repositories.NewChatRepository(db)
	hospitalRepo := repositories.NewHospitalRepository(db)
	doctorRepo := repositories.NewDoctorRepository(doctorPool)

	for name, ensure := range map[string]func(context.Context) error{
		"users":         userRepo.EnsureIndexes,
		"otps":          otpRepo.EnsureIndexes,
		"chat_messages": chatRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return nil, fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}

	gateway, err := services.NewMessagingGateway(services.MessagingConfig{
		Provider:     cfg.WhatsAppProvider,
		ServiceURL:   cfg.WhatsAppServiceURL,
		AccountSID:   cfg.TwilioAccountSID,
		AuthToken:    cfg.TwilioAuthToken,
		WhatsAppFrom: cfg.TwilioWhatsAppFrom,
	})
	if err != nil {
		return nil, err
	}

	model, err := services.NewChatModel(ctx, services.LLMConfig{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
		Model:    cfg.LLMModel,
	})
	if err != nil {
		return nil, err
	}

	email := services.NewEmailService(services.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	tokens := services.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry)

	s := &Server{
		cfg:         cfg,
		db:          db,
		doctorPool:  doctorPool,
		tokens:      tokens,
		userService: services.NewUserService(userRepo, tokens, cfg.PhoneCountryCode),
		authService: services.NewAuthService(userRepo, tokens),
		otpService: services.NewOTPService(userRepo, otpRepo, gateway, email, tokens, services.OTPConfig{
			ExpiryMinutes: cfg.OTPExpiryMinutes,
			MaxAttempts:   cfg.OTPMaxAttempts,
			RateLimit:     cfg.OTPRateLimit,
			RateWindow:    cfg.OTPRateWindow,
			CountryCode:   cfg.PhoneCountryCode,
		}),
		hospitalService: services.NewHospitalService(hospitalRepo),
		chatService: services.NewChatService(chatRepo, hospitalRepo, doctorRepo, model, services.ChatConfig{
			ContextWindow: cfg.ChatContext,
			RequireAuth:   cfg.ChatRequireAuth,
			Temperature:   cfg.LLMTemperature,
			MaxTokens:     cfg.LLMMaxTokens,
			HospitalName:  cfg.HospitalName,
		}),
		apiLimiter:  middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		authLimiter: middlewares.NewWindowLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow),
	}

	services.InitializeGoth(services.GothConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		SessionKey:         cfg.SessionKey,
		BaseURL:            cfg.BaseURL,
		Secure:             cfg.IsProduction(),
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	return s, nil
}

func (s *Server) Start() error {
	log.Info().Int("port", s.cfg.Port).Str("env", s.cfg.Env).Msg("Starting server")
	return s.httpServer.ListenAndServe()
}

// GracefulShutdown blocks until SIGINT/SIGTERM, drains the HTTP server and
// signals done.
func (s *Server) GracefulShutdown(done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	go s.apiLimiter.Cleanup(cleanupCtx, time.Minute, 3*time.Minute)
	go s.authLimiter.Cleanup(cleanupCtx, time.Minute, s.cfg.AuthRateWindow)

	<-ctx.Done()
	stopCleanup()

	log.Info().Msg("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}

	log.Info().Msg("Server exiting")
	done <- true
}
