package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/rs/zerolog/log"

	"hospitaldesk/internal/metrics"
	"hospitaldesk/internal/models"
	"hospitaldesk/internal/repositories"
)

const MaxAge = 86400 * 30

// AuthService signs in users coming back from an OAuth provider.
type AuthService interface {
	HandleLogin(ctx context.Context, u goth.User) (*models.AuthResult, error)
}

type authService struct {
	userRepo repositories.UserRepository
	tokens   TokenService
}

func NewAuthService(userRepo repositories.UserRepository, tokens TokenService) AuthService {
	return &authService{userRepo: userRepo, tokens: tokens}
}

type GothConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	SessionKey         string
	BaseURL            string
	Secure             bool
}

// InitializeGoth registers the OAuth providers. It is a no-op when no
// Google credentials are configured.
func InitializeGoth(cfg GothConfig) {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		log.Info().Msg("Google OAuth not configured, skipping Goth setup")
		return
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionKey))
	store.MaxAge(MaxAge)

	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.Secure
	store.Options.SameSite = http.SameSiteLaxMode

	gothic.Store = store

	callback := strings.TrimRight(cfg.BaseURL, "/") + "/api/auth/oauth/google/callback"
	goth.UseProviders(
		google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, callback, "email", "profile"),
	)
	log.Info().Msg("Goth providers initialized")
}

func (a *authService) HandleLogin(ctx context.Context, u goth.User) (*models.AuthResult, error) {
	log.Info().Str("email", u.Email).Msg("Attempting to handle login for user")
	if u.Email == "" {
		log.Error().Msg("Missing email in Goth user data")
		return nil, errors.New("missing email")
	}

	email := strings.ToLower(u.Email)
	user, err := a.userRepo.FindByEmail(ctx, email)
	if err != nil {
		log.Error().Err(err).Str("email", email).Msg("Error finding user by email")
		return nil, err
	}

	if user == nil {
		log.Info().Str("email", email).Msg("User not found, creating new user")
		name := u.Name
		if name == "" {
			name = u.NickName
		}
		user, err = a.userRepo.Create(ctx, &models.User{
			Email: email,
			Name:  name,
			Role:  models.RoleUser,
		})
		if err != nil {
			log.Error().Err(err).Str("email", email).Msg("Error creating new user")
			return nil, err
		}
		metrics.NewUsersTotal.Inc()
	}

	result, err := issueSession(ctx, a.userRepo, a.tokens, user)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("oauth", "failed").Inc()
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("oauth", "success").Inc()
	log.Info().Str("user_id", user.ID.Hex()).Msg("OAuth login completed")
	return result, nil
}
