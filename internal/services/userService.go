package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"hospitaldesk/internal/metrics"
	"hospitaldesk/internal/models"
	"hospitaldesk/internal/repositories"
	"hospitaldesk/internal/utils"
)

// UserService covers password accounts and sessions.
type UserService interface {
	RegisterUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	LoginUser(ctx context.Context, creds *models.Login) (*models.AuthResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, userID primitive.ObjectID) error
	GetUserProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	UpdateUserProfile(ctx context.Context, userID primitive.ObjectID, update *models.UserProfileUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, userID primitive.ObjectID) error
	CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error)
}

type userService struct {
	userRepo    repositories.UserRepository
	tokens      TokenService
	countryCode string
}

func NewUserService(userRepo repositories.UserRepository, tokens TokenService, countryCode string) UserService {
	return &userService{userRepo: userRepo, tokens: tokens, countryCode: countryCode}
}

func (s *userService) create(ctx context.Context, user *models.User, password string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password during registration")
		return nil, fmt.Errorf("failed to hash password")
	}
	user.Password = string(hashedPassword)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			log.Warn().Str("email", user.Email).Msg("Email or phone number already registered")
			return nil, ErrUserExists
		}
		return nil, err
	}
	return created, nil
}

func (s *userService) RegisterUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	log.Debug().Str("email", req.Email).Msg("Attempting to register user")

	user := &models.User{
		Email: req.Email,
		Name:  req.Name,
		DOB:   req.DOB,
		Role:  models.RoleUser,
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = utils.NormalizePhoneNumber(req.PhoneNumber, s.countryCode)
	}

	created, err := s.create(ctx, user, req.Password)
	if err != nil {
		return nil, err
	}

	metrics.NewUsersTotal.Inc()
	log.Info().Str("user_id", created.ID.Hex()).Str("email", created.Email).Msg("User registered successfully")
	return created, nil
}

func (s *userService) LoginUser(ctx context.Context, creds *models.Login) (*models.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	log.Debug().Str("email", email).Msg("Attempting user login")

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		log.Error().Err(err).Str("email", email).Msg("Error finding user for login")
		return nil, err
	}
	if user == nil || user.Password == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("password", "failed").Inc()
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		log.Warn().Str("email", email).Msg("Invalid credentials (password mismatch) during login attempt")
		metrics.LoginAttemptsTotal.WithLabelValues("password", "failed").Inc()
		return nil, ErrInvalidCredentials
	}

	result, err := issueSession(ctx, s.userRepo, s.tokens, user)
	if err != nil {
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("password", "success").Inc()
	log.Info().Str("user_id", user.ID.Hex()).Msg("User logged in successfully")
	return result, nil
}

// RefreshTokens rotates the pair. Only the most recently issued refresh
// token is accepted.
func (s *userService) RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.RefreshToken == "" || user.RefreshToken != refreshToken {
		log.Warn().Str("user_id", userID.Hex()).Msg("Refresh token does not match stored session")
		return nil, ErrInvalidRefreshToken
	}

	result, err := issueSession(ctx, s.userRepo, s.tokens, user)
	if err != nil {
		return nil, err
	}
	return &result.TokenPair, nil
}

func (s *userService) Logout(ctx context.Context, userID primitive.ObjectID) error {
	return s.userRepo.SetRefreshToken(ctx, userID, "")
}

func (s *userService) GetUserProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Failed to fetch user profile")
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) UpdateUserProfile(ctx context.Context, userID primitive.ObjectID, update *models.UserProfileUpdate) (*models.User, error) {
	fields := bson.M{}
	if update.Name != nil {
		fields["name"] = strings.TrimSpace(*update.Name)
	}
	if update.DOB != nil {
		fields["dob"] = *update.DOB
	}
	if update.PhoneNumber != nil {
		fields["phone_number"] = utils.NormalizePhoneNumber(*update.PhoneNumber, s.countryCode)
	}
	if len(fields) == 0 {
		return nil, ErrNoUpdateFields
	}

	result, err := s.userRepo.Update(ctx, userID, fields)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, ErrUserNotFound
	}

	return s.GetUserProfile(ctx, userID)
}

func (s *userService) DeleteUser(ctx context.Context, userID primitive.ObjectID) error {
	err := s.userRepo.SoftDelete(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (s *userService) CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	if email == "" || len(password) < 8 {
		return nil, fmt.Errorf("admin needs an email and a password of at least 8 characters")
	}
	if name == "" {
		name = "Administrator"
	}

	admin, err := s.create(ctx, &models.User{Email: email, Name: name, Role: models.RoleAdmin}, password)
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", admin.ID.Hex()).Str("email", admin.Email).Msg("Admin user created")
	return admin, nil
}
