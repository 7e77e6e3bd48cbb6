package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"hospitaldesk/internal/metrics"
	"hospitaldesk/internal/models"
	"hospitaldesk/internal/repositories"
	"hospitaldesk/internal/utils"
)

const otpMessageTemplate = "%s\n\n*Kode OTP*\nKode ini berlaku selama %d menit. Jangan bagikan kode ini kepada siapapun."

type OTPConfig struct {
	ExpiryMinutes int
	MaxAttempts   int
	RateLimit     int
	RateWindow    time.Duration
	CountryCode   string
}

// OTPService issues and verifies one-time codes. Login codes go out over
// WhatsApp and are keyed by phone number; password-reset codes go out by
// email and are keyed by address. Both follow the same rules: one active
// code per subject, a per-window issuance cap, and a cap on failed attempts.
type OTPService interface {
	NormalizePhoneNumber(phone string) string
	RequestCode(ctx context.Context, phone string) (int, error)
	VerifyCode(ctx context.Context, phone, code string) (*models.AuthResult, error)
	RequestPasswordReset(ctx context.Context, email string) (int, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

type otpService struct {
	userRepo repositories.UserRepository
	otpRepo  repositories.OTPRepository
	gateway  MessagingGateway
	email    EmailService
	tokens   TokenService
	cfg      OTPConfig
	now      func() time.Time
	generate func() (string, error)
}

func NewOTPService(
	userRepo repositories.UserRepository,
	otpRepo repositories.OTPRepository,
	gateway MessagingGateway,
	email EmailService,
	tokens TokenService,
	cfg OTPConfig,
) OTPService {
	return &otpService{
		userRepo: userRepo,
		otpRepo:  otpRepo,
		gateway:  gateway,
		email:    email,
		tokens:   tokens,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		generate: utils.GenerateOTPCode,
	}
}

func (s *otpService) NormalizePhoneNumber(phone string) string {
	return utils.NormalizePhoneNumber(phone, s.cfg.CountryCode)
}

// issue runs the shared issuance steps for a subject: rate limit, invalidate
// the previous code, store a fresh one. The caller delivers it.
func (s *otpService) issue(ctx context.Context, subject models.OTPSubject) (*models.OTP, error) {
	now := s.now()

	count, err := s.otpRepo.CountSince(ctx, subject, now.Add(-s.cfg.RateWindow))
	if err != nil {
		return nil, err
	}
	if count >= int64(s.cfg.RateLimit) {
		log.Warn().Str("subject", subject.String()).Int64("recent", count).Msg("OTP rate limit reached")
		metrics.OTPRequestsTotal.WithLabelValues(string(subject.Purpose), "rate_limited").Inc()
		return nil, ErrRateLimited
	}

	if _, err := s.otpRepo.InvalidateActive(ctx, subject, now); err != nil {
		return nil, err
	}

	code, err := s.generate()
	if err != nil {
		return nil, err
	}

	return s.otpRepo.Create(ctx, &models.OTP{
		PhoneNumber: subject.PhoneNumber,
		Email:       subject.Email,
		Purpose:     subject.Purpose,
		Code:        code,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(s.cfg.ExpiryMinutes) * time.Minute),
	})
}

// consume atomically uses the matching active code. Failed matches count
// against every active code of the subject.
func (s *otpService) consume(ctx context.Context, subject models.OTPSubject, code string) error {
	now := s.now()

	otp, err := s.otpRepo.ConsumeActive(ctx, subject, code, now)
	if err != nil {
		metrics.OTPVerificationsTotal.WithLabelValues(string(subject.Purpose), "error").Inc()
		return err
	}

	if otp == nil {
		if _, err := s.otpRepo.IncrementActiveAttempts(ctx, subject, now); err != nil {
			log.Error().Err(err).Str("subject", subject.String()).Msg("Failed to record OTP attempt")
		}
		metrics.OTPVerificationsTotal.WithLabelValues(string(subject.Purpose), "invalid").Inc()
		return ErrInvalidOrExpired
	}

	// The code is already consumed here; an exhausted code stays used.
	if otp.Attempts >= s.cfg.MaxAttempts {
		log.Warn().Str("subject", subject.String()).Int("attempts", otp.Attempts).Msg("OTP attempts exhausted")
		metrics.OTPVerificationsTotal.WithLabelValues(string(subject.Purpose), "too_many_attempts").Inc()
		return ErrTooManyAttempts
	}

	metrics.OTPVerificationsTotal.WithLabelValues(string(subject.Purpose), "success").Inc()
	return nil
}

func (s *otpService) RequestCode(ctx context.Context, phone string) (int, error) {
	phone = s.NormalizePhoneNumber(phone)
	subject := models.PhoneLogin(phone)

	user, err := s.userRepo.FindByPhoneNumber(ctx, phone)
	if err != nil {
		metrics.OTPRequestsTotal.WithLabelValues(string(subject.Purpose), "error").Inc()
		return 0, err
	}
	if user == nil {
		metrics.OTPRequestsTotal.WithLabelValues(string(subject.Purpose), "not_registered").Inc()
		return 0, ErrNotRegistered
	}

	otp, err := s.issue(ctx, subject)
	if err != nil {
		return 0, err
	}

	body := fmt.Sprintf(otpMessageTemplate, otp.Code, s.cfg.ExpiryMinutes)
	if err := s.gateway.SendMessage(ctx, phone, body); err != nil {
		metrics.OTPRequestsTotal.WithLabelValues(string(subject.Purpose), "error").Inc()
		return 0, fmt.Errorf("failed to send OTP: %w", err)
	}

	metrics.OTPRequestsTotal.WithLabelValues(string(subject.Purpose), "sent").Inc()
	log.Info().Str("user_id", user.ID.Hex()).Msg("Login OTP sent")
	return s.cfg.ExpiryMinutes * 60, nil
}

func (s *otpService) VerifyCode(ctx context.Context, phone, code string) (*models.AuthResult, error) {
	phone = s.NormalizePhoneNumber(phone)

	if err := s.consume(ctx, models.PhoneLogin(phone), code); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("otp", "failed").Inc()
		return nil, err
	}

	user, err := s.userRepo.FindByPhoneNumber(ctx, phone)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotRegistered
	}

	result, err := issueSession(ctx, s.userRepo, s.tokens, user)
	if err != nil {
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("otp", "success").Inc()
	log.Info().Str("user_id", user.ID.Hex()).Msg("User logged in with OTP")
	return result, nil
}

func (s *otpService) RequestPasswordReset(ctx context.Context, email string) (int, error) {
	subject := models.EmailReset(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if user == nil {
		metrics.OTPRequestsTotal.WithLabelValues(string(subject.Purpose), "not_registered").Inc()
		return 0, ErrUserNotFound
	}

	otp, err := s.issue(ctx, subject)
	if err != nil {
		return 0, err
	}

	body := fmt.Sprintf("Kode reset kata sandi Anda adalah <b>%s</b>. Kode ini berlaku selama %d menit.", otp.Code, s.cfg.ExpiryMinutes)
	if err := s.email.SendEmail(email, "Reset Kata Sandi", body); err != nil {
		metrics.OTPRequestsTotal.WithLabelValues(string(subject.Purpose), "error").Inc()
		return 0, fmt.Errorf("failed to send OTP: %w", err)
	}

	metrics.OTPRequestsTotal.WithLabelValues(string(subject.Purpose), "sent").Inc()
	return s.cfg.ExpiryMinutes * 60, nil
}

// ResetPassword also ends every session of the user.
func (s *otpService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := s.consume(ctx, models.EmailReset(email), code); err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err := s.userRepo.Update(ctx, user.ID, bson.M{"password": string(hashed)}); err != nil {
		return err
	}
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, ""); err != nil {
		return err
	}

	log.Info().Str("user_id", user.ID.Hex()).Msg("Password reset")
	return nil
}
