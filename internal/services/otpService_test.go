package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hospitaldesk/internal/models"
)

const testPhone = "+628123456789"

type otpFixture struct {
	svc     *otpService
	users   *fakeUserRepo
	otps    *fakeOTPRepo
	gateway *fakeGateway
	email   *fakeEmail
	tokens  TokenService
	user    *models.User
	now     time.Time
	seq     int
}

func newOTPFixture(t *testing.T) *otpFixture {
	t.Helper()

	f := &otpFixture{
		users:   newFakeUserRepo(),
		otps:    &fakeOTPRepo{},
		gateway: &fakeGateway{},
		email:   &fakeEmail{},
		tokens:  NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour),
		now:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	user, err := f.users.Create(context.Background(), &models.User{
		Email:       "rina@example.com",
		Name:        "Rina",
		PhoneNumber: testPhone,
	})
	require.NoError(t, err)
	f.user = user

	cfg := OTPConfig{ExpiryMinutes: 5, MaxAttempts: 3, RateLimit: 3, RateWindow: 10 * time.Minute, CountryCode: "62"}
	f.svc = NewOTPService(f.users, f.otps, f.gateway, f.email, f.tokens, cfg).(*otpService)
	f.svc.now = func() time.Time { return f.now }
	f.svc.generate = func() (string, error) {
		f.seq++
		return fmt.Sprintf("%06d", 100000+f.seq), nil
	}
	return f
}

// lastCode is the code most recently handed to the generator.
func (f *otpFixture) lastCode() string {
	return fmt.Sprintf("%06d", 100000+f.seq)
}

func TestOTPService_NormalizePhoneNumber(t *testing.T) {
	f := newOTPFixture(t)
	for _, in := range []string{"08123456789", "628123456789", "+628123456789", "8123456789", "0812-3456 789"} {
		assert.Equal(t, testPhone, f.svc.NormalizePhoneNumber(in), in)
	}
}

func TestOTPService_RequestCode(t *testing.T) {
	ctx := context.Background()

	t.Run("sends the code to the normalized number", func(t *testing.T) {
		f := newOTPFixture(t)

		expiresIn, err := f.svc.RequestCode(ctx, "0812-3456-789")
		require.NoError(t, err)
		assert.Equal(t, 300, expiresIn)

		require.Len(t, f.gateway.sent, 1)
		assert.Equal(t, testPhone, f.gateway.sent[0].to)
		assert.Contains(t, f.gateway.sent[0].body, f.lastCode())

		stored := f.otps.all()
		require.Len(t, stored, 1)
		assert.Equal(t, f.now.Add(5*time.Minute), stored[0].ExpiresAt)
		assert.Equal(t, models.OTPPurposeLogin, stored[0].Purpose)
	})

	t.Run("unknown number", func(t *testing.T) {
		f := newOTPFixture(t)

		_, err := f.svc.RequestCode(ctx, "081299999999")
		assert.ErrorIs(t, err, ErrNotRegistered)
		assert.Empty(t, f.gateway.sent)
		assert.Empty(t, f.otps.all())
	})

	t.Run("fourth request in the window is rate limited", func(t *testing.T) {
		f := newOTPFixture(t)

		for i := 0; i < 3; i++ {
			_, err := f.svc.RequestCode(ctx, testPhone)
			require.NoError(t, err)
			f.now = f.now.Add(time.Minute)
		}

		_, err := f.svc.RequestCode(ctx, testPhone)
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Len(t, f.gateway.sent, 3)

		f.now = f.now.Add(10 * time.Minute)
		_, err = f.svc.RequestCode(ctx, testPhone)
		assert.NoError(t, err)
	})

	t.Run("gateway failure is returned", func(t *testing.T) {
		f := newOTPFixture(t)
		f.gateway.err = errors.New("bridge offline")

		_, err := f.svc.RequestCode(ctx, testPhone)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bridge offline")
	})
}

func TestOTPService_VerifyCode(t *testing.T) {
	ctx := context.Background()

	t.Run("correct code logs the user in once", func(t *testing.T) {
		f := newOTPFixture(t)
		_, err := f.svc.RequestCode(ctx, testPhone)
		require.NoError(t, err)
		code := f.lastCode()

		result, err := f.svc.VerifyCode(ctx, "08123456789", code)
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, result.User.ID)
		assert.NotEmpty(t, result.AccessToken)

		claims, err := f.tokens.ValidateAccessToken(result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, f.user.ID.Hex(), claims.UserID)
		assert.Equal(t, models.RoleUser, claims.Role)

		stored, _ := f.users.FindByID(ctx, f.user.ID)
		assert.Equal(t, result.RefreshToken, stored.RefreshToken)

		_, err = f.svc.VerifyCode(ctx, testPhone, code)
		assert.ErrorIs(t, err, ErrInvalidOrExpired)
	})

	t.Run("reissue invalidates the previous code", func(t *testing.T) {
		f := newOTPFixture(t)
		_, err := f.svc.RequestCode(ctx, testPhone)
		require.NoError(t, err)
		first := f.lastCode()

		_, err = f.svc.RequestCode(ctx, testPhone)
		require.NoError(t, err)
		second := f.lastCode()

		_, err = f.svc.VerifyCode(ctx, testPhone, first)
		assert.ErrorIs(t, err, ErrInvalidOrExpired)

		_, err = f.svc.VerifyCode(ctx, testPhone, second)
		assert.NoError(t, err)
	})

	t.Run("three misses exhaust the code", func(t *testing.T) {
		f := newOTPFixture(t)
		_, err := f.svc.RequestCode(ctx, testPhone)
		require.NoError(t, err)
		code := f.lastCode()

		for i := 0; i < 3; i++ {
			_, err := f.svc.VerifyCode(ctx, testPhone, "999999")
			assert.ErrorIs(t, err, ErrInvalidOrExpired)
		}

		_, err = f.svc.VerifyCode(ctx, testPhone, code)
		assert.ErrorIs(t, err, ErrTooManyAttempts)

		_, err = f.svc.VerifyCode(ctx, testPhone, code)
		assert.ErrorIs(t, err, ErrInvalidOrExpired)
	})

	t.Run("misses count against every active code", func(t *testing.T) {
		f := newOTPFixture(t)
		_, err := f.svc.RequestCode(ctx, testPhone)
		require.NoError(t, err)

		_, err = f.svc.VerifyCode(ctx, testPhone, "999999")
		require.ErrorIs(t, err, ErrInvalidOrExpired)

		stored := f.otps.all()
		require.Len(t, stored, 1)
		assert.Equal(t, 1, stored[0].Attempts)
	})

	t.Run("expired code", func(t *testing.T) {
		f := newOTPFixture(t)
		_, err := f.svc.RequestCode(ctx, testPhone)
		require.NoError(t, err)

		f.now = f.now.Add(5*time.Minute + time.Second)
		_, err = f.svc.VerifyCode(ctx, testPhone, f.lastCode())
		assert.ErrorIs(t, err, ErrInvalidOrExpired)
	})

	t.Run("number unlinked after request", func(t *testing.T) {
		f := newOTPFixture(t)
		_, err := f.svc.RequestCode(ctx, testPhone)
		require.NoError(t, err)
		require.NoError(t, f.users.SoftDelete(ctx, f.user.ID))

		_, err = f.svc.VerifyCode(ctx, testPhone, f.lastCode())
		assert.ErrorIs(t, err, ErrNotRegistered)
	})
}

func TestOTPService_PasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("reset replaces the password and ends sessions", func(t *testing.T) {
		f := newOTPFixture(t)
		require.NoError(t, f.users.SetRefreshToken(ctx, f.user.ID, "old-refresh"))

		expiresIn, err := f.svc.RequestPasswordReset(ctx, "rina@example.com")
		require.NoError(t, err)
		assert.Equal(t, 300, expiresIn)
		require.Len(t, f.email.sent, 1)
		assert.Contains(t, f.email.sent[0].body, f.lastCode())
		assert.Empty(t, f.gateway.sent)

		require.NoError(t, f.svc.ResetPassword(ctx, "rina@example.com", f.lastCode(), "n3w-passw0rd"))

		stored, _ := f.users.FindByID(ctx, f.user.ID)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("n3w-passw0rd")))
		assert.Empty(t, stored.RefreshToken)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newOTPFixture(t)
		_, err := f.svc.RequestPasswordReset(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("login code cannot reset a password", func(t *testing.T) {
		f := newOTPFixture(t)
		_, err := f.svc.RequestCode(ctx, testPhone)
		require.NoError(t, err)

		err = f.svc.ResetPassword(ctx, "rina@example.com", f.lastCode(), "n3w-passw0rd")
		assert.ErrorIs(t, err, ErrInvalidOrExpired)
	})
}
