package services

import "errors"

var (
	ErrNotRegistered       = errors.New("phone number is not registered")
	ErrRateLimited         = errors.New("too many OTP requests, please try again later")
	ErrInvalidOrExpired    = errors.New("invalid or expired OTP")
	ErrTooManyAttempts     = errors.New("too many failed attempts, please request a new OTP")
	ErrUnauthenticated     = errors.New("authentication required")
	ErrUnknownFunction     = errors.New("unknown function")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")

	ErrUserExists          = errors.New("email or phone number already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUserNotFound        = errors.New("user not found")
	ErrHospitalNotFound    = errors.New("hospital not found")
	ErrForbidden           = errors.New("insufficient permissions")
	ErrNoUpdateFields      = errors.New("no valid fields provided for update")
)
