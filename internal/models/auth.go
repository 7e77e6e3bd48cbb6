package models

import "time"

type RegisterRequest struct {
	Email       string     `json:"email" validate:"required,email"`
	Password    string     `json:"password" validate:"required,min=8,max=72"`
	Name        string     `json:"name" validate:"required,min=2,max=100"`
	DOB         *time.Time `json:"dob,omitempty"`
	PhoneNumber string     `json:"phone_number,omitempty" validate:"omitempty,min=8,max=20"`
}

type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type RequestOTPRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,min=8,max=20"`
}

type RequestOTPResponse struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,min=8,max=20"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is what a successful login of any kind returns.
type AuthResult struct {
	User *User `json:"user"`
	TokenPair
}
