package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/markbates/goth/gothic"
	"github.com/rs/zerolog/log"

	"hospitaldesk/internal/models"
	"hospitaldesk/internal/services"
	"hospitaldesk/internal/utils"
)

type AuthHandler struct {
	authService services.AuthService
	otpService  services.OTPService
}

func NewAuthHandler(authService services.AuthService, otpService services.OTPService) *AuthHandler {
	return &AuthHandler{authService: authService, otpService: otpService}
}

func (a *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req models.RequestOTPRequest
	if !utils.DecodeAndValidate(w, r, &req) {
		return
	}

	expiresIn, err := a.otpService.RequestCode(r.Context(), req.PhoneNumber)
	if err != nil {
		respondWithServiceError(w, err, "request_otp")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, models.RequestOTPResponse{
		Message:   "OTP sent via WhatsApp",
		ExpiresIn: expiresIn,
	})
}

func (a *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if !utils.DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := a.otpService.VerifyCode(r.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		respondWithServiceError(w, err, "verify_otp")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Login successful", result)
}

// ForgotPassword answers the same way whether or not the email exists.
func (a *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if !utils.DecodeAndValidate(w, r, &req) {
		return
	}

	expiresIn, err := a.otpService.RequestPasswordReset(r.Context(), req.Email)
	if err != nil && statusForError(err) != http.StatusNotFound {
		respondWithServiceError(w, err, "forgot_password")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, models.RequestOTPResponse{
		Message:   "If the email is registered, a reset code has been sent",
		ExpiresIn: expiresIn,
	})
}

func (a *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if !utils.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := a.otpService.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		respondWithServiceError(w, err, "reset_password")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Password has been reset", nil)
}

func (a *AuthHandler) ProviderAuth(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	if provider == "" {
		log.Error().Msg("Provider not specified in URL")
		utils.SendJSONError(w, "Provider not specified", http.StatusBadRequest)
		return
	}

	log.Info().Str("provider", provider).Msg("Initiating authentication with provider")
	gothic.BeginAuthHandler(w, gothic.GetContextWithProvider(r, provider))
}

func (a *AuthHandler) ProviderCallback(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	log.Info().Str("provider", provider).Msg("Provider callback initiated")

	pUser, err := gothic.CompleteUserAuth(w, gothic.GetContextWithProvider(r, provider))
	if err != nil {
		log.Error().Err(err).Msg("Error completing user authentication")
		utils.SendJSONError(w, "Authentication failed. Please try again.", http.StatusUnauthorized)
		return
	}

	result, err := a.authService.HandleLogin(r.Context(), pUser)
	if err != nil {
		log.Error().Err(err).Msg("Error handling login after provider authentication")
		utils.SendJSONError(w, "Authentication failed. Please try again.", http.StatusUnauthorized)
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Login successful", result)
}
