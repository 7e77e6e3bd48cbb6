package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hospitaldesk/internal/middlewares"
	"hospitaldesk/internal/models"
	"hospitaldesk/internal/services"
	"hospitaldesk/internal/utils"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// currentUserID reads the authenticated user from the request. It writes a
// 401 and returns false when there is none.
func currentUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	userIDStr := middlewares.UserIDFromContext(r.Context())
	userID, err := primitive.ObjectIDFromHex(userIDStr)
	if err != nil {
		log.Warn().Str("user_id_str", userIDStr).Msg("Missing or malformed user id in request context")
		utils.SendJSONError(w, services.ErrUnauthenticated.Error(), http.StatusUnauthorized)
		return primitive.NilObjectID, false
	}
	return userID, true
}

func (u *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !utils.DecodeAndValidate(w, r, &req) {
		return
	}

	user, err := u.userService.RegisterUser(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, err, "register")
		return
	}

	utils.RespondWithMessage(w, http.StatusCreated, "Registration successful", user)
}

func (u *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Login
	if !utils.DecodeAndValidate(w, r, &creds) {
		return
	}

	result, err := u.userService.LoginUser(r.Context(), &creds)
	if err != nil {
		respondWithServiceError(w, err, "login")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Login successful", result)
}

func (u *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !utils.DecodeAndValidate(w, r, &req) {
		return
	}

	pair, err := u.userService.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		respondWithServiceError(w, err, "refresh_token")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, pair)
}

func (u *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	if err := u.userService.Logout(r.Context(), userID); err != nil {
		respondWithServiceError(w, err, "logout")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Logout successful", nil)
}

func (u *UserHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	user, err := u.userService.GetUserProfile(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, "get_profile")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, user)
}

func (u *UserHandler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var update models.UserProfileUpdate
	if !utils.DecodeAndValidate(w, r, &update) {
		return
	}

	user, err := u.userService.UpdateUserProfile(r.Context(), userID, &update)
	if err != nil {
		respondWithServiceError(w, err, "update_profile")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, user)
}

func (u *UserHandler) DeleteMyAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	if err := u.userService.DeleteUser(r.Context(), userID); err != nil {
		respondWithServiceError(w, err, "delete_account")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
