package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopfloor/backend/internal/domain"
	"github.com/shopfloor/backend/internal/middleware"
	"github.com/shopfloor/backend/internal/usecase"
)

type Handler struct {
	authUsecase *usecase.AuthUsecase
	userUsecase *usecase.UserUsecase
	loginEvents domain.LoginEventRepository
}

func NewHandler(auth *usecase.AuthUsecase, user *usecase.UserUsecase, loginEvents domain.LoginEventRepository) *Handler {
	return &Handler{
		authUsecase: auth,
		userUsecase: user,
		loginEvents: loginEvents,
	}
}

// recordLogin is best effort; a failed audit write never fails the login.
func (h *Handler) recordLogin(r *http.Request, userID int64) {
	if h.loginEvents == nil {
		return
	}
	h.loginEvents.Create(&domain.LoginEvent{
		UserID:    userID,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeValidationError(w http.ResponseWriter, verr *domain.ValidationError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
}

// Auth handlers

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (r *registerRequest) validate() error {
	fields := map[string]string{}
	if r.Email == "" {
		fields["email"] = "required"
	} else if !strings.Contains(r.Email, "@") {
		fields["email"] = "must be a valid email address"
	}
	if r.Password == "" {
		fields["password"] = "required"
	}
	return domain.NewValidationError(fields)
}

type authResponse struct {
	User   *domain.UserView  `json:"user"`
	Tokens *domain.TokenPair `json:"tokens"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		var verr *domain.ValidationError
		errors.As(err, &verr)
		writeValidationError(w, verr)
		return
	}

	user, err := h.userUsecase.Register(req.Email, req.Password, req.FirstName, req.LastName)
	if errors.Is(err, usecase.ErrEmailExists) {
		writeError(w, http.StatusConflict, "Email already exists")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	tokens, err := h.authUsecase.Login(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	view, err := h.userUsecase.View(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{User: view, Tokens: tokens})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginRequest) validate() error {
	fields := map[string]string{}
	if r.Email == "" {
		fields["email"] = "required"
	}
	if r.Password == "" {
		fields["password"] = "required"
	}
	return domain.NewValidationError(fields)
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Role         string `json:"role"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		var verr *domain.ValidationError
		errors.As(err, &verr)
		writeValidationError(w, verr)
		return
	}

	user, err := h.authUsecase.ValidateCredentials(req.Email, req.Password)
	if errors.Is(err, usecase.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to login")
		return
	}

	tokens, err := h.authUsecase.Login(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to login")
		return
	}

	view, err := h.userUsecase.View(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to login")
		return
	}

	h.recordLogin(r, user.ID)

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Role:         view.Role,
	})
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken := r.Header.Get("refresh_token")
	if refreshToken == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tokens, err := h.authUsecase.Refresh(refreshToken)
	if errors.Is(err, usecase.ErrSessionExpired) {
		writeError(w, http.StatusUnauthorized, "Session expired")
		return
	}
	if errors.Is(err, usecase.ErrInvalidToken) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to refresh token")
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authUsecase.Logout(req.RefreshToken); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to logout")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// User handlers

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userUsecase.GetByID(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	view, err := h.userUsecase.View(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userUsecase.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		var verr *domain.ValidationError
		errors.As(err, &verr)
		writeValidationError(w, verr)
		return
	}

	user, err := h.userUsecase.Register(req.Email, req.Password, req.FirstName, req.LastName)
	if errors.Is(err, usecase.ErrEmailExists) {
		writeError(w, http.StatusConflict, "Email already exists")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	view, err := h.userUsecase.View(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

type updateUserRequest struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (r *updateUserRequest) validate() error {
	fields := map[string]string{}
	if r.ID == 0 {
		fields["id"] = "required"
	}
	if r.Email == "" {
		fields["email"] = "required"
	} else if !strings.Contains(r.Email, "@") {
		fields["email"] = "must be a valid email address"
	}
	return domain.NewValidationError(fields)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		var verr *domain.ValidationError
		errors.As(err, &verr)
		writeValidationError(w, verr)
		return
	}

	user, err := h.userUsecase.Update(req.ID, req.Email, req.FirstName, req.LastName)
	if errors.Is(err, usecase.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	view, err := h.userUsecase.View(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type changePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (r *changePasswordRequest) validate() error {
	fields := map[string]string{}
	if r.NewPassword == "" {
		fields["new_password"] = "required"
	}
	return domain.NewValidationError(fields)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		var verr *domain.ValidationError
		errors.As(err, &verr)
		writeValidationError(w, verr)
		return
	}

	if err := h.userUsecase.ChangePassword(userID, req.NewPassword); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to change password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

type updateRoleRequest struct {
	UserID int64 `json:"user_id"`
	RoleID int64 `json:"role_id"`
}

func (r *updateRoleRequest) validate() error {
	fields := map[string]string{}
	if r.UserID == 0 {
		fields["user_id"] = "required"
	}
	if r.RoleID == 0 {
		fields["role_id"] = "required"
	}
	return domain.NewValidationError(fields)
}

func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		var verr *domain.ValidationError
		errors.As(err, &verr)
		writeValidationError(w, verr)
		return
	}

	err := h.userUsecase.UpdateRole(req.UserID, req.RoleID)
	if errors.Is(err, usecase.ErrRoleNotFound) {
		writeError(w, http.StatusNotFound, "Role not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update role")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Role updated"})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.userUsecase.Delete(userID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

func (h *Handler) ListLoginEvents(w http.ResponseWriter, r *http.Request) {
	if h.loginEvents == nil {
		writeJSON(w, http.StatusOK, []*domain.LoginEvent{})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	events, err := h.loginEvents.ListRecent(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list login events")
		return
	}
	if events == nil {
		events = []*domain.LoginEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
