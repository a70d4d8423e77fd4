package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"RIDESHARE_BACK-END/internal/config"
	"RIDESHARE_BACK-END/internal/dto"
	"RIDESHARE_BACK-END/internal/middleware"
	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/repository"
	"RIDESHARE_BACK-END/internal/utils"
)

// UserRepository is the account storage used by the auth and user handlers.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	LinkGoogle(ctx context.Context, id uuid.UUID, googleID string, picture *string) error
	Update(ctx context.Context, id uuid.UUID, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TripLister resolves a user's trip list.
type TripLister interface {
	UserTrips(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	users  UserRepository
	trips  TripLister
	jwt    *config.JWTConfig
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(users UserRepository, trips TripLister, jwtCfg *config.JWTConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, trips: trips, jwt: jwtCfg, logger: logger}
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a new user account with username, email, and password
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "User registration data"
// @Success 201 {object} dto.AuthResponse "User created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 409 {object} dto.ErrorResponse "User already exists"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Missing required fields", "Username, email, and password are required")
		return
	}
	if !strings.Contains(req.Email, "@") {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "email is invalid")
		return
	}
	if len(req.Password) < 6 {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", "password must be at least 6 characters")
		return
	}

	var dob *time.Time
	if req.DateOfBirth != nil && *req.DateOfBirth != "" {
		parsed, err := utils.ParseDate(*req.DateOfBirth)
		if err != nil {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid date of birth format", "Use YYYY-MM-DD format")
			return
		}
		dob = &parsed
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		ProfilePic:   req.ProfilePic,
		DateOfBirth:  dob,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			utils.WriteErrorResponse(w, http.StatusConflict, "User already exists", "Email already registered")
			return
		}
		writeError(w, h.logger, err)
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, h.jwt)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)
	utils.WriteJSONResponse(w, http.StatusCreated, dto.AuthResponse{
		User:  toUserResponse(user, nil, true),
		Token: token,
	})
}

// Login handles user login
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.AuthResponse "Login successful"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	if req.Email == "" || req.Password == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Missing required fields", "Email and password are required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid credentials", "Email or password is incorrect")
			return
		}
		writeError(w, h.logger, err)
		return
	}

	// Google-only accounts have no password hash and cannot log in this way.
	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid credentials", "Email or password is incorrect")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, h.jwt)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.AuthResponse{
		User:  toUserResponse(user, nil, true),
		Token: token,
	})
}

// Me returns the current user's account together with their trip list
// @Summary Get current user
// @Description Get the authenticated user's account and trip ids
// @Tags authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserResponse "User retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/users/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	trips, err := h.trips.UserTrips(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, toUserResponse(user, trips, true))
}

// toUserResponse converts a user; the email is only shown to its owner.
func toUserResponse(u *models.User, trips []uuid.UUID, withEmail bool) dto.UserResponse {
	resp := dto.UserResponse{
		ID:         u.ID.String(),
		Username:   u.Username,
		ProfilePic: u.ProfilePic,
		CreatedAt:  utils.FormatTimestamp(u.CreatedAt),
		UpdatedAt:  utils.FormatTimestamp(u.UpdatedAt),
	}
	if withEmail {
		resp.Email = u.Email
	}
	if u.DateOfBirth != nil {
		s := utils.FormatDate(*u.DateOfBirth)
		resp.DateOfBirth = &s
	}
	if trips != nil {
		resp.Trips = uuidStrings(trips)
	}
	return resp
}
