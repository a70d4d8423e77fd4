package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleOAuth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"RIDESHARE_BACK-END/internal/config"
	"RIDESHARE_BACK-END/internal/dto"
	"RIDESHARE_BACK-END/internal/middleware"
	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/repository"
	"RIDESHARE_BACK-END/internal/utils"
)

const stateCookie = "oauth_state"

// GoogleAuthHandler handles Google OAuth authentication
type GoogleAuthHandler struct {
	users        UserRepository
	oauth2Config *oauth2.Config
	jwt          *config.JWTConfig
	frontendURL  string
	logger       *slog.Logger

	// userInfo is swapped in tests.
	userInfo func(ctx context.Context, token *oauth2.Token) (*dto.GoogleUserInfo, error)
}

// NewGoogleAuthHandler creates a new GoogleAuthHandler instance
func NewGoogleAuthHandler(users UserRepository, cfg *config.Config, logger *slog.Logger) *GoogleAuthHandler {
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.GoogleOAuth.ClientID,
		ClientSecret: cfg.GoogleOAuth.ClientSecret,
		RedirectURL:  cfg.GoogleOAuth.RedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	return &GoogleAuthHandler{
		users:        users,
		oauth2Config: oauth2Config,
		jwt:          &cfg.JWT,
		frontendURL:  cfg.GoogleOAuth.FrontendURL,
		logger:       logger,
		userInfo:     fetchGoogleUserInfo,
	}
}

// GoogleLogin initiates Google OAuth login
// @Summary Google OAuth login
// @Description Initiate Google OAuth login flow
// @Tags authentication
// @Produce json
// @Success 200 {object} dto.GoogleLoginResponse "Google OAuth URL"
// @Router /api/auth/google/login [get]
func (h *GoogleAuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	authURL := h.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	utils.WriteJSONResponse(w, http.StatusOK, dto.GoogleLoginResponse{AuthURL: authURL, State: state})
}

// GoogleCallback handles Google OAuth callback
// @Summary Google OAuth callback
// @Description Handle Google OAuth callback with authorization code
// @Tags authentication
// @Param code query string true "Authorization code from Google"
// @Param state query string true "State returned by GoogleLogin"
// @Success 302 "Redirect to the frontend with the token"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Invalid authorization code"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/google/callback [get]
func (h *GoogleAuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Missing authorization code", "Authorization code is required")
		return
	}
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid state", "OAuth state does not match")
		return
	}

	token, err := h.oauth2Config.Exchange(r.Context(), code)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid authorization code", err.Error())
		return
	}

	info, err := h.userInfo(r.Context(), token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.resolveUser(r.Context(), info)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	jwtToken, err := middleware.GenerateToken(user.ID, user.Email, h.jwt)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	q := url.Values{}
	q.Set("token", jwtToken)
	q.Set("user_id", user.ID.String())
	q.Set("provider", "google")
	http.Redirect(w, r, h.frontendURL+"?"+q.Encode(), http.StatusFound)
}

// resolveUser finds the account for a Google identity: by Google id first,
// then by email (linking the two), else a new account is created.
func (h *GoogleAuthHandler) resolveUser(ctx context.Context, info *dto.GoogleUserInfo) (*models.User, error) {
	user, err := h.users.GetByGoogleID(ctx, info.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	var picture *string
	if info.Picture != "" {
		picture = &info.Picture
	}

	user, err = h.users.GetByEmail(ctx, strings.ToLower(info.Email))
	switch {
	case err == nil:
		if err := h.users.LinkGoogle(ctx, user.ID, info.ID, picture); err != nil {
			return nil, err
		}
		return user, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	username := info.Name
	if username == "" {
		username, _, _ = strings.Cut(info.Email, "@")
	}
	if len(username) > 50 {
		username = username[:50]
	}
	googleID := info.ID
	now := time.Now().UTC()
	user = &models.User{
		ID:         uuid.New(),
		Username:   username,
		Email:      strings.ToLower(info.Email),
		GoogleID:   &googleID,
		ProfilePic: picture,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.users.Create(ctx, user); err != nil {
		return nil, err
	}
	h.logger.Info("user created from google login", "user_id", user.ID)
	return user, nil
}

func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*dto.GoogleUserInfo, error) {
	service, err := googleOAuth2.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, err
	}

	userInfo, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	verified := false
	if userInfo.VerifiedEmail != nil {
		verified = *userInfo.VerifiedEmail
	}

	return &dto.GoogleUserInfo{
		ID:       userInfo.Id,
		Email:    userInfo.Email,
		Name:     userInfo.Name,
		Picture:  userInfo.Picture,
		Verified: verified,
	}, nil
}
