package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"quizgo/internal/auth"
	"quizgo/internal/config"
	"quizgo/internal/db"
	"quizgo/internal/logger"
	"quizgo/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleOAuthConfig returns nil when Google login is not configured.
func GoogleOAuthConfig(cfg config.GoogleOAuthConfig) *oauth2.Config {
	if !cfg.Enabled() {
		return nil
	}
	return &oauth2.Config{
		RedirectURL:  cfg.RedirectURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// HandleGoogleLogin starts the Google OAuth flow.
func (h *Handler) HandleGoogleLogin(c *gin.Context) {
	if h.OauthConfig == nil {
		h.fail(c, "Google Login", fmt.Errorf("%w: Google login is not configured", errNotFound))
		return
	}

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		h.fail(c, "Google Login", fmt.Errorf("failed to generate state: %w", err))
		return
	}
	state := base64.URLEncoding.EncodeToString(stateBytes)

	session := sessions.Default(c)
	session.Set(OauthStateSessionKey, state)
	if err := session.Save(); err != nil {
		h.fail(c, "Google Login", fmt.Errorf("failed to save session: %w", err))
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.OauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

// HandleGoogleCallback finishes the flow, creating a student account on first
// login.
func (h *Handler) HandleGoogleCallback(c *gin.Context) {
	if h.OauthConfig == nil {
		h.fail(c, "Google Callback", fmt.Errorf("%w: Google login is not configured", errNotFound))
		return
	}
	ctx := c.Request.Context()
	log := logger.WithContext(ctx)

	session := sessions.Default(c)
	expected, _ := session.Get(OauthStateSessionKey).(string)
	state := c.Query("state")
	if state == "" || expected == "" || state != expected {
		h.fail(c, "Google Callback", fmt.Errorf("%w: invalid state parameter", errUnauthorized))
		return
	}

	token, err := h.OauthConfig.Exchange(ctx, c.Query("code"))
	if err != nil {
		h.fail(c, "Google Callback", fmt.Errorf("failed to exchange code: %w", err))
		return
	}
	if !token.Valid() {
		h.fail(c, "Google Callback", fmt.Errorf("%w: retrieved invalid token", errUnauthorized))
		return
	}

	svc, err := oauth2api.NewService(ctx, option.WithHTTPClient(h.OauthConfig.Client(ctx, token)))
	if err != nil {
		h.fail(c, "Google Callback", fmt.Errorf("failed to create OAuth2 service: %w", err))
		return
	}
	info, err := svc.Userinfo.V2.Me.Get().Context(ctx).Do()
	if err != nil {
		h.fail(c, "Google Callback", fmt.Errorf("failed to get user info: %w", err))
		return
	}

	email := strings.ToLower(strings.TrimSpace(info.Email))
	user, err := h.DB.Queries.GetUserByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		hash, herr := auth.UnusableHash()
		if herr != nil {
			h.fail(c, "Google Callback", herr)
			return
		}
		name := info.Name
		if name == "" {
			name = email
		}
		user, err = h.DB.Queries.CreateUser(ctx, db.CreateUserParams{
			Email:        email,
			Name:         name,
			PasswordHash: hash,
			Role:         models.RoleStudent,
		})
		if err == nil {
			log.WithField("user_id", user.ID).Info("Created account from Google login")
		}
	}
	if err != nil {
		h.fail(c, "Google Callback", err)
		return
	}

	session.Delete(OauthStateSessionKey)
	session.Set(UserSessionKey, sessionUser(user))
	if err := session.Save(); err != nil {
		h.fail(c, "Google Callback", fmt.Errorf("failed to save session: %w", err))
		return
	}

	target := h.FrontendURL
	if target == "" {
		target = "/"
	}
	c.Redirect(http.StatusTemporaryRedirect, target)
}
