package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"quizgo/internal/auth"
	"quizgo/internal/db"
	"quizgo/internal/logger"
	"quizgo/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=teacher student"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

func sessionUser(u models.User) SessionUser {
	return SessionUser{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// startSession stores u in a fresh session.
func startSession(c *gin.Context, u models.User) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(UserSessionKey, sessionUser(u))
	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// HandleSignup creates an account and signs it in.
func (h *Handler) HandleSignup(c *gin.Context) {
	var req SignupRequest
	if !h.bindJSON(c, "Signup", &req) {
		return
	}
	if req.Role == "" {
		req.Role = models.RoleStudent
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(c, "Signup", err)
		return
	}

	user, err := h.DB.Queries.CreateUser(c.Request.Context(), db.CreateUserParams{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         req.Role,
	})
	if err != nil {
		h.fail(c, "Signup", err)
		return
	}
	if err := startSession(c, user); err != nil {
		h.fail(c, "Signup", err)
		return
	}

	logger.WithContext(c.Request.Context()).WithField("user_id", user.ID).Info("User signed up")
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": sessionUser(user)})
}

// HandleLogin checks credentials. No session is created on failure.
func (h *Handler) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if !h.bindJSON(c, "Login", &req) {
		return
	}

	user, err := h.DB.Queries.GetUserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			err = auth.ErrInvalidCredentials
		}
		h.fail(c, "Login", err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		h.fail(c, "Login", err)
		return
	}
	if err := startSession(c, user); err != nil {
		h.fail(c, "Login", err)
		return
	}

	logger.WithContext(c.Request.Context()).WithField("user_id", user.ID).Info("User logged in")
	c.JSON(http.StatusOK, gin.H{"success": true, "user": sessionUser(user)})
}

// HandleLogout clears the session.
func (h *Handler) HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		h.fail(c, "Logout", fmt.Errorf("failed to clear session: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// HandleMe returns the signed-in identity.
func (h *Handler) HandleMe(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		h.fail(c, "Get Current User", errUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

// HandleGetProfile returns the stored account.
func (h *Handler) HandleGetProfile(c *gin.Context) {
	u, _ := currentUser(c)
	user, err := h.DB.Queries.GetUserByID(c.Request.Context(), u.ID)
	if err != nil {
		h.fail(c, "Get Profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// HandleUpdateProfile changes name and email and refreshes the session.
func (h *Handler) HandleUpdateProfile(c *gin.Context) {
	u, _ := currentUser(c)
	var req ProfileRequest
	if !h.bindJSON(c, "Update Profile", &req) {
		return
	}

	user, err := h.DB.Queries.UpdateUserProfile(c.Request.Context(), u.ID,
		strings.TrimSpace(req.Name), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.fail(c, "Update Profile", err)
		return
	}

	session := sessions.Default(c)
	session.Set(UserSessionKey, sessionUser(user))
	if err := session.Save(); err != nil {
		h.fail(c, "Update Profile", fmt.Errorf("failed to save session: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// HandleChangePassword requires the current password.
func (h *Handler) HandleChangePassword(c *gin.Context) {
	u, _ := currentUser(c)
	var req ChangePasswordRequest
	if !h.bindJSON(c, "Change Password", &req) {
		return
	}

	ctx := c.Request.Context()
	user, err := h.DB.Queries.GetUserByID(ctx, u.ID)
	if err != nil {
		h.fail(c, "Change Password", err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		h.fail(c, "Change Password", fmt.Errorf("%w: current password is incorrect", errUnauthorized))
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.fail(c, "Change Password", err)
		return
	}
	if err := h.DB.Queries.UpdateUserPassword(ctx, u.ID, hash); err != nil {
		h.fail(c, "Change Password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated"})
}
