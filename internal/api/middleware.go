package api

import (
	"net/http"
	"strings"
	"time"

	"quizgo/internal/api/handlers"
	"quizgo/internal/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CORSMiddleware allows credentialed requests from the frontend origin.
func CORSMiddleware(frontendURL string) gin.HandlerFunc {
	origin := strings.TrimSuffix(frontendURL, "/")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Accept-Encoding", "X-CSRF-Token", "Authorization", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// RequestLogger tags every request with an id and logs its outcome.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)

		entry := log.WithField("request_id", id)
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), entry))

		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}
		if uid, ok := c.Get("userID"); ok {
			fields["user_id"] = uid
		}
		e := entry.WithFields(fields)
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			e.Error("Request completed")
		case c.Writer.Status() >= http.StatusBadRequest:
			e.Warn("Request completed")
		default:
			e.Info("Request completed")
		}
	}
}

// LimitBody caps request bodies at n bytes.
func LimitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// AuthRequired ensures the session holds a user and puts the user on the
// gin context under "userID" and "userProfile".
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		user, ok := session.Get(handlers.UserSessionKey).(handlers.SessionUser)
		if !ok || user.ID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
			return
		}

		c.Set("userID", user.ID)
		c.Set("userProfile", user)

		ctx := c.Request.Context()
		if entry, ok := logger.WithContext(ctx).(*logrus.Entry); ok {
			c.Request = c.Request.WithContext(logger.NewContext(ctx, entry.WithField("user_id", user.ID)))
		}
		c.Next()
	}
}

// RequireRole must run after AuthRequired.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get("userProfile")
		user, ok := v.(handlers.SessionUser)
		if !ok || user.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "This page is only available to " + role + "s"})
			return
		}
		c.Next()
	}
}
