package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"quizgo/internal/auth"
	"quizgo/internal/db"
	"quizgo/internal/extract"
	"quizgo/internal/gemini"
	"quizgo/internal/logger"
	"quizgo/internal/notify"
	"quizgo/internal/quiz"
	"quizgo/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"
)

// Session keys
const (
	OauthStateSessionKey = "oauthstate"
	UserSessionKey       = "user"
)

// SessionUser is the identity kept in the session cookie. It must be
// registered with gob before sessions are used.
type SessionUser struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Handler contains the API handlers dependencies
type Handler struct {
	DB          *db.DB
	AI          *gemini.Client
	Quizzes     *quiz.Service
	Archives    *storage.Archives
	Uploads     *storage.Uploads
	OauthConfig *oauth2.Config // nil when Google login is disabled
	Discord     *notify.Discord
	FrontendURL string
}

// Options groups NewHandler's dependencies.
type Options struct {
	DB          *db.DB
	AI          *gemini.Client
	Archives    *storage.Archives
	Uploads     *storage.Uploads
	Transcripts quiz.TranscriptFetcher
	OauthConfig *oauth2.Config
	Discord     *notify.Discord
	FrontendURL string
}

func NewHandler(o Options) *Handler {
	return &Handler{
		DB:          o.DB,
		AI:          o.AI,
		Quizzes:     quiz.NewService(o.DB.Queries, o.Archives, o.Uploads, o.AI, o.Transcripts),
		Archives:    o.Archives,
		Uploads:     o.Uploads,
		OauthConfig: o.OauthConfig,
		Discord:     o.Discord,
		FrontendURL: o.FrontendURL,
	}
}

// currentUser returns the identity AuthRequired placed on the context.
func currentUser(c *gin.Context) (SessionUser, bool) {
	v, ok := c.Get("userProfile")
	if !ok {
		return SessionUser{}, false
	}
	u, ok := v.(SessionUser)
	return u, ok && u.ID != 0
}

// statusFor maps an error class to its HTTP status and the message shown to
// the client.
func statusFor(err error) (int, string) {
	var (
		ve validator.ValidationErrors
		qe *gemini.QuestionError
		se *gemini.StatusError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, validationMessage(ve)
	case errors.Is(err, errBadRequest),
		errors.Is(err, quiz.ErrInvalidCount),
		errors.Is(err, quiz.ErrNoSource),
		errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, extract.ErrNoText),
		errors.Is(err, extract.ErrInvalidVideo),
		errors.Is(err, extract.ErrNoCaptions),
		errors.Is(err, gemini.ErrInsufficientInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, errNotFound), errors.Is(err, quiz.ErrNotFound), errors.Is(err, db.ErrNotFound),
		errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidName):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, db.ErrDuplicateEmail):
		return http.StatusConflict, err.Error()
	case errors.As(err, &qe), errors.As(err, &se),
		errors.Is(err, gemini.ErrMissingCredential),
		errors.Is(err, gemini.ErrTransport),
		errors.Is(err, gemini.ErrMalformedEnvelope),
		errors.Is(err, gemini.ErrMalformedPayload),
		errors.Is(err, gemini.ErrNoQuestions):
		return http.StatusInternalServerError, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

var (
	errBadRequest   = errors.New("invalid request")
	errUnauthorized = errors.New("authentication required")
	errForbidden    = errors.New("access denied")
	errNotFound     = errors.New("not found")
)

// fail logs err, notifies Discord for server errors and aborts with the JSON
// error envelope.
func (h *Handler) fail(c *gin.Context, action string, err error) {
	status, msg := statusFor(err)
	log := logger.WithContext(c.Request.Context()).WithError(err).WithField("action", action)

	var userID uint
	if u, ok := currentUser(c); ok {
		userID = u.ID
	}

	var se *gemini.StatusError
	if errors.As(err, &se) {
		log = log.WithField("response_preview", se.Body)
	}

	if status >= http.StatusInternalServerError {
		log.Error("Request failed")
		h.Discord.Notify(notify.ErrorEmbed(action, err, status, c.Request.URL.Path, userID))
	} else {
		log.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// validationMessage renders the first failed rule in plain words.
func validationMessage(ve validator.ValidationErrors) string {
	if len(ve) == 0 {
		return errBadRequest.Error()
	}
	fe := ve[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}

// UseJSONFieldNames makes validation errors report json tag names.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// bindJSON binds the request body, reporting malformed JSON as a 400.
func (h *Handler) bindJSON(c *gin.Context, action string, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			err = fmt.Errorf("%w: %v", errBadRequest, err)
		}
		h.fail(c, action, err)
		return false
	}
	return true
}
