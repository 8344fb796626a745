package main

import (
	"context"
	"database/sql"
	"encoding/gob"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizgo/internal/api"
	"quizgo/internal/api/handlers"
	"quizgo/internal/config"
	"quizgo/internal/db"
	"quizgo/internal/extract"
	"quizgo/internal/gemini"
	"quizgo/internal/logger"
	"quizgo/internal/notify"
	"quizgo/internal/r2"
	"quizgo/internal/storage"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	gsessions "github.com/gin-contrib/sessions/postgres"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)
	if cfg.GeneratedSessionKey {
		log.Warn("SESSION_SECRET is not set; using a random key, sessions will not survive a restart")
	}

	gob.Register(handlers.SessionUser{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	database, err := db.NewDB(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Initialize AI client
	aiClient, err := gemini.NewClient(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("Failed to initialize AI client: %v", err)
	}
	defer aiClient.Close()

	// Optional R2 mirror
	r2Client, err := r2.NewClient(ctx, cfg.R2, log)
	if err != nil {
		log.WithError(err).Warn("R2 mirror disabled")
	}
	var mirror storage.Mirror
	if r2Client != nil {
		mirror = r2Client
	}

	archives, err := storage.NewArchives(cfg.ResultsDir, mirror, log)
	if err != nil {
		log.Fatalf("Failed to prepare results directory: %v", err)
	}
	uploads, err := storage.NewUploads(cfg.UploadDir, mirror, log)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	discord := notify.NewDiscord(cfg.DiscordWebhookURL, log)
	defer discord.Wait()

	oauthConfig := handlers.GoogleOAuthConfig(cfg.Google)
	if oauthConfig == nil {
		log.Warn("Google login not configured (GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REDIRECT_URL)")
	}

	// --- Session Configuration ---
	store, closeStore, err := newSessionStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}
	defer closeStore()
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		Secure:   cfg.SessionSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestLogger(log))
	router.Use(api.CORSMiddleware(cfg.FrontendURL))
	router.Use(api.LimitBody(cfg.MaxUploadBytes()))
	router.Use(sessions.Sessions(cfg.SessionName, store))

	handler := handlers.NewHandler(handlers.Options{
		DB:          database,
		AI:          aiClient,
		Archives:    archives,
		Uploads:     uploads,
		Transcripts: extract.NewTranscripts(&http.Client{Timeout: 30 * time.Second}),
		OauthConfig: oauthConfig,
		Discord:     discord,
		FrontendURL: cfg.FrontendURL,
	})
	api.SetupRoutes(router, handler)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
		return
	}
	log.Info("Server exited properly")
}

// newSessionStore keeps sessions in Postgres when the app runs on Postgres and
// in signed cookies otherwise.
func newSessionStore(cfg *config.Config) (sessions.Store, func(), error) {
	if !cfg.UsesPostgres() {
		return cookie.NewStore(cfg.SessionKey), func() {}, nil
	}

	sessionDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := sessionDB.Ping(); err != nil {
		sessionDB.Close()
		return nil, nil, err
	}
	store, err := gsessions.NewStore(sessionDB, cfg.SessionKey)
	if err != nil {
		sessionDB.Close()
		return nil, nil, err
	}
	return store, func() { sessionDB.Close() }, nil
}
