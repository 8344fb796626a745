package db

import (
	"context"
	"fmt"
	"time"

	"quizgo/internal/config"
	"quizgo/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the gorm handle and queries
type DB struct {
	Gorm    *gorm.DB
	Queries *Queries
}

// NewDB opens Postgres when DATABASE_URL is set and SQLite otherwise, then
// migrates the schema.
func NewDB(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	var dialector gorm.Dialector
	if cfg.UsesPostgres() {
		dialector = postgres.Open(cfg.DatabaseURL)
		log.Info("Using Postgres database")
	} else {
		dialector = sqlite.Open(cfg.SQLitePath)
		log.WithField("path", cfg.SQLitePath).Info("Using SQLite database")
	}
	return Open(ctx, dialector, log)
}

// Open connects with an explicit dialector. Tests use it with a temporary
// SQLite file.
func Open(ctx context.Context, dialector gorm.Dialector, log *logrus.Logger) (*DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := migrate(ctx, gdb, log); err != nil {
		return nil, err
	}

	return &DB{
		Gorm:    gdb,
		Queries: New(gdb),
	}, nil
}

func migrate(ctx context.Context, gdb *gorm.DB, log *logrus.Logger) error {
	tx := gdb.WithContext(ctx)
	if err := tx.AutoMigrate(&models.User{}, &models.Quiz{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Databases created before roles were named "role" kept them in user_type.
	if tx.Migrator().HasColumn(&models.User{}, "user_type") {
		res := tx.Exec("UPDATE users SET role = user_type WHERE user_type IN (?, ?) AND role <> user_type", models.RoleTeacher, models.RoleStudent)
		if res.Error != nil {
			return fmt.Errorf("failed to copy legacy user_type column: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			log.WithField("rows", res.RowsAffected).Info("Copied legacy user_type values into role")
		}
	}
	return nil
}

// Ping checks the underlying connection.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
