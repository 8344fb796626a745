package db

import (
	"context"
	"errors"
	"fmt"

	"quizgo/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Queries wraps the statements the handlers need.
type Queries struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Queries {
	return &Queries{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- users ---

type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash string
	Role         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error) {
	if _, err := q.GetUserByEmail(ctx, arg.Email); err == nil {
		return models.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return models.User{}, err
	}

	u := models.User{
		Email:        arg.Email,
		Name:         arg.Name,
		PasswordHash: arg.PasswordHash,
		Role:         arg.Role,
	}
	if err := q.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := q.db.WithContext(ctx).Where("email = ?", email).Take(&u).Error
	return u, notFound(err)
}

func (q *Queries) GetUserByID(ctx context.Context, id uint) (models.User, error) {
	var u models.User
	err := q.db.WithContext(ctx).Take(&u, id).Error
	return u, notFound(err)
}

// UpdateUserProfile changes name and email. Taking another account's email
// returns ErrDuplicateEmail.
func (q *Queries) UpdateUserProfile(ctx context.Context, id uint, name, email string) (models.User, error) {
	existing, err := q.GetUserByEmail(ctx, email)
	if err == nil && existing.ID != id {
		return models.User{}, ErrDuplicateEmail
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return models.User{}, err
	}

	res := q.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"name": name, "email": email})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("failed to update user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.User{}, ErrNotFound
	}
	return q.GetUserByID(ctx, id)
}

func (q *Queries) UpdateUserPassword(ctx context.Context, id uint, hash string) error {
	res := q.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("failed to update password for user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- quizzes ---

type CreateQuizParams struct {
	UserID           uint
	ResultFilename   string
	OriginalFilename string
	NumQuestions     int
	Difficulty       string
	Mode             string
}

func (q *Queries) CreateQuiz(ctx context.Context, arg CreateQuizParams) (models.Quiz, error) {
	quiz := models.Quiz{
		UserID:           arg.UserID,
		ResultFilename:   arg.ResultFilename,
		OriginalFilename: arg.OriginalFilename,
		NumQuestions:     arg.NumQuestions,
		Difficulty:       arg.Difficulty,
		Mode:             arg.Mode,
	}
	if err := q.db.WithContext(ctx).Create(&quiz).Error; err != nil {
		return models.Quiz{}, fmt.Errorf("failed to create quiz: %w", err)
	}
	return quiz, nil
}

func (q *Queries) GetQuizByIDAndOwner(ctx context.Context, id, userID uint) (models.Quiz, error) {
	var quiz models.Quiz
	err := q.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&quiz).Error
	return quiz, notFound(err)
}

// GetQuizWithCreator loads any quiz together with its owner's name.
func (q *Queries) GetQuizWithCreator(ctx context.Context, id uint) (models.QuizWithCreator, error) {
	var row models.QuizWithCreator
	err := q.db.WithContext(ctx).
		Table("quizzes").
		Select("quizzes.*, COALESCE(users.name, '') AS creator_name").
		Joins("LEFT JOIN users ON users.id = quizzes.user_id").
		Where("quizzes.id = ?", id).
		Take(&row).Error
	return row, notFound(err)
}

// ListQuizzesByOwner returns the owner's quizzes, newest first.
func (q *Queries) ListQuizzesByOwner(ctx context.Context, userID uint) ([]models.Quiz, error) {
	quizzes := []models.Quiz{}
	err := q.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&quizzes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes for user %d: %w", userID, err)
	}
	return quizzes, nil
}

// DeleteQuizByIDAndOwner removes the row only.
func (q *Queries) DeleteQuizByIDAndOwner(ctx context.Context, id, userID uint) error {
	res := q.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Quiz{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete quiz %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
