package db

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"quizgo/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	database, err := Open(context.Background(), sqlite.Open(filepath.Join(t.TempDir(), "test.db")), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func createUser(t *testing.T, q *Queries, email, role string) models.User {
	t.Helper()
	u, err := q.CreateUser(context.Background(), CreateUserParams{Email: email, Name: "User " + email, PasswordHash: "hash", Role: role})
	require.NoError(t, err)
	return u
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	q := openTestDB(t).Queries

	u := createUser(t, q, "ada@example.com", models.RoleTeacher)
	assert.NotZero(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	_, err := q.CreateUser(ctx, CreateUserParams{Email: "ada@example.com", Name: "Dup", PasswordHash: "h", Role: models.RoleStudent})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	got, err := q.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, models.RoleTeacher, got.Role)

	_, err = q.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = q.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserDefaultsRole(t *testing.T) {
	q := openTestDB(t).Queries
	u := createUser(t, q, "anon@example.com", "")

	got, err := q.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, got.Role)
}

func TestUpdateUserProfileAndPassword(t *testing.T) {
	ctx := context.Background()
	q := openTestDB(t).Queries
	a := createUser(t, q, "a@example.com", models.RoleStudent)
	createUser(t, q, "b@example.com", models.RoleStudent)

	updated, err := q.UpdateUserProfile(ctx, a.ID, "Alice", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, "alice@example.com", updated.Email)

	_, err = q.UpdateUserProfile(ctx, a.ID, "Alice", "b@example.com")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = q.UpdateUserProfile(ctx, a.ID, "Alice B", "alice@example.com")
	assert.NoError(t, err, "keeping one's own email is allowed")

	require.NoError(t, q.UpdateUserPassword(ctx, a.ID, "new-hash"))
	got, err := q.GetUserByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, q.UpdateUserPassword(ctx, 9999, "x"), ErrNotFound)
}

func TestQuizzes(t *testing.T) {
	ctx := context.Background()
	q := openTestDB(t).Queries
	owner := createUser(t, q, "owner@example.com", models.RoleTeacher)
	other := createUser(t, q, "other@example.com", models.RoleStudent)

	first, err := q.CreateQuiz(ctx, CreateQuizParams{UserID: owner.ID, ResultFilename: "quiz_result_1.json", OriginalFilename: "a.pdf", NumQuestions: 4, Difficulty: "Easy", Mode: "mcq"})
	require.NoError(t, err)
	second, err := q.CreateQuiz(ctx, CreateQuizParams{UserID: owner.ID, ResultFilename: "quiz_result_2.json", OriginalFilename: "b.pdf", NumQuestions: 8, Difficulty: "Hard", Mode: "mixed"})
	require.NoError(t, err)

	list, err := q.ListQuizzesByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	empty, err := q.ListQuizzesByOwner(ctx, other.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	got, err := q.GetQuizByIDAndOwner(ctx, first.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "quiz_result_1.json", got.ResultFilename)

	_, err = q.GetQuizByIDAndOwner(ctx, first.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	withCreator, err := q.GetQuizWithCreator(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "User owner@example.com", withCreator.CreatorName)
	assert.Equal(t, "quiz_result_2.json", withCreator.ResultFilename)

	_, err = q.GetQuizWithCreator(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, q.DeleteQuizByIDAndOwner(ctx, first.ID, other.ID), ErrNotFound)
	require.NoError(t, q.DeleteQuizByIDAndOwner(ctx, first.ID, owner.ID))
	assert.ErrorIs(t, q.DeleteQuizByIDAndOwner(ctx, first.ID, owner.ID), ErrNotFound)

	list, err = q.ListQuizzesByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestLegacyUserTypeColumnIsCopied(t *testing.T) {
	ctx := context.Background()
	log := logrus.New()
	log.SetOutput(io.Discard)
	path := filepath.Join(t.TempDir(), "legacy.db")

	first, err := Open(ctx, sqlite.Open(path), log)
	require.NoError(t, err)
	require.NoError(t, first.Gorm.Exec("ALTER TABLE users ADD COLUMN user_type TEXT DEFAULT 'student'").Error)
	require.NoError(t, first.Gorm.Exec("INSERT INTO users (email, name, password_hash, role, user_type, created_at) VALUES ('t@example.com', 'T', 'h', 'student', 'teacher', CURRENT_TIMESTAMP)").Error)
	require.NoError(t, first.Close())

	second, err := Open(ctx, sqlite.Open(path), log)
	require.NoError(t, err)
	defer second.Close()

	u, err := second.Queries.GetUserByEmail(ctx, "t@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, u.Role)
}
