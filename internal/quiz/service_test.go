package quiz

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"quizgo/internal/db"
	"quizgo/internal/extract"
	"quizgo/internal/gemini"
	"quizgo/internal/models"
	"quizgo/internal/storage"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sourceText = strings.Repeat("Photosynthesis converts light energy into chemical energy in plants. ", 4)

const trueFalsePayload = "```json\n" + `{"questions":[
 {"question":"Plants photosynthesise.","correct_answer":"true","explanation":"Stated."},
 {"question":"Photosynthesis needs light.","options":["Yes","No"],"correct_answer":"True"},
 {"question":"Animals photosynthesise.","correct_answer":"False"},
 {"question":"Chemical energy is produced.","correct_answer":"TRUE"}
]}` + "\n```"

type fakeProvider struct {
	text  string
	err   error
	calls int32
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(_ context.Context, _ string) (*gemini.Envelope, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	text := f.text
	return &gemini.Envelope{Candidates: []gemini.Candidate{{
		Content: gemini.ContentField{Items: []gemini.Content{{Parts: []gemini.Part{{Text: &text}}}}},
	}}}, nil
}

type fakeTranscripts struct {
	text string
	err  error
}

func (f fakeTranscripts) Fetch(context.Context, string, string) (string, error) {
	return f.text, f.err
}

type fixture struct {
	svc      *Service
	provider *fakeProvider
	queries  *db.Queries
	archives *storage.Archives
	uploads  *storage.Uploads
	owner    models.User
	student  models.User
}

func newFixture(t *testing.T, payload string) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	dir := t.TempDir()

	database, err := db.Open(context.Background(), sqlite.Open(filepath.Join(dir, "quiz.db")), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	archives, err := storage.NewArchives(filepath.Join(dir, "results"), nil, log)
	require.NoError(t, err)
	uploads, err := storage.NewUploads(filepath.Join(dir, "uploads"), nil, log)
	require.NoError(t, err)

	provider := &fakeProvider{text: payload}
	ai := gemini.NewClientWithProvider(provider, "key", "test-model")

	owner, err := database.Queries.CreateUser(context.Background(), db.CreateUserParams{Email: "t@example.com", Name: "Teacher T", PasswordHash: "h", Role: models.RoleTeacher})
	require.NoError(t, err)
	student, err := database.Queries.CreateUser(context.Background(), db.CreateUserParams{Email: "s@example.com", Name: "Student S", PasswordHash: "h", Role: models.RoleStudent})
	require.NoError(t, err)

	return &fixture{
		svc:      NewService(database.Queries, archives, uploads, ai, fakeTranscripts{text: sourceText}),
		provider: provider,
		queries:  database.Queries,
		archives: archives,
		uploads:  uploads,
		owner:    owner,
		student:  student,
	}
}

func (f *fixture) generate(t *testing.T) *Generated {
	t.Helper()
	g, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID:     f.owner.ID,
		Filename:   "notes.txt",
		File:       strings.NewReader(sourceText),
		Count:      4,
		Difficulty: "Easy",
		Mode:       models.TypeTrueFalse,
	})
	require.NoError(t, err)
	return g
}

func TestGenerateTrueFalse(t *testing.T) {
	f := newFixture(t, trueFalsePayload)
	g := f.generate(t)

	require.Len(t, g.Questions, 4)
	for _, q := range g.Questions {
		assert.Equal(t, models.TypeTrueFalse, q.Type)
		assert.Equal(t, []string{"True", "False"}, q.Options)
	}
	assert.Equal(t, map[string]int{models.TypeTrueFalse: 4}, g.TypeCounts)
	assert.Equal(t, 4, g.Quiz.NumQuestions)
	assert.Equal(t, models.TypeTrueFalse, g.Quiz.Mode)
	assert.Equal(t, "notes.txt", g.Quiz.OriginalFilename)

	entries, err := os.ReadDir(f.uploads.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "document_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".txt"))
}

func TestGenerateRoundTrip(t *testing.T) {
	f := newFixture(t, trueFalsePayload)
	g := f.generate(t)

	d, err := f.svc.Get(context.Background(), f.owner.ID, g.Quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Questions, d.Archive.Questions)
	assert.Equal(t, g.ResultFile, d.Quiz.ResultFilename)
	assert.Equal(t, "Easy", d.Archive.Parameters.Difficulty)
	assert.Equal(t, 4, d.Archive.Parameters.Count)
	assert.Equal(t, "test-model", d.Archive.Model)

	_, err = f.svc.Get(context.Background(), f.student.ID, g.Quiz.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateRejectsSmallCountBeforeAnything(t *testing.T) {
	f := newFixture(t, trueFalsePayload)
	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: f.owner.ID, Filename: "notes.txt", File: strings.NewReader(sourceText), Count: 3,
	})
	assert.ErrorIs(t, err, ErrInvalidCount)
	assert.Zero(t, atomic.LoadInt32(&f.provider.calls))

	entries, err := os.ReadDir(f.uploads.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateInsufficientText(t *testing.T) {
	f := newFixture(t, trueFalsePayload)
	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: f.owner.ID, Filename: "short.md", File: strings.NewReader("too short"), Count: 4,
	})
	assert.ErrorIs(t, err, gemini.ErrInsufficientInput)
	assert.Zero(t, atomic.LoadInt32(&f.provider.calls))
}

func TestGenerateUnsupportedType(t *testing.T) {
	f := newFixture(t, trueFalsePayload)
	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: f.owner.ID, Filename: "slides.pptx", File: strings.NewReader(sourceText), Count: 4,
	})
	assert.ErrorIs(t, err, extract.ErrUnsupportedType)
}

func TestGenerateNoSource(t *testing.T) {
	f := newFixture(t, trueFalsePayload)
	_, err := f.svc.Generate(context.Background(), GenerateRequest{UserID: f.owner.ID, Count: 4})
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestGenerateFromVideo(t *testing.T) {
	f := newFixture(t, trueFalsePayload)
	g, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: f.owner.ID, VideoURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", Count: 4, Mode: models.TypeTrueFalse,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", g.Quiz.OriginalFilename)
}

func TestGenerateProviderFailureWritesNothing(t *testing.T) {
	f := newFixture(t, "")
	f.provider.err = errors.New("boom")
	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		UserID: f.owner.ID, Filename: "notes.txt", File: strings.NewReader(sourceText), Count: 4,
	})
	require.Error(t, err)

	names, err := f.archives.Names()
	require.NoError(t, err)
	assert.Empty(t, names)
	list, err := f.svc.List(context.Background(), f.owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteKeepsArchive(t *testing.T) {
	f := newFixture(t, trueFalsePayload)
	g := f.generate(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Delete(ctx, f.student.ID, g.Quiz.ID), ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, f.owner.ID, g.Quiz.ID))

	list, err := f.svc.List(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	archive, err := f.archives.Load(g.ResultFile)
	require.NoError(t, err)
	assert.Len(t, archive.Questions, 4)

	_, err = f.svc.Get(ctx, f.owner.ID, g.Quiz.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMissingArchive(t *testing.T) {
	f := newFixture(t, trueFalsePayload)
	g := f.generate(t)
	require.NoError(t, os.Remove(filepath.Join(f.archives.Dir(), g.ResultFile)))

	_, err := f.svc.Get(context.Background(), f.owner.ID, g.Quiz.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTakeAndCheck(t *testing.T) {
	f := newFixture(t, trueFalsePayload)
	g := f.generate(t)
	ctx := context.Background()

	take, err := f.svc.Take(ctx, g.Quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Teacher T", take.Quiz.CreatorName)
	assert.Len(t, take.Archive.Questions, 4)

	grade, err := f.svc.Check(ctx, g.Quiz.ID, []string{"True", "false", "False"})
	require.NoError(t, err)
	assert.Equal(t, 4, grade.Total)
	assert.Equal(t, 2, grade.Score)
	assert.True(t, grade.Results[0].Correct)
	assert.False(t, grade.Results[1].Correct)
	assert.True(t, grade.Results[2].Correct)
	assert.False(t, grade.Results[3].Correct)

	_, err = f.svc.Check(ctx, 9999, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	f := newFixture(t, trueFalsePayload)
	f.generate(t)
	f.generate(t)

	st, err := f.svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalQuizzes)
	assert.Equal(t, 8, st.TotalQuestions)
	assert.Equal(t, map[string]int{models.TypeTrueFalse: 8}, st.ByType)
	assert.Equal(t, map[string]int{"Easy": 2}, st.ByDifficulty)
	assert.Equal(t, map[string]int{models.TypeTrueFalse: 2}, st.ByMode)
	assert.Len(t, st.Recent, 2)
}
