package quiz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"quizgo/internal/db"
	"quizgo/internal/extract"
	"quizgo/internal/gemini"
	"quizgo/internal/logger"
	"quizgo/internal/models"
	"quizgo/internal/storage"

	"github.com/sirupsen/logrus"
)

// MinQuestions is the smallest quiz that can be requested.
const MinQuestions = 4

var (
	ErrInvalidCount = fmt.Errorf("number of questions must be at least %d", MinQuestions)
	ErrNoSource     = errors.New("no document or video provided")
	ErrNotFound     = errors.New("quiz not found")
)

// Generator produces questions from source text. *gemini.Client satisfies it.
type Generator interface {
	GenerateQuiz(ctx context.Context, text string, p gemini.PromptParams) (*gemini.Result, error)
}

// TranscriptFetcher returns caption text for a video URL.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, url, lang string) (string, error)
}

// Service ties extraction, generation and persistence together.
type Service struct {
	queries     *db.Queries
	archives    *storage.Archives
	uploads     *storage.Uploads
	ai          Generator
	transcripts TranscriptFetcher
	now         func() time.Time
}

func NewService(queries *db.Queries, archives *storage.Archives, uploads *storage.Uploads, ai Generator, transcripts TranscriptFetcher) *Service {
	return &Service{
		queries:     queries,
		archives:    archives,
		uploads:     uploads,
		ai:          ai,
		transcripts: transcripts,
		now:         time.Now,
	}
}

// GenerateRequest describes one generation. Exactly one of File or VideoURL
// is used; File wins when both are set.
type GenerateRequest struct {
	UserID     uint
	Filename   string
	File       io.Reader
	VideoURL   string
	Count      int
	Difficulty string
	Mode       string
}

// Generated is the outcome of a successful generation.
type Generated struct {
	Quiz       models.Quiz
	ResultFile string
	Questions  []models.Question
	TypeCounts map[string]int
}

// Generate validates the request, extracts the source text, asks the model for
// questions, writes the archive and then the quiz row.
//
// The archive and the row are not written atomically. A failed insert leaves
// an orphaned archive behind.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Generated, error) {
	log := logger.WithContext(ctx)

	if req.Count < MinQuestions {
		return nil, ErrInvalidCount
	}
	if strings.TrimSpace(req.Difficulty) == "" {
		req.Difficulty = "Medium"
	}
	req.Mode = gemini.NormalizeMode(req.Mode)

	text, source, err := s.sourceText(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := s.ai.GenerateQuiz(ctx, text, gemini.PromptParams{Count: req.Count, Difficulty: req.Difficulty, Mode: req.Mode})
	if err != nil {
		return nil, err
	}

	original := req.Filename
	if req.File == nil {
		original = req.VideoURL
	}
	archive := models.Archive{
		SourceDocumentName:  source,
		OriginalFilename:    original,
		GenerationTimestamp: s.now().UTC(),
		Model:               result.Model,
		Parameters: models.Parameters{
			Count:      req.Count,
			Difficulty: req.Difficulty,
			Mode:       req.Mode,
			TypeCounts: result.TypeCounts,
		},
		Questions: result.Questions,
	}
	name, err := s.archives.Save(ctx, archive)
	if err != nil {
		return nil, err
	}

	q, err := s.queries.CreateQuiz(ctx, db.CreateQuizParams{
		UserID:           req.UserID,
		ResultFilename:   name,
		OriginalFilename: original,
		NumQuestions:     len(result.Questions),
		Difficulty:       req.Difficulty,
		Mode:             req.Mode,
	})
	if err != nil {
		log.WithError(err).WithField("result_file", name).Error("Archive written but quiz row insert failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"quiz_id":     q.ID,
		"result_file": name,
		"questions":   len(result.Questions),
	}).Info("Quiz saved")

	return &Generated{Quiz: q, ResultFile: name, Questions: result.Questions, TypeCounts: result.TypeCounts}, nil
}

func (s *Service) sourceText(ctx context.Context, req GenerateRequest) (text, source string, err error) {
	switch {
	case req.File != nil:
		if !extract.Supported(req.Filename) {
			return "", "", fmt.Errorf("%w: %s", extract.ErrUnsupportedType, filepath.Ext(req.Filename))
		}
		path, err := s.uploads.Save(ctx, req.Filename, req.File)
		if err != nil {
			return "", "", err
		}
		text, err := extract.FromFile(path)
		if err != nil {
			return "", "", err
		}
		return text, filepath.Base(path), nil
	case strings.TrimSpace(req.VideoURL) != "":
		if s.transcripts == nil {
			return "", "", ErrNoSource
		}
		text, err := s.transcripts.Fetch(ctx, req.VideoURL, "en")
		if err != nil {
			return "", "", err
		}
		return text, req.VideoURL, nil
	default:
		return "", "", ErrNoSource
	}
}

// Detail is a quiz row with its archive.
type Detail struct {
	Quiz    models.Quiz
	Archive models.Archive
}

// Get loads an owned quiz and its archive.
func (s *Service) Get(ctx context.Context, userID, id uint) (*Detail, error) {
	q, err := s.queries.GetQuizByIDAndOwner(ctx, id, userID)
	if err != nil {
		return nil, notFound(err)
	}
	archive, err := s.archives.Load(q.ResultFilename)
	if err != nil {
		return nil, notFound(err)
	}
	return &Detail{Quiz: q, Archive: archive}, nil
}

func (s *Service) List(ctx context.Context, userID uint) ([]models.Quiz, error) {
	return s.queries.ListQuizzesByOwner(ctx, userID)
}

// Delete removes the quiz row. The archive file stays on disk.
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	return notFound(s.queries.DeleteQuizByIDAndOwner(ctx, id, userID))
}

// TakeDetail is a quiz as served to a student.
type TakeDetail struct {
	Quiz    models.QuizWithCreator
	Archive models.Archive
}

// Take loads any quiz for answering.
func (s *Service) Take(ctx context.Context, id uint) (*TakeDetail, error) {
	q, err := s.queries.GetQuizWithCreator(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	archive, err := s.archives.Load(q.ResultFilename)
	if err != nil {
		return nil, notFound(err)
	}
	return &TakeDetail{Quiz: q, Archive: archive}, nil
}

// Check grades answers against quiz id.
func (s *Service) Check(ctx context.Context, id uint, answers []string) (*Grade, error) {
	t, err := s.Take(ctx, id)
	if err != nil {
		return nil, err
	}
	return GradeAnswers(t.Archive.Questions, answers), nil
}

func notFound(err error) error {
	if errors.Is(err, db.ErrNotFound) || errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
		return ErrNotFound
	}
	return err
}
