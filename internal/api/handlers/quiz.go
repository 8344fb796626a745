package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quizgo/internal/models"
	"quizgo/internal/quiz"

	"github.com/gin-gonic/gin"
)

const (
	defaultNumQuestions = 8
	defaultDifficulty   = "Medium"
)

// PublicQuestion is a question without its answer, as served to students.
type PublicQuestion struct {
	Question string   `json:"question"`
	Type     string   `json:"type"`
	Options  []string `json:"options"`
}

// TakeQuizResponse is the quiz a student answers.
type TakeQuizResponse struct {
	ID           uint             `json:"id"`
	Title        string           `json:"title"`
	CreatorName  string           `json:"creator_name"`
	Difficulty   string           `json:"difficulty"`
	Mode         string           `json:"mode"`
	NumQuestions int              `json:"num_questions"`
	CreatedAt    time.Time        `json:"created_at"`
	Questions    []PublicQuestion `json:"questions"`
}

type CheckAnswersRequest struct {
	Answers []string `json:"answers" binding:"required"`
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid quiz id %q", errBadRequest, c.Param("id"))
	}
	return uint(id), nil
}

// parseCount reads num_questions. Missing means the default.
func parseCount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultNumQuestions, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: num_questions must be an integer", errBadRequest)
	}
	if n < quiz.MinQuestions {
		return 0, quiz.ErrInvalidCount
	}
	return n, nil
}

// HandleUpload generates a quiz from an uploaded document or a video URL.
func (h *Handler) HandleUpload(c *gin.Context) {
	u, _ := currentUser(c)

	count, err := parseCount(c.PostForm("num_questions"))
	if err != nil {
		h.fail(c, "Upload", err)
		return
	}
	difficulty := strings.TrimSpace(c.DefaultPostForm("difficulty", defaultDifficulty))
	mode := strings.TrimSpace(c.DefaultPostForm("question_types", models.ModeMixed))

	req := quiz.GenerateRequest{
		UserID:     u.ID,
		VideoURL:   strings.TrimSpace(c.PostForm("video_url")),
		Count:      count,
		Difficulty: difficulty,
		Mode:       mode,
	}

	fh, err := c.FormFile("pdf_file")
	if errors.Is(err, http.ErrMissingFile) {
		fh, err = c.FormFile("document")
	}
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			h.fail(c, "Upload", fmt.Errorf("failed to open uploaded file: %w", err))
			return
		}
		defer f.Close()
		req.File = f
		req.Filename = fh.Filename
	case errors.Is(err, http.ErrMissingFile):
		// video_url, if any, is the source
	default:
		h.fail(c, "Upload", fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	g, err := h.Quizzes.Generate(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "Generate Quiz", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"quiz_id":     g.Quiz.ID,
		"result_file": g.ResultFile,
		"questions":   g.Questions,
		"type_counts": g.TypeCounts,
		"message":     fmt.Sprintf("Generated %d questions", len(g.Questions)),
	})
}

// HandleListMyQuizzes lists the caller's quizzes, newest first.
func (h *Handler) HandleListMyQuizzes(c *gin.Context) {
	u, _ := currentUser(c)
	quizzes, err := h.Quizzes.List(c.Request.Context(), u.ID)
	if err != nil {
		h.fail(c, "List Quizzes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quizzes": quizzes})
}

// HandleGetMyQuiz returns an owned quiz with all answers.
func (h *Handler) HandleGetMyQuiz(c *gin.Context) {
	u, _ := currentUser(c)
	id, err := parseID(c)
	if err != nil {
		h.fail(c, "Get Quiz", err)
		return
	}
	d, err := h.Quizzes.Get(c.Request.Context(), u.ID, id)
	if err != nil {
		h.fail(c, "Get Quiz", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"quiz":       d.Quiz,
		"parameters": d.Archive.Parameters,
		"questions":  d.Archive.Questions,
	})
}

// HandleDeleteMyQuiz deletes the quiz row. The archive stays downloadable.
func (h *Handler) HandleDeleteMyQuiz(c *gin.Context) {
	u, _ := currentUser(c)
	id, err := parseID(c)
	if err != nil {
		h.fail(c, "Delete Quiz", err)
		return
	}
	if err := h.Quizzes.Delete(c.Request.Context(), u.ID, id); err != nil {
		h.fail(c, "Delete Quiz", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Quiz deleted"})
}

// HandleTakeQuiz serves any quiz to a student without the answers.
func (h *Handler) HandleTakeQuiz(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, "Take Quiz", err)
		return
	}
	t, err := h.Quizzes.Take(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Take Quiz", err)
		return
	}

	resp := TakeQuizResponse{
		ID:           t.Quiz.ID,
		Title:        t.Quiz.OriginalFilename,
		CreatorName:  t.Quiz.CreatorName,
		Difficulty:   t.Quiz.Difficulty,
		Mode:         t.Quiz.Mode,
		NumQuestions: t.Quiz.NumQuestions,
		CreatedAt:    t.Quiz.CreatedAt,
		Questions:    make([]PublicQuestion, 0, len(t.Archive.Questions)),
	}
	for _, q := range t.Archive.Questions {
		resp.Questions = append(resp.Questions, PublicQuestion{Question: q.Question, Type: q.Type, Options: q.Options})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quiz": resp})
}

// HandleCheckAnswers grades a student's answers.
func (h *Handler) HandleCheckAnswers(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, "Check Answers", err)
		return
	}
	var req CheckAnswersRequest
	if !h.bindJSON(c, "Check Answers", &req) {
		return
	}
	grade, err := h.Quizzes.Check(c.Request.Context(), id, req.Answers)
	if err != nil {
		h.fail(c, "Check Answers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"score":   grade.Score,
		"total":   grade.Total,
		"results": grade.Results,
	})
}

// HandleDownload sends an archive as a JSON attachment.
func (h *Handler) HandleDownload(c *gin.Context) {
	name := c.Param("filename")
	path, err := h.Archives.Path(name)
	if err != nil {
		h.fail(c, "Download", err)
		return
	}
	c.FileAttachment(path, name)
}
