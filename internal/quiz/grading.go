package quiz

import (
	"strings"

	"quizgo/internal/models"
)

// AnswerResult is the grade of one question.
type AnswerResult struct {
	Index         int    `json:"index"`
	Selected      string `json:"selected"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
	Graded        bool   `json:"graded"`
	Correct       bool   `json:"correct"`
}

// Grade summarises a submission. Essay questions are returned ungraded and
// do not count towards Total.
type Grade struct {
	Score   int            `json:"score"`
	Total   int            `json:"total"`
	Results []AnswerResult `json:"results"`
}

// GradeAnswers compares answers to questions by position. Missing answers
// count as wrong.
func GradeAnswers(questions []models.Question, answers []string) *Grade {
	g := &Grade{Results: make([]AnswerResult, 0, len(questions))}
	for i, q := range questions {
		var selected string
		if i < len(answers) {
			selected = answers[i]
		}
		r := AnswerResult{
			Index:         i,
			Selected:      selected,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		}
		if q.Type != models.TypeEssay {
			r.Graded = true
			r.Correct = AnswerMatches(selected, q.CorrectAnswer)
			g.Total++
			if r.Correct {
				g.Score++
			}
		}
		g.Results = append(g.Results, r)
	}
	return g
}

// AnswerMatches accepts an exact match ignoring case, an option prefixed with
// the correct letter ("B) ...", "B. ...", "B- ..."), or a selected answer
// longer than three characters found inside the correct one.
func AnswerMatches(selected, correct string) bool {
	s := strings.ToLower(strings.TrimSpace(selected))
	c := strings.ToLower(strings.TrimSpace(correct))
	if s == "" || c == "" {
		return false
	}
	if s == c {
		return true
	}
	for _, sep := range []string{")", ".", "-"} {
		if strings.HasPrefix(s, c+sep) {
			return true
		}
	}
	if len([]rune(s)) > 3 && strings.Contains(c, s) {
		return true
	}
	return false
}
