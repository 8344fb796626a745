package gemini

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"quizgo/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

var (
	fenceOpen  = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")
	fenceClose = regexp.MustCompile("\r?\n?[ \t]*```$")

	questionPath = regexp.MustCompile(`^questions\.(\d+)(?:\.([A-Za-z_]+))?`)
)

const quizSchemaJSON = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question", "correct_answer"],
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "correct_answer": {"type": "string", "minLength": 1},
          "type": {"type": "string"},
          "options": {"type": "array", "items": {"type": "string"}},
          "explanation": {"type": "string"}
        }
      }
    }
  }
}`

var quizSchema = mustSchema(quizSchemaJSON)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid quiz schema: %v", err))
	}
	return schema
}

// StripCodeFence removes a markdown code fence wrapping the whole text, such as
// "```json ... ```". Text without a fence is returned trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseQuiz decodes the model's text into a quiz payload and checks that every
// question carries a question and a correct answer.
func ParseQuiz(text string) (*models.QuizPayload, error) {
	cleaned := StripCodeFence(text)

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, &PayloadError{Preview: preview(cleaned, 500), Err: err}
	}

	result, err := quizSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, &PayloadError{Preview: preview(cleaned, 500), Err: err}
	}
	if !result.Valid() {
		return nil, schemaError(result.Errors()[0], cleaned)
	}

	var payload models.QuizPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &PayloadError{Preview: preview(cleaned, 500), Err: err}
	}

	for i, q := range payload.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return nil, &QuestionError{Index: i, Field: "question", Reason: "is empty"}
		}
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return nil, &QuestionError{Index: i, Field: "correct_answer", Reason: "is empty"}
		}
	}
	return &payload, nil
}

func schemaError(re gojsonschema.ResultError, cleaned string) error {
	m := questionPath.FindStringSubmatch(re.Field())
	if m == nil {
		if re.Field() == "questions" || re.Details()["property"] == "questions" {
			return ErrNoQuestions
		}
		return &PayloadError{Preview: preview(cleaned, 500), Err: fmt.Errorf("%s: %s", re.Field(), re.Description())}
	}

	idx, _ := strconv.Atoi(m[1])
	field := m[2]
	reason := re.Description()
	if re.Type() == "required" {
		if p, ok := re.Details()["property"].(string); ok {
			field = p
		}
		reason = "is missing"
	}
	if field == "" {
		field = "question"
	}
	return &QuestionError{Index: idx, Field: field, Reason: reason}
}

// Normalize fills defaults and enforces the option rules for each question
// type. Questions without a type take the requested mode, or mcq for mixed.
func Normalize(p *models.QuizPayload, mode string) error {
	mode = NormalizeMode(mode)
	for i := range p.Questions {
		q := &p.Questions[i]
		q.Question = strings.TrimSpace(q.Question)
		q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
		q.Explanation = strings.TrimSpace(q.Explanation)

		q.Type = canonicalType(q.Type)
		if q.Type == "" {
			if mode != models.ModeMixed {
				q.Type = mode
			} else {
				q.Type = models.TypeMCQ
			}
		}

		switch q.Type {
		case models.TypeMCQ:
			if len(q.Options) != 4 {
				return &QuestionError{Index: i, Field: "options", Reason: fmt.Sprintf("has %d entries, mcq needs 4", len(q.Options))}
			}
		case models.TypeTrueFalse:
			q.Options = append([]string(nil), models.TrueFalseOptions...)
			switch strings.ToLower(q.CorrectAnswer) {
			case "true", "t":
				q.CorrectAnswer = "True"
			case "false", "f":
				q.CorrectAnswer = "False"
			}
		case models.TypeFillBlank, models.TypeEssay:
			q.Options = []string{}
		default:
			return &QuestionError{Index: i, Field: "type", Reason: fmt.Sprintf("%q is not a known question type", q.Type)}
		}
	}
	return nil
}

func canonicalType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	switch t {
	case "multiple_choice", "multiple-choice", "multiplechoice":
		return models.TypeMCQ
	case "true/false", "truefalse", "true-false", "tf", "boolean":
		return models.TypeTrueFalse
	case "fill_in_the_blank", "fill-in-the-blank", "fill-blank", "fillblank", "blank":
		return models.TypeFillBlank
	case "long_answer", "open":
		return models.TypeEssay
	}
	return t
}

// TypeCounts tallies questions per type. Untyped questions count as mcq.
func TypeCounts(questions []models.Question) map[string]int {
	counts := make(map[string]int)
	for _, q := range questions {
		t := q.Type
		if t == "" {
			t = models.TypeMCQ
		}
		counts[t]++
	}
	return counts
}
