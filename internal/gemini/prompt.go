package gemini

import (
	"fmt"
	"strings"

	"quizgo/internal/models"
)

// MaxSourceChars is how much of the extracted text is sent to the model.
const MaxSourceChars = 3500

type modeTemplate struct {
	instruction string
	example     string
}

var modeTemplates = map[string]modeTemplate{
	models.TypeMCQ: {
		instruction: "Write ONLY multiple choice questions, each with exactly 4 options labelled A), B), C), D).",
		example: `{
      "question": "What is the primary goal of database normalization?",
      "type": "mcq",
      "options": ["A) Increase storage use", "B) Eliminate data redundancy", "C) Slow down queries", "D) Add complexity"],
      "correct_answer": "B",
      "explanation": "Normalization removes redundancy and protects data integrity."
    }`,
	},
	models.TypeTrueFalse: {
		instruction: "Write ONLY true/false questions. Options are always [\"True\", \"False\"].",
		example: `{
      "question": "Database locks are always required to keep data consistent.",
      "type": "true_false",
      "options": ["True", "False"],
      "correct_answer": "False",
      "explanation": "Optimistic concurrency control keeps data consistent without locks."
    }`,
	},
	models.TypeFillBlank: {
		instruction: "Write ONLY fill-in-the-blank questions, using _______ for each blank.",
		example: `{
      "question": "The _______ protocol makes concurrent transactions appear to run in _______ order.",
      "type": "fill_blank",
      "options": [],
      "correct_answer": "two-phase locking; serial",
      "explanation": "Two-phase locking guarantees serializability."
    }`,
	},
	models.TypeEssay: {
		instruction: "Write ONLY open essay questions that require a detailed, reasoned answer.",
		example: `{
      "question": "Explain the ACID properties of a database system and give a real-world use for each.",
      "type": "essay",
      "options": [],
      "correct_answer": "A complete answer covers atomicity, consistency, isolation and durability, each with an example.",
      "explanation": "Look for a correct definition and a practical example of every property."
    }`,
	},
}

const mixedInstruction = "Write a balanced mix of all four question types: mcq (4 options A-D), true_false (options [\"True\", \"False\"]), fill_blank (use _______, no options) and essay (no options)."

const promptTemplate = `You are writing a quiz from the source material below.

SOURCE MATERIAL:
%s

REQUIREMENTS:
- Write exactly %d questions
- Difficulty: %s
- Question types: %s
- Questions must test understanding, not only recall
- Every question needs a short explanation of the correct answer
- Questions must be unambiguous and based strictly on the source material
- Every question has a "type" field set to one of mcq, true_false, fill_blank, essay

RESPONSE FORMAT (JSON ONLY):
{
  "questions": [
    %s
  ]
}

Respond with the JSON object only. No markdown, no commentary.`

// PromptParams are the generation settings chosen by the user.
type PromptParams struct {
	Count      int
	Difficulty string
	Mode       string
}

// NormalizeMode maps an unknown or empty mode to mixed.
func NormalizeMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if _, ok := modeTemplates[mode]; ok {
		return mode
	}
	return models.ModeMixed
}

// BuildPrompt renders the instruction sent to the model. The source text is
// cut to MaxSourceChars runes.
func BuildPrompt(text string, p PromptParams) string {
	var instruction, example string
	if tmpl, ok := modeTemplates[NormalizeMode(p.Mode)]; ok {
		instruction, example = tmpl.instruction, tmpl.example
	} else {
		instruction = mixedInstruction
		example = modeTemplates[models.TypeMCQ].example + ",\n    " + modeTemplates[models.TypeTrueFalse].example
	}

	return fmt.Sprintf(promptTemplate, truncateRunes(text, MaxSourceChars), p.Count, p.Difficulty, instruction, example)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
