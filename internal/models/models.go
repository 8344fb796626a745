package models

import (
	"time"
)

// Question types. Mode additionally accepts ModeMixed.
const (
	TypeMCQ       = "mcq"
	TypeTrueFalse = "true_false"
	TypeFillBlank = "fill_blank"
	TypeEssay     = "essay"
	ModeMixed     = "mixed"
)

// Roles
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Modes lists every accepted question_types value.
var Modes = []string{TypeMCQ, TypeTrueFalse, TypeFillBlank, TypeEssay, ModeMixed}

// TrueFalseOptions is the fixed option list for true_false questions.
var TrueFalseOptions = []string{"True", "False"}

// Question is a single generated quiz question.
type Question struct {
	Question      string   `json:"question"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// QuizPayload is the JSON document the AI returns.
type QuizPayload struct {
	Questions []Question `json:"questions"`
}

// Parameters are the generation settings stored with an archive.
type Parameters struct {
	Count      int            `json:"count"`
	Difficulty string         `json:"difficulty"`
	Mode       string         `json:"mode"`
	TypeCounts map[string]int `json:"type_counts,omitempty"`
}

// Archive is the persisted result of one generation. It is written once and
// never modified.
type Archive struct {
	SourceDocumentName  string     `json:"source_document_name"`
	OriginalFilename    string     `json:"original_filename,omitempty"`
	GenerationTimestamp time.Time  `json:"generation_timestamp"`
	Model               string     `json:"model,omitempty"`
	Parameters          Parameters `json:"parameters"`
	Questions           []Question `json:"questions"`
}

// User is a registered account.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"size:16;not null;default:student" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Quiz is the relational record pointing at an Archive by filename.
type Quiz struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	ResultFilename   string    `gorm:"not null" json:"result_filename"`
	OriginalFilename string    `json:"original_filename"`
	NumQuestions     int       `json:"num_questions"`
	Difficulty       string    `json:"difficulty"`
	Mode             string    `json:"mode"`
	CreatedAt        time.Time `json:"created_at"`
}

// QuizWithCreator is a Quiz joined with its owner's display name.
type QuizWithCreator struct {
	Quiz
	CreatorName string `json:"creator_name"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
