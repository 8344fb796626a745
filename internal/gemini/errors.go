package gemini

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredential    = errors.New("AI credential not configured")
	ErrInsufficientInput    = errors.New("insufficient source text for question generation")
	ErrTransport            = errors.New("AI request failed")
	ErrMalformedEnvelope    = errors.New("malformed AI response envelope")
	ErrMalformedPayload     = errors.New("AI response is not valid quiz JSON")
	ErrNoQuestions          = errors.New("AI response contained no questions")
	ErrMissingQuestionField = errors.New("generated question is incomplete")

	errMissing = errors.New("missing")
	errEmpty   = errors.New("empty")
)

// StatusError is returned when the AI endpoint answers with anything but 200.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("AI endpoint returned status %d", e.Code)
}

// EnvelopeError names the level of the envelope that was absent, empty or of
// the wrong shape.
type EnvelopeError struct {
	Field string
	Err   error
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrMalformedEnvelope, e.Field, e.Err)
}

func (e *EnvelopeError) Unwrap() error { return e.Err }

func (e *EnvelopeError) Is(target error) bool { return target == ErrMalformedEnvelope }

// PayloadError carries a short preview of text that failed to parse. The
// preview is for server logs only.
type PayloadError struct {
	Preview string
	Err     error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%v: %v", ErrMalformedPayload, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

func (e *PayloadError) Is(target error) bool { return target == ErrMalformedPayload }

// QuestionError points at one question (zero based) that failed validation.
type QuestionError struct {
	Index  int
	Field  string
	Reason string
}

func (e *QuestionError) Error() string {
	return fmt.Sprintf("question %d is incomplete: %s %s", e.Index+1, e.Field, e.Reason)
}

func (e *QuestionError) Is(target error) bool { return target == ErrMissingQuestionField }

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
