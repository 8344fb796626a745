package gemini

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Envelope is the generateContent response body.
type Envelope struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

type Candidate struct {
	Content      ContentField `json:"content"`
	FinishReason string       `json:"finishReason,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text *string `json:"text,omitempty"`
}

type UsageMetadata struct {
	PromptTokenCount     int32 `json:"promptTokenCount"`
	CandidatesTokenCount int32 `json:"candidatesTokenCount"`
	TotalTokenCount      int32 `json:"totalTokenCount"`
}

// ContentField accepts either a single content object or a list of them.
type ContentField struct {
	Items []Content
}

func (c *ContentField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		c.Items = nil
		return nil
	}
	if b[0] == '[' {
		return json.Unmarshal(b, &c.Items)
	}
	var one Content
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	c.Items = []Content{one}
	return nil
}

func (c ContentField) MarshalJSON() ([]byte, error) {
	if len(c.Items) == 1 {
		return json.Marshal(c.Items[0])
	}
	return json.Marshal(c.Items)
}

// ExtractText returns candidates[0].content[0].parts[0].text.
func ExtractText(env *Envelope) (string, error) {
	if env == nil || len(env.Candidates) == 0 {
		return "", &EnvelopeError{Field: "candidates", Err: errMissing}
	}
	items := env.Candidates[0].Content.Items
	if len(items) == 0 {
		return "", &EnvelopeError{Field: "candidates[0].content", Err: errMissing}
	}
	parts := items[0].Parts
	if len(parts) == 0 {
		return "", &EnvelopeError{Field: "candidates[0].content.parts", Err: errMissing}
	}
	if parts[0].Text == nil {
		return "", &EnvelopeError{Field: "candidates[0].content.parts[0].text", Err: errMissing}
	}
	if strings.TrimSpace(*parts[0].Text) == "" {
		return "", &EnvelopeError{Field: "candidates[0].content.parts[0].text", Err: errEmpty}
	}
	return *parts[0].Text, nil
}
