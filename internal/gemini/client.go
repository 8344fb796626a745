package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quizgo/internal/config"
	"quizgo/internal/logger"
	"quizgo/internal/models"

	"github.com/sirupsen/logrus"
)

// MinSourceChars is the shortest source text worth sending to the model.
const MinSourceChars = 100

// Provider performs the single generateContent call.
type Provider interface {
	Generate(ctx context.Context, prompt string) (*Envelope, error)
	Name() string
}

// Result is a parsed and normalised generation.
type Result struct {
	Questions  []models.Question
	TypeCounts map[string]int
	Model      string
}

// Client runs prompt building, the provider call and response parsing.
type Client struct {
	provider Provider
	apiKey   string
	model    string
}

// NewClient builds a Client for cfg. An empty API key is not an error here;
// GenerateQuiz reports ErrMissingCredential instead so the server can start.
func NewClient(ctx context.Context, cfg config.AIConfig) (*Client, error) {
	c := &Client{apiKey: cfg.APIKey, model: cfg.Model}
	if cfg.APIKey == "" {
		logger.WithContext(ctx).Warn("AI credential not set (GOOGLE_API_KEY); quiz generation will fail until it is configured")
		return c, nil
	}

	switch cfg.Provider {
	case "sdk":
		p, err := NewSDKProvider(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		c.provider = p
	default:
		c.provider = NewRESTProvider(&http.Client{Timeout: cfg.Timeout}, cfg.Endpoint, cfg.Model, cfg.APIKey)
	}
	return c, nil
}

// NewClientWithProvider is used when the provider is constructed elsewhere.
func NewClientWithProvider(p Provider, apiKey, model string) *Client {
	return &Client{provider: p, apiKey: apiKey, model: model}
}

// Ready reports whether a credential is loaded.
func (c *Client) Ready() bool {
	return c.apiKey != "" && c.provider != nil
}

// ProviderName is "rest", "sdk" or "none".
func (c *Client) ProviderName() string {
	if c.provider == nil {
		return "none"
	}
	return c.provider.Name()
}

func (c *Client) Model() string { return c.model }

// Close releases the provider if it holds resources.
func (c *Client) Close() error {
	if closer, ok := c.provider.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// GenerateQuiz turns source text into validated questions.
func (c *Client) GenerateQuiz(ctx context.Context, text string, p PromptParams) (*Result, error) {
	log := logger.WithContext(ctx)

	if !c.Ready() {
		return nil, ErrMissingCredential
	}
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < MinSourceChars {
		return nil, fmt.Errorf("%w: %d characters, need at least %d", ErrInsufficientInput, len([]rune(trimmed)), MinSourceChars)
	}

	p.Mode = NormalizeMode(p.Mode)
	prompt := BuildPrompt(trimmed, p)

	log.WithFields(logrus.Fields{
		"provider":   c.provider.Name(),
		"count":      p.Count,
		"difficulty": p.Difficulty,
		"mode":       p.Mode,
	}).Info("Requesting quiz generation")

	start := time.Now()
	env, err := c.provider.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if env.UsageMetadata != nil {
		log.WithFields(logrus.Fields{
			"prompt_tokens":    env.UsageMetadata.PromptTokenCount,
			"candidate_tokens": env.UsageMetadata.CandidatesTokenCount,
			"elapsed":          time.Since(start).String(),
		}).Debug("AI usage")
	}

	raw, err := ExtractText(env)
	if err != nil {
		return nil, err
	}

	payload, err := ParseQuiz(raw)
	if err != nil {
		var pe *PayloadError
		if errors.As(err, &pe) {
			log.WithError(pe.Err).WithField("preview", pe.Preview).Error("AI returned unparseable quiz JSON")
		}
		return nil, err
	}
	if err := Normalize(payload, p.Mode); err != nil {
		return nil, err
	}

	counts := TypeCounts(payload.Questions)
	log.WithFields(logrus.Fields{
		"questions":   len(payload.Questions),
		"type_counts": counts,
		"elapsed":     time.Since(start).String(),
	}).Info("Quiz generated")

	return &Result{Questions: payload.Questions, TypeCounts: counts, Model: c.model}, nil
}
