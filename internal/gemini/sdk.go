package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// SDKProvider uses the Go generative AI SDK. Its responses are converted to an
// Envelope so both providers share the same parsing path.
type SDKProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewSDKProvider(ctx context.Context, apiKey, modelName string) (*SDKProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"

	return &SDKProvider{client: client, model: model}, nil
}

func (p *SDKProvider) Name() string { return "sdk" }

func (p *SDKProvider) Generate(ctx context.Context, prompt string) (*Envelope, error) {
	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return envelopeFromSDK(resp), nil
}

func (p *SDKProvider) Close() error {
	return p.client.Close()
}

func envelopeFromSDK(resp *genai.GenerateContentResponse) *Envelope {
	env := &Envelope{}
	if resp == nil {
		return env
	}

	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		cand := Candidate{FinishReason: fmt.Sprint(c.FinishReason)}
		if c.Content != nil {
			content := Content{Role: c.Content.Role}
			for _, part := range c.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					s := string(t)
					content.Parts = append(content.Parts, Part{Text: &s})
				}
			}
			cand.Content.Items = []Content{content}
		}
		env.Candidates = append(env.Candidates, cand)
	}

	if u := resp.UsageMetadata; u != nil {
		env.UsageMetadata = &UsageMetadata{
			PromptTokenCount:     u.PromptTokenCount,
			CandidatesTokenCount: u.CandidatesTokenCount,
			TotalTokenCount:      u.TotalTokenCount,
		}
	}
	return env
}
