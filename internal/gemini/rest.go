package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"quizgo/internal/logger"
)

const maxEnvelopeBytes = 10 << 20

type generateRequest struct {
	Contents []requestContent `json:"contents"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

// RESTProvider calls the generateContent HTTP endpoint directly.
type RESTProvider struct {
	httpClient *http.Client
	endpoint   string
	model      string
	apiKey     string
}

func NewRESTProvider(httpClient *http.Client, endpoint, model, apiKey string) *RESTProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RESTProvider{httpClient: httpClient, endpoint: endpoint, model: model, apiKey: apiKey}
}

func (p *RESTProvider) Name() string { return "rest" }

func (p *RESTProvider) Generate(ctx context.Context, prompt string) (*Envelope, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []requestContent{{Parts: []requestPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode AI request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.endpoint, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.WithContext(ctx).WithField("status", resp.StatusCode).
			WithField("body", preview(string(respBody), 300)).
			Error("AI endpoint returned an error status")
		return nil, &StatusError{Code: resp.StatusCode, Body: preview(string(respBody), 300)}
	}

	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &EnvelopeError{Field: "body", Err: err}
	}
	return &env, nil
}
