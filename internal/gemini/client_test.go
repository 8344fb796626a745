package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"quizgo/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var longText = strings.Repeat("The mitochondria is the powerhouse of the cell. ", 5)

func envelopeJSON(t *testing.T, text string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}, "role": "model"}},
		},
		"usageMetadata": map[string]any{"promptTokenCount": 10, "candidatesTokenCount": 20, "totalTokenCount": 30},
	})
	require.NoError(t, err)
	return body
}

func newTestServer(t *testing.T, status int, body []byte, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-goog-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var req generateRequest
		if assert.NoError(t, json.Unmarshal(raw, &req)) && assert.Len(t, req.Contents, 1) && assert.Len(t, req.Contents[0].Parts, 1) {
			assert.Contains(t, req.Contents[0].Parts[0].Text, "mitochondria")
		}

		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClientWithProvider(NewRESTProvider(srv.Client(), srv.URL, "test-model", "test-key"), "test-key", "test-model")
}

func TestGenerateQuizTrueFalse(t *testing.T) {
	var calls int32
	payload := `{"questions":[
		{"question":"Q1","type":"true_false","correct_answer":"True","explanation":"e"},
		{"question":"Q2","type":"true_false","options":["Yes","No"],"correct_answer":"false"},
		{"question":"Q3","correct_answer":"True"},
		{"question":"Q4","type":"true_false","options":["True","False"],"correct_answer":"False"}
	]}`
	srv := newTestServer(t, http.StatusOK, envelopeJSON(t, "```json\n"+payload+"\n```"), &calls)

	res, err := newTestClient(srv).GenerateQuiz(context.Background(), longText, PromptParams{Count: 4, Difficulty: "Medium", Mode: "true_false"})
	require.NoError(t, err)
	require.Len(t, res.Questions, 4)
	for _, q := range res.Questions {
		assert.Equal(t, "true_false", q.Type)
		assert.Equal(t, []string{"True", "False"}, q.Options)
	}
	assert.Equal(t, "False", res.Questions[1].CorrectAnswer)
	assert.Equal(t, map[string]int{"true_false": 4}, res.TypeCounts)
	assert.Equal(t, "test-model", res.Model)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGenerateQuizInsufficientInputSkipsRemote(t *testing.T) {
	var calls int32
	srv := newTestServer(t, http.StatusOK, envelopeJSON(t, `{}`), &calls)
	client := newTestClient(srv)

	for _, text := range []string{"", "   ", strings.Repeat("x", MinSourceChars-1), "  " + strings.Repeat("y", MinSourceChars-1) + "  \n"} {
		_, err := client.GenerateQuiz(context.Background(), text, PromptParams{Count: 4, Difficulty: "Easy", Mode: "mcq"})
		assert.ErrorIs(t, err, ErrInsufficientInput)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGenerateQuizMissingCredential(t *testing.T) {
	client, err := NewClient(context.Background(), config.AIConfig{Provider: "rest", Model: "m", Endpoint: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.False(t, client.Ready())
	assert.Equal(t, "none", client.ProviderName())

	_, err = client.GenerateQuiz(context.Background(), longText, PromptParams{Count: 4, Mode: "mcq"})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestGenerateQuizNon200(t *testing.T) {
	var calls int32
	srv := newTestServer(t, http.StatusTooManyRequests, []byte(`{"error":{"message":"quota"}}`), &calls)

	_, err := newTestClient(srv).GenerateQuiz(context.Background(), longText, PromptParams{Count: 4, Mode: "mcq"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Contains(t, se.Body, "quota")
}

func TestGenerateQuizMalformedEnvelope(t *testing.T) {
	var calls int32
	srv := newTestServer(t, http.StatusOK, []byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`), &calls)

	_, err := newTestClient(srv).GenerateQuiz(context.Background(), longText, PromptParams{Count: 4, Mode: "mcq"})
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestGenerateQuizNonJSONBody(t *testing.T) {
	var calls int32
	srv := newTestServer(t, http.StatusOK, []byte(`<html>oops</html>`), &calls)

	_, err := newTestClient(srv).GenerateQuiz(context.Background(), longText, PromptParams{Count: 4, Mode: "mcq"})
	var envErr *EnvelopeError
	require.True(t, errors.As(err, &envErr))
	assert.Equal(t, "body", envErr.Field)
}

func TestGenerateQuizTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClientWithProvider(NewRESTProvider(nil, url, "m", "k"), "k", "m")
	_, err := client.GenerateQuiz(context.Background(), longText, PromptParams{Count: 4, Mode: "mcq"})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestGenerateQuizMalformedPayload(t *testing.T) {
	var calls int32
	srv := newTestServer(t, http.StatusOK, envelopeJSON(t, "not json at all"), &calls)

	_, err := newTestClient(srv).GenerateQuiz(context.Background(), longText, PromptParams{Count: 4, Mode: "mcq"})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestNewClientSelectsRESTProvider(t *testing.T) {
	client, err := NewClient(context.Background(), config.AIConfig{APIKey: "k", Provider: "rest", Model: "m", Endpoint: "http://localhost"})
	require.NoError(t, err)
	assert.True(t, client.Ready())
	assert.Equal(t, "rest", client.ProviderName())
	assert.NoError(t, client.Close())
}
