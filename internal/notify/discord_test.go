package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNewDiscordDisabled(t *testing.T) {
	d := NewDiscord("", quietLogger())
	assert.Nil(t, d)
	d.Notify(Embed{Title: "ignored"})
	d.Wait()
}

func TestNotifyPostsEmbed(t *testing.T) {
	var (
		mu  sync.Mutex
		got WebhookPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, quietLogger())
	require.NotNil(t, d)
	d.Notify(ErrorEmbed("Generate Quiz", errors.New("boom"), http.StatusInternalServerError, "/upload", 7))
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, botUsername, got.Username)
	require.Len(t, got.Embeds, 1)
	e := got.Embeds[0]
	assert.Equal(t, "🚨 API Error: Generate Quiz", e.Title)
	assert.Contains(t, e.Description, "boom")
	assert.NotEmpty(t, e.Timestamp)
	require.Len(t, e.Fields, 3)
	assert.Equal(t, "`7`", e.Fields[0].Value)
	assert.Equal(t, "500", e.Fields[1].Value)
	assert.Equal(t, "/upload", e.Fields[2].Value)
}

func TestSendReportsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown webhook", http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, quietLogger())
	err := d.Send(context.Background(), Embed{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestErrorEmbedWithoutUser(t *testing.T) {
	e := ErrorEmbed("Login", errors.New("db down"), 500, "/api/login", 0)
	require.Len(t, e.Fields, 2)
	assert.Equal(t, "HTTP Status", e.Fields[0].Name)
}
