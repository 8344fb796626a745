package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestWithContextFallsBackToProcessLogger(t *testing.T) {
	l := New("debug", "text")
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.Same(t, l, WithContext(context.Background()))
}

func TestWithContextUsesRequestEntry(t *testing.T) {
	l := New("info", "json")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	ctx := NewContext(context.Background(), l.WithField("request_id", "abc"))
	WithContext(ctx).Info("hello")

	assert.Contains(t, buf.String(), `"request_id":"abc"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestNewDefaultsUnknownLevelToInfo(t *testing.T) {
	l := New("chatty", "")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}
