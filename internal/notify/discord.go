package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const botUsername = "QuizGo Notifier"

// Discord embed structures (subset of the webhook API)
type EmbedFooter struct {
	Text    string `json:"text,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"` // ISO8601
	Color       int          `json:"color,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// WebhookPayload is the body Discord expects for webhook requests with embeds.
type WebhookPayload struct {
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Content   string  `json:"content,omitempty"`
	Embeds    []Embed `json:"embeds"`
}

// Discord posts embeds to a webhook. A nil *Discord is valid and drops
// everything.
type Discord struct {
	webhookURL string
	client     *http.Client
	log        logrus.FieldLogger
	wg         sync.WaitGroup
}

// NewDiscord returns nil when webhookURL is empty.
func NewDiscord(webhookURL string, log logrus.FieldLogger) *Discord {
	if webhookURL == "" {
		log.Warn("DISCORD_WEBHOOK_URL not set. Error notifications are disabled.")
		return nil
	}
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		log:        log,
	}
}

// Notify sends embed in the background.
func (d *Discord) Notify(embed Embed) {
	if d == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.Send(ctx, embed); err != nil {
			d.log.WithError(err).Error("Failed to send Discord notification")
			return
		}
		d.log.WithField("title", embed.Title).Info("Sent Discord notification")
	}()
}

// Wait blocks until pending notifications finish.
func (d *Discord) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}

// Send posts embed and waits for Discord's answer.
func (d *Discord) Send(ctx context.Context, embed Embed) error {
	if embed.Timestamp == "" {
		embed.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(WebhookPayload{Username: botUsername, Embeds: []Embed{embed}})
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create Discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach Discord: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord webhook returned status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// ErrorEmbed describes a failed request.
func ErrorEmbed(action string, err error, status int, path string, userID uint) Embed {
	e := Embed{
		Title:       fmt.Sprintf("🚨 API Error: %s", action),
		Description: fmt.Sprintf("**Error Details:**\n```%s```", err.Error()),
		Color:       0xFF0000,
	}
	if userID != 0 {
		e.Fields = append(e.Fields, EmbedField{Name: "User ID", Value: fmt.Sprintf("`%d`", userID), Inline: true})
	}
	e.Fields = append(e.Fields,
		EmbedField{Name: "HTTP Status", Value: fmt.Sprintf("%d", status), Inline: true},
		EmbedField{Name: "Path", Value: path},
	)
	return e
}
