package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
)

var (
	reYouTubeID     = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)
	reTranscriptXML = regexp.MustCompile(`<text start="([^"]*)" dur="([^"]*)"[^>]*>([^<]*)</text>`)

	ErrInvalidVideo = errors.New("invalid YouTube URL or video ID")
	ErrNoCaptions   = errors.New("no captions available for video")
)

// Transcripts fetches YouTube caption tracks as a text source.
type Transcripts struct {
	HTTPClient *http.Client
	// BaseURL is the watch page host, overridable for tests.
	BaseURL string
}

func NewTranscripts(client *http.Client) *Transcripts {
	if client == nil {
		client = http.DefaultClient
	}
	return &Transcripts{HTTPClient: client, BaseURL: "https://www.youtube.com"}
}

// VideoID returns the 11 character id from a URL, or the input itself when it
// already is an id.
func VideoID(url string) (string, error) {
	url = strings.TrimSpace(url)
	if len(url) == 11 && !strings.ContainsAny(url, "/?&=") {
		return url, nil
	}
	if m := reYouTubeID.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	return "", ErrInvalidVideo
}

// Fetch returns the caption text for url in lang, or the first track when lang
// is empty.
func (t *Transcripts) Fetch(ctx context.Context, url, lang string) (string, error) {
	id, err := VideoID(url)
	if err != nil {
		return "", err
	}

	page, err := t.get(ctx, fmt.Sprintf("%s/watch?v=%s", t.BaseURL, id))
	if err != nil {
		return "", fmt.Errorf("failed to fetch video page: %w", err)
	}

	trackURL, err := captionTrack(page, lang)
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, id)
	}

	body, err := t.get(ctx, trackURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch transcript: %w", err)
	}

	var b strings.Builder
	for _, m := range reTranscriptXML.FindAllStringSubmatch(body, -1) {
		b.WriteString(html.UnescapeString(m[3]))
		b.WriteString(" ")
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrNoCaptions, id)
	}
	return text, nil
}

func captionTrack(page, lang string) (string, error) {
	parts := strings.SplitN(page, `"captions":`, 2)
	if len(parts) < 2 {
		return "", ErrNoCaptions
	}
	end := strings.Index(parts[1], `,"videoDetails`)
	if end < 0 {
		return "", ErrNoCaptions
	}

	var captions struct {
		Renderer struct {
			Tracks []struct {
				BaseURL      string `json:"baseUrl"`
				LanguageCode string `json:"languageCode"`
			} `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	}
	if err := json.Unmarshal([]byte(parts[1][:end]), &captions); err != nil {
		return "", fmt.Errorf("failed to parse captions data: %w", err)
	}

	tracks := captions.Renderer.Tracks
	if len(tracks) == 0 {
		return "", ErrNoCaptions
	}
	if lang == "" {
		return tracks[0].BaseURL, nil
	}
	for _, tr := range tracks {
		if tr.LanguageCode == lang {
			return tr.BaseURL, nil
		}
	}
	return "", fmt.Errorf("%w in language %s", ErrNoCaptions, lang)
}

func (t *Transcripts) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
