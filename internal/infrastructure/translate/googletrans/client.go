package googletrans

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/deenlabs/agent-deen/internal/core/ports"
)

const defaultEndpoint = "https://translate.googleapis.com/translate_a/single"

// Client uses the unauthenticated web translate endpoint. It is free but
// unofficial, so calls are paced with a local rate limiter and callers must
// treat every failure as survivable.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New builds a client pacing at rps requests per second (burst 1).
func New(endpoint string, rps float64) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Translate converts text between ISO 639-1 codes; sourceLang may be "auto".
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if sourceLang == "" {
		sourceLang = "auto"
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("translate rate wait: %w", err)
	}

	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", sourceLang)
	query.Set("tl", targetLang)
	query.Set("dt", "t")
	query.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create translate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("translate status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read translate response: %w", err)
	}

	translated, err := parseTranslation(body)
	if err != nil {
		return "", err
	}
	return translated, nil
}

// parseTranslation unpacks the endpoint's nested-array format: the first
// element is a list of segments, each segment's first element is the
// translated text.
func parseTranslation(body []byte) (string, error) {
	var payload []any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("translate response is empty")
	}
	segments, ok := payload[0].([]any)
	if !ok {
		return "", fmt.Errorf("translate response has unexpected shape")
	}

	var b strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			b.WriteString(s)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("translate response has no text segments")
	}
	return b.String(), nil
}

var _ ports.Translator = (*Client)(nil)
