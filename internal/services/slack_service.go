package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const slackPostMessageURL = "https://slack.com/api/chat.postMessage"

// SlackService posts replies into Slack channels. Sends are rate-limited to
// Slack's chat.postMessage allowance (~1 message per second per channel).
type SlackService struct {
	botToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSlackService creates a new Slack reply client
func NewSlackService(botToken string) *SlackService {
	return &SlackService{
		botToken: botToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(1), 2),
	}
}

// Enabled reports whether a bot token is configured
func (s *SlackService) Enabled() bool {
	return s.botToken != ""
}

// PostMessage sends a text reply into a channel
func (s *SlackService) PostMessage(ctx context.Context, channel, text string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{
		"channel": channel,
		"text":    text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, slackPostMessageURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	var apiResp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return fmt.Errorf("slack response unreadable: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("slack API error: %s", apiResp.Error)
	}

	log.Printf("💬 [SLACK] Replied in channel %s", channel)
	return nil
}
