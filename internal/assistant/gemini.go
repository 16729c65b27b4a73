// Package assistant routes free-text commands to planner views and answers
// everything else through a generative-text API.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiModel   = "gemini-1.5-flash"

	systemPrompt = "You are a friendly assistant inside a personal task planner. " +
		"Answer the user's message briefly and helpfully. Message: %q"
)

// Route names a planner view a free-text command can open.
type Route string

const (
	RouteTasks     Route = "tasks"
	RouteCalendar  Route = "calendar"
	RouteAnalytics Route = "analytics"
	RouteDigest    Route = "digest"
)

var routeKeywords = map[Route][]string{
	RouteCalendar:  {"open calendar", "show calendar", "mở lịch"},
	RouteAnalytics: {"open analytics", "show analytics", "statistics", "thống kê"},
	RouteDigest:    {"open email", "send schedule", "today's schedule", "gửi lịch hôm nay"},
	RouteTasks:     {"open tasks", "show tasks", "my tasks", "mở công việc"},
}

// DetectRoute checks a message for a navigation command.
func DetectRoute(message string) (Route, bool) {
	lower := strings.ToLower(message)
	for _, route := range []Route{RouteCalendar, RouteAnalytics, RouteDigest, RouteTasks} {
		for _, kw := range routeKeywords[route] {
			if strings.Contains(lower, kw) {
				return route, true
			}
		}
	}
	return "", false
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Reply answers a free-text message. Without an API key it degrades to a
// fixed hint instead of failing.
func (c *Client) Reply(ctx context.Context, message string) (string, error) {
	if !c.Configured() {
		return "The assistant is not configured. Try /help for the available commands.", nil
	}

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: fmt.Sprintf(systemPrompt, message)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, geminiModel, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call assistant: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("assistant quota exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("assistant: %s (status %d)", parsed.Error.Message, resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("assistant returned no content")
	}

	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}
