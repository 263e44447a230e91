package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Summarizer turns journal text into a short summary
type Summarizer interface {
	Summarize(ctx context.Context, text string) (summary, model string, err error)
}

const summarizeInstruction = "You summarize a personal journal entry for its author in two or three warm, " +
	"concise sentences. Do not invent details."

// OpenAISummarizer calls an OpenAI-compatible chat completions endpoint
type OpenAISummarizer struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAISummarizer creates a summarizer. httpClient may be nil.
func NewOpenAISummarizer(baseURL, apiKey, model string, httpClient *http.Client) *OpenAISummarizer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAISummarizer{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		model:      strings.TrimSpace(model),
		httpClient: httpClient,
	}
}

// Summarize implements Summarizer
func (s *OpenAISummarizer) Summarize(ctx context.Context, text string) (string, string, error) {
	text = strings.TrimSpace(text)
	if s.apiKey == "" {
		return "", "", fmt.Errorf("summarizer api key is not configured")
	}
	if text == "" {
		return "", "", fmt.Errorf("journal content is empty")
	}

	requestBody, err := json.Marshal(map[string]any{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "system", "content": summarizeInstruction},
			{"role": "user", "content": text},
		},
		"temperature": 0.4,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal summarize request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return "", "", fmt.Errorf("build summarize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	res, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("summarize request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return "", "", fmt.Errorf("read summarize error body: %w", err)
		}
		return "", "", fmt.Errorf("summarize request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("decode summarize response: %w", err)
	}
	for _, choice := range payload.Choices {
		if summary := strings.TrimSpace(choice.Message.Content); summary != "" {
			model := payload.Model
			if model == "" {
				model = s.model
			}
			return summary, model, nil
		}
	}
	return "", "", fmt.Errorf("summarize response missing content")
}
