package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bloom-backend/internal/models"
	"bloom-backend/internal/services"
)

// StatusError is returned for any non-2xx response
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the Bloom API and edge services
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for baseURL. token may be empty for sign-in calls.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// SetToken replaces the bearer token used for later calls
func (c *Client) SetToken(token string) {
	c.token = token
}

// SignUp creates an account and returns the issued token
func (c *Client) SignUp(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	var resp services.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/signup", services.AuthRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignIn exchanges credentials for a token
func (c *Client) SignIn(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	var resp services.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/signin", services.AuthRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRequests returns the caller's incoming, outgoing and history views
func (c *Client) ListRequests(ctx context.Context) (*services.CoupleRequestViews, error) {
	var views services.CoupleRequestViews
	if err := c.do(ctx, http.MethodGet, "/api/v1/couple-requests", nil, &views); err != nil {
		return nil, err
	}
	return &views, nil
}

// SendRequest sends a couple request to the owner of handle
func (c *Client) SendRequest(ctx context.Context, handle string, message *string) (*models.CoupleRequest, error) {
	var req models.CoupleRequest
	body := services.SendRequest{RecipientHandle: handle, Message: message}
	if err := c.do(ctx, http.MethodPost, "/api/v1/couple-requests", body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// AcceptRequest accepts a pending request and returns the couple id
func (c *Client) AcceptRequest(ctx context.Context, requestID string) (string, error) {
	var resp struct {
		CoupleID string `json:"couple_id"`
	}
	if err := c.do(ctx, http.MethodPost, requestPath(requestID, "accept"), nil, &resp); err != nil {
		return "", err
	}
	return resp.CoupleID, nil
}

// DeclineRequest declines a pending request
func (c *Client) DeclineRequest(ctx context.Context, requestID string) error {
	return c.do(ctx, http.MethodPost, requestPath(requestID, "decline"), nil, nil)
}

// CancelRequest cancels a pending request the caller sent
func (c *Client) CancelRequest(ctx context.Context, requestID string) error {
	return c.do(ctx, http.MethodPost, requestPath(requestID, "cancel"), nil, nil)
}

func requestPath(requestID, action string) string {
	return "/api/v1/couple-requests/" + url.PathEscape(requestID) + "/" + action
}

// TodayResponse mirrors the server's question-of-the-day reply
type TodayResponse struct {
	Date     string           `json:"date"`
	Question *models.Question `json:"question"`
}

// Today resolves the question for date, or for the server's today when date is empty
func (c *Client) Today(ctx context.Context, date string) (*TodayResponse, error) {
	path := "/api/v1/questions/today"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var resp TodayResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Answers loads the caller's answer view for a question
func (c *Client) Answers(ctx context.Context, questionID string) (*services.AnswerView, error) {
	var view services.AnswerView
	if err := c.do(ctx, http.MethodGet, "/api/v1/questions/"+url.PathEscape(questionID)+"/answers", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Answer submits or replaces the caller's answer and returns the refreshed view
func (c *Client) Answer(ctx context.Context, questionID, content string, mood map[string]any) (*services.AnswerView, error) {
	body := struct {
		Content string         `json:"content"`
		Mood    map[string]any `json:"mood,omitempty"`
	}{Content: content, Mood: mood}

	var view services.AnswerView
	if err := c.do(ctx, http.MethodPut, "/api/v1/questions/"+url.PathEscape(questionID)+"/answer", body, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// SummarizeResponse mirrors the journal-summarize reply
type SummarizeResponse struct {
	OK      bool   `json:"ok"`
	Summary string `json:"summary"`
}

// Summarize asks the journal-summarize service for a new summary
func (c *Client) Summarize(ctx context.Context, journalID string) (*SummarizeResponse, error) {
	body := map[string]string{"kind": "journal_summary", "journal_id": journalID}
	var resp SummarizeResponse
	if err := c.do(ctx, http.MethodPost, "/journal-summarize", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Finalize asks the finalize service to stitch two uploaded photos into a post
func (c *Client) Finalize(ctx context.Context, req services.FinalizeRequest) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodPost, "/finalize", req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorText(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorText extracts {"error": "..."} from a body, falling back to the raw text
func errorText(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}
