package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"mindspark/internal/logger"
	"mindspark/internal/models"
)

const DefaultBaseURL = "http://localhost:8000/api"

// TokenStore persists the auth token between runs
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Client talks to the quiz REST API with token authentication
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	log        *logger.Logger
}

// NewClient creates a REST client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, tokens TokenStore, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		log:        log,
	}
}

// HasToken reports whether a token is stored
func (c *Client) HasToken(ctx context.Context) bool {
	tok, err := c.tokens.Token(ctx)
	return err == nil && tok != ""
}

// requestBody is either JSON or multipart
type requestBody struct {
	contentType string
	reader      io.Reader
}

func jsonBody(v interface{}) (*requestBody, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return &requestBody{contentType: "application/json", reader: bytes.NewReader(data)}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body *requestBody, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = body.reader
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	} else {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Token"}).SetAuthHeader(req)
	}

	c.log.Debug("api request", "method", method, "path", path, "has_token", token != "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("api response", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			if err := c.tokens.ClearToken(ctx); err != nil {
				c.log.Warn("failed to clear token", "error", err)
			}
		}
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
		c.log.Warn("api error", "method", method, "path", path, "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, path string, payload interface{}) (*AuthResponse, error) {
	if err := c.tokens.ClearToken(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear token: %w", err)
	}
	body, err := jsonBody(payload)
	if err != nil {
		return nil, err
	}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.New("server did not return a token")
	}
	if err := c.tokens.SetToken(ctx, resp.Token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	return &resp, nil
}

// Register creates an account and stores the returned token
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	return c.authenticate(ctx, "/auth/register/", req)
}

// Login authenticates and stores the returned token
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login/", loginRequest{Email: email, Password: password})
}

// Logout tells the server to drop the token. Server failures are logged; the
// local token is always cleared.
func (c *Client) Logout(ctx context.Context) error {
	if c.HasToken(ctx) {
		if err := c.do(ctx, http.MethodPost, "/auth/logout/", nil, nil); err != nil {
			c.log.Warn("logout failed on server", "error", err)
		}
	}
	return c.tokens.ClearToken(ctx)
}

// Me returns the current user, or nil when no token is stored
func (c *Client) Me(ctx context.Context) (*UserPayload, error) {
	if !c.HasToken(ctx) {
		return nil, nil
	}
	var user UserPayload
	if err := c.do(ctx, http.MethodGet, "/auth/me/", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile sends the non-empty fields of update as a multipart form
func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*UserPayload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"first_name", update.Name},
		{"email", update.Email},
		{"password", update.Password},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", f.name, err)
		}
	}

	if update.AvatarPath != "" {
		if err := writeFile(w, "avatar", update.AvatarPath); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	var resp profileResponse
	body := &requestBody{contentType: w.FormDataContentType(), reader: &buf}
	if err := c.do(ctx, http.MethodPatch, "/auth/update-profile/", body, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func writeFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to copy %s: %w", path, err)
	}
	return nil
}

// GenerateQuiz asks the server to generate and store a quiz
func (c *Client) GenerateQuiz(ctx context.Context, req GenerateRequest) (*QuizPayload, error) {
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}
	var quiz QuizPayload
	if err := c.do(ctx, http.MethodPost, "/quiz/generate/", body, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// SubmitQuiz submits the answers for grading
func (c *Client) SubmitQuiz(ctx context.Context, quizID int64, answers []models.PendingAnswer) (*AttemptPayload, error) {
	if answers == nil {
		answers = []models.PendingAnswer{}
	}
	body, err := jsonBody(SubmitRequest{QuizID: quizID, Answers: answers})
	if err != nil {
		return nil, err
	}
	var attempt AttemptPayload
	if err := c.do(ctx, http.MethodPost, "/quiz/submit/", body, &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// History returns the caller's graded attempts
func (c *Client) History(ctx context.Context) ([]AttemptPayload, error) {
	var attempts []AttemptPayload
	if err := c.do(ctx, http.MethodGet, "/attempts/my_history/", nil, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

// Stats returns the caller's aggregate statistics
func (c *Client) Stats(ctx context.Context) (*models.UserStats, error) {
	var stats models.UserStats
	if err := c.do(ctx, http.MethodGet, "/attempts/stats/", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// AdminDashboard returns usage statistics across all users
func (c *Client) AdminDashboard(ctx context.Context) (*DashboardPayload, error) {
	var dash DashboardPayload
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard/", nil, &dash); err != nil {
		return nil, err
	}
	return &dash, nil
}

// MyQuizzes returns the quizzes the caller generated
func (c *Client) MyQuizzes(ctx context.Context) ([]QuizPayload, error) {
	var quizzes []QuizPayload
	if err := c.do(ctx, http.MethodGet, "/quizzes/my_quizzes/", nil, &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}
