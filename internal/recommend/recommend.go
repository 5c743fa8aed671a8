// Package recommend asks a generative-language model for automation rule
// suggestions and validates what comes back.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/leadflow/backend/internal/models"
)

// ErrDisabled is returned when no model is configured
var ErrDisabled = errors.New("ai recommendations are disabled")

// ErrInvalidResponse wraps model output that does not match the expected shape
var ErrInvalidResponse = errors.New("invalid recommendation response")

// Recommendation is a suggested automation rule for one stage
type Recommendation struct {
	Stage       string                  `json:"stage" validate:"required"`
	TriggerDays int                     `json:"triggerDays" validate:"gte=0"`
	Action      models.AutomationAction `json:"action" validate:"required,oneof='Move to Next Stage' 'Move to Global Stage'"`
	Confidence  float64                 `json:"confidence" validate:"gte=0,lte=1"`
	Rationale   string                  `json:"rationale"`
}

// Result is the validated model output
type Result struct {
	Recommendations []Recommendation `json:"recommendations" validate:"dive"`
}

// Input is what the model sees: one lead's attributes, the historical leads
// and the active stage names in pipeline order.
type Input struct {
	Lead       models.Lead
	History    []models.Lead
	StageNames []string
}

// Recommender produces rule suggestions
type Recommender interface {
	Recommend(ctx context.Context, in Input) (*Result, error)
}

// Config configures the HTTP client
type Config struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// Client calls a generateContent endpoint
type Client struct {
	cfg        Config
	httpClient *http.Client
	validate   *validator.Validate
}

// New creates a client. An empty API key yields a client whose every call returns ErrDisabled.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Recommend sends the prompt and returns the validated recommendations
func (c *Client) Recommend(ctx context.Context, in Input) (*Result, error) {
	if c == nil || c.cfg.APIKey == "" {
		return nil, ErrDisabled
	}

	prompt, err := BuildPrompt(in)
	if err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call model: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("model returned status %d: %s", resp.StatusCode, string(body))
	}

	var gen generateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(gen.Candidates) == 0 || len(gen.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrInvalidResponse)
	}

	return c.Parse(gen.Candidates[0].Content.Parts[0].Text)
}

// Parse decodes and validates the model's JSON answer. Markdown code fences are tolerated.
func (c *Client) Parse(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var result Result
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := c.validate.Struct(result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &result, nil
}
