package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const DefaultTimeout = 30 * time.Second

var ErrNoAPIKey = errors.New("gemini api key is not configured")

// Client talks to the generateContent REST endpoint. Every operation returns
// a usable fallback value alongside any error.
type Client struct {
	apiBase string
	apiKey  string
	model   string
	timeout time.Duration
	now     func() time.Time
}

func New(apiBase, apiKey, model string) *Client {
	return &Client{
		apiBase: strings.TrimRight(apiBase, "/"),
		apiKey:  apiKey,
		model:   model,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// generate sends one prompt and returns the first candidate's text.
func (c *Client) generate(ctx context.Context, prompt string, asJSON bool) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	req := generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}
	if asJSON {
		req.GenerationConfig = &generationConfig{ResponseMimeType: "application/json"}
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.apiBase, c.model, url.QueryEscape(c.apiKey))

	agent := fiber.Post(endpoint)
	agent.JSON(req)
	agent.Timeout(c.timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", errs[0]
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("gemini response (status %d): %w", code, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("gemini error %d %s: %s", resp.Error.Code, resp.Error.Status, resp.Error.Message)
	}
	if code != fiber.StatusOK {
		return "", fmt.Errorf("gemini returned status %d", code)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// generateJSON decodes the model's answer into dst, tolerating markdown
// code fences around it.
func (c *Client) generateJSON(ctx context.Context, prompt string, dst any) error {
	text, err := c.generate(ctx, prompt, true)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if strings.Contains(text, "```") {
		text = strings.ReplaceAll(text, "```json", "")
		text = strings.ReplaceAll(text, "```", "")
	}
	if text == "" {
		text = "{}"
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return fmt.Errorf("gemini returned malformed json: %w", err)
	}
	return nil
}
