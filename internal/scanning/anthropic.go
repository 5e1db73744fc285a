package scanning

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/receipt-interpreter/internal/category"
)

const (
	defaultAnthropicURL   = "https://api.anthropic.com"
	defaultAnthropicModel = "claude-sonnet-4-5"
	anthropicVersion      = "2023-06-01"
	anthropicMaxTokens    = 1024
)

// AnthropicConfig configures the Anthropic Messages API scanner.
type AnthropicConfig struct {
	APIKey        string
	Model         string
	BaseURL       string
	Timeout       time.Duration
	MaxImageBytes int
}

// Anthropic implements the Scanner interface using the Anthropic Messages API
type Anthropic struct {
	apiKey        string
	model         string
	baseURL       string
	maxImageBytes int
	client        *http.Client
}

// NewAnthropic creates a new Anthropic Scanner instance
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultAnthropicModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAnthropicURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Anthropic{
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		maxImageBytes: cfg.MaxImageBytes,
		client:        &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Scan sends every page as an image block followed by the instruction.
func (a *Anthropic) Scan(ctx context.Context, pages []Page) (*Extraction, error) {
	images, err := prepareImages(pages, a.maxImageBytes)
	if err != nil {
		return nil, err
	}

	content := make([]anthropicContent, 0, len(images)+1)
	for _, img := range images {
		content = append(content, anthropicContent{
			Type: "image",
			Source: &anthropicImageSource{
				Type:      "base64",
				MediaType: img.MediaType,
				Data:      base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	content = append(content, anthropicContent{Type: "text", Text: buildPrompt(category.Names())})

	reqBody := anthropicRequest{
		Model:     a.model,
		MaxTokens: anthropicMaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: content}},
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, a.client, a.baseURL+"/v1/messages", headers, reqBody, &resp); err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return nil, fmt.Errorf("no response from anthropic")
	}

	data, err := parseExtraction(resp.Content[0].Text)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}
	return data, nil
}

// Close is a no-op for the HTTP client
func (a *Anthropic) Close() error {
	return nil
}
