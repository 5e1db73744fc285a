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

// Ollama implements the Scanner interface using Ollama
type Ollama struct {
	baseURL       string
	model         string
	maxImageBytes int
	client        *http.Client
}

// NewOllama creates a new Ollama Scanner instance
// Recommended models for receipt scanning (in order of recommendation):
//   - qwen2.5vl (good OCR on European receipts)
//   - llava:1.6
//   - llama3.2-vision
func NewOllama(baseURL string, modelName string, timeout time.Duration, maxImageBytes int) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Ollama{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		model:         modelName,
		maxImageBytes: maxImageBytes,
		client:        &http.Client{Timeout: timeout},
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Scan attaches every page to the user message of a chat request.
func (o *Ollama) Scan(ctx context.Context, pages []Page) (*Extraction, error) {
	images, err := prepareImages(pages, o.maxImageBytes)
	if err != nil {
		return nil, err
	}

	encoded := make([]string, 0, len(images))
	for _, img := range images {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(img.Data))
	}

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Format: "json",
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You are an expert at reading European receipts and invoices. You must carefully read all text in images and extract accurate information.",
			},
			{
				Role:    "user",
				Content: buildPrompt(category.Names()),
				Images:  encoded,
			},
		},
	}

	var chatResp ollamaChatResponse
	if err := postJSON(ctx, o.client, fmt.Sprintf("%s/api/chat", o.baseURL), nil, reqBody, &chatResp); err != nil {
		return nil, fmt.Errorf("calling ollama API: %w", err)
	}

	data, err := parseExtraction(chatResp.Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}

	return data, nil
}

// Close closes the Ollama client (no-op for HTTP client)
func (o *Ollama) Close() error {
	return nil
}
