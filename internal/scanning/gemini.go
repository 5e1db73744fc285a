package scanning

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/zombor/receipt-interpreter/internal/category"
	"google.golang.org/api/option"
)

// Gemini implements the Scanner interface using Google Gemini
type Gemini struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	maxImageBytes int
}

// NewGemini creates a new Gemini Scanner instance
func NewGemini(apiKey string, modelName string, maxImageBytes int) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	// Replies may arrive fenced or wrapped in prose; parseExtraction strips both
	model := client.GenerativeModel(modelName)

	return &Gemini{
		client:        client,
		model:         model,
		maxImageBytes: maxImageBytes,
	}, nil
}

// Scan analyzes the pages of one receipt. The caller's context bounds the call.
func (g *Gemini) Scan(ctx context.Context, pages []Page) (*Extraction, error) {
	images, err := prepareImages(pages, g.maxImageBytes)
	if err != nil {
		return nil, err
	}

	// genai.ImageData expects the format suffix ("jpeg"), not the MIME type
	parts := make([]genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, genai.ImageData("jpeg", img.Data))
	}
	parts = append(parts, genai.Text(buildPrompt(category.Names())))

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	data, err := parseExtraction(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}

	return data, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
