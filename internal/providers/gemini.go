package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	GeminiVisionName   = "gemini"
	geminiDefaultModel = "gemini-2.5-flash"
)

const geminiOutlinePrompt = `Convert this document to markdown.
Render every table of contents, index or list of sections as a pipe table with
the columns: number | title | page. Keep the entries in reading order. Copy
section numbers and page numbers exactly as printed; leave a cell empty when it
is not printed. Do not add commentary and do not wrap the output in a code block.`

// GeminiVisionConfig holds configuration for the Gemini vision client.
type GeminiVisionConfig struct {
	APIKey  string
	Model   string
	BaseURL string // Optional (tests, proxies)
}

// GeminiVision implements VisionProvider by sending the PDF inline to a
// Gemini model.
type GeminiVision struct {
	apiKey string
	model  string
	client *genai.Client
}

// NewGeminiVision creates a Gemini vision client.
func NewGeminiVision(ctx context.Context, cfg GeminiVisionConfig) (*GeminiVision, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = geminiDefaultModel
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiVision{apiKey: cfg.APIKey, model: cfg.Model, client: c}, nil
}

// Name returns the provider identifier.
func (g *GeminiVision) Name() string {
	return GeminiVisionName
}

// Convert implements VisionProvider.
func (g *GeminiVision) Convert(ctx context.Context, pdf []byte) (string, error) {
	if len(pdf) == 0 {
		return "", fmt.Errorf("empty document")
	}
	content := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: geminiOutlinePrompt},
				{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: pdf}},
			},
		},
	}
	res, err := g.client.Models.GenerateContent(ctx, g.model, content, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	md := strings.TrimSpace(res.Text())
	if inner := StripCodeFences(md); inner != "" {
		md = inner
	}
	return md, nil
}

var _ VisionProvider = (*GeminiVision)(nil)
