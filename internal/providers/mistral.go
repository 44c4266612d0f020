package providers

import (
	"bytes"
	"cmp"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	MistralOCRName    = "mistral-ocr"
	MistralOCRBaseURL = "https://api.mistral.ai/v1"
	MistralOCRModel   = "mistral-ocr-latest"

	// MistralOCRCostPerPage is the observed average; annotation pricing
	// only applies to pages with images.
	MistralOCRCostPerPage = 0.0012
)

// MistralOCRConfig configures a MistralOCRClient. Zero values take defaults.
type MistralOCRConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration // default 120s
	RateLimit  float64       // requests per second, default 6
	MaxRetries int           // default 3
	RetryDelay time.Duration // default 2s
}

// MistralOCRClient talks to the Mistral /ocr endpoint. As an OCRProvider it
// reads one rendered page image; as a VisionProvider it reads a whole PDF.
type MistralOCRClient struct {
	apiKey     string
	baseURL    string
	model      string
	rateLimit  float64
	maxRetries int
	retryDelay time.Duration
	client     *http.Client
}

func NewMistralOCRClient(cfg MistralOCRConfig) *MistralOCRClient {
	return &MistralOCRClient{
		apiKey:     cfg.APIKey,
		baseURL:    cmp.Or(cfg.BaseURL, MistralOCRBaseURL),
		model:      cmp.Or(cfg.Model, MistralOCRModel),
		rateLimit:  cmp.Or(cfg.RateLimit, 6.0),
		maxRetries: cmp.Or(cfg.MaxRetries, 3),
		retryDelay: cmp.Or(cfg.RetryDelay, 2*time.Second),
		client:     &http.Client{Timeout: cmp.Or(cfg.Timeout, 120*time.Second)},
	}
}

func (c *MistralOCRClient) Name() string                  { return MistralOCRName }
func (c *MistralOCRClient) RequestsPerSecond() float64    { return c.rateLimit }
func (c *MistralOCRClient) MaxRetries() int               { return c.maxRetries }
func (c *MistralOCRClient) RetryDelayBase() time.Duration { return c.retryDelay }

// ProcessImage OCRs a single PNG page.
func (c *MistralOCRClient) ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error) {
	start := time.Now()
	doc := ocrDocument{
		Type:     "image_url",
		ImageURL: &ocrImageURL{URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)},
	}
	resp, attempts, err := c.ocr(ctx, doc)
	if err == nil && len(resp.Pages) == 0 {
		err = fmt.Errorf("no pages in OCR response")
	}
	if err != nil {
		return &OCRResult{
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
			RetryCount:    max(0, attempts-1),
		}, err
	}

	page := resp.Pages[0]
	meta := map[string]any{
		"model_used": resp.Model,
		"page_num":   pageNum,
		"dimensions": page.Dimensions,
	}
	if resp.Usage != nil {
		meta["pages_processed"] = resp.Usage.PagesProcessed
	}
	return &OCRResult{
		Success:       true,
		Text:          page.Markdown,
		Metadata:      meta,
		CostUSD:       MistralOCRCostPerPage,
		ExecutionTime: time.Since(start),
		RetryCount:    attempts - 1,
	}, nil
}

// Convert OCRs a PDF and returns the markdown of its pages joined by blank
// lines.
func (c *MistralOCRClient) Convert(ctx context.Context, pdf []byte) (string, error) {
	if len(pdf) == 0 {
		return "", fmt.Errorf("empty document")
	}
	doc := ocrDocument{
		Type:        "document_url",
		DocumentURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf),
	}
	resp, _, err := c.ocr(ctx, doc)
	if err != nil {
		return "", err
	}
	if len(resp.Pages) == 0 {
		return "", fmt.Errorf("no pages in OCR response")
	}
	var b strings.Builder
	for i, p := range resp.Pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(p.Markdown))
	}
	return b.String(), nil
}

// ocr posts doc with retries and reports how many attempts it took. 429s
// wait out Retry-After when the server sends one.
func (c *MistralOCRClient) ocr(ctx context.Context, doc ocrDocument) (*ocrResponse, int, error) {
	body, err := json.Marshal(ocrRequest{Model: c.model, Document: doc})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal OCR request: %w", err)
	}

	var (
		out      *ocrResponse
		attempts int
	)
	err = retry.Do(
		func() error {
			attempts++
			resp, err := c.post(ctx, body)
			out = resp
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(max(1, c.maxRetries))),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, cfg *retry.Config) time.Duration {
			if rle, ok := IsRateLimitError(err); ok && rle.RetryAfter > 0 {
				return rle.RetryAfter
			}
			return retry.BackOffDelay(n, err, cfg)
		}),
	)
	return out, attempts, err
}

// post makes one call. 4xx responses other than 429 are unrecoverable.
func (c *MistralOCRClient) post(ctx context.Context, body []byte) (*ocrResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mistral OCR request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read mistral OCR response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{
			Message:    "Mistral OCR rate limited",
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			StatusCode: resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("Mistral OCR error (status %d): %s", resp.StatusCode, apiMessage(raw))
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Unrecoverable(fmt.Errorf("Mistral OCR error (status %d): %s", resp.StatusCode, apiMessage(raw)))
	}

	var out ocrResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("decode mistral OCR response: %w", err))
	}
	return &out, nil
}

// apiMessage pulls error.message out of a JSON error body, falling back to
// the raw body.
func apiMessage(raw []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return string(raw)
}

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
	Pages    []int       `json:"pages,omitempty"`
}

// ocrDocument is either an image_url or a document_url.
type ocrDocument struct {
	Type        string       `json:"type"`
	ImageURL    *ocrImageURL `json:"image_url,omitempty"`
	DocumentURL string       `json:"document_url,omitempty"`
}

type ocrImageURL struct {
	URL string `json:"url"`
}

type ocrResponse struct {
	Model string    `json:"model"`
	Pages []ocrPage `json:"pages"`
	Usage *ocrUsage `json:"usage_info,omitempty"`
}

type ocrPage struct {
	Index      int         `json:"index"`
	Markdown   string      `json:"markdown"`
	Dimensions ocrPageSize `json:"dimensions"`
}

type ocrPageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	DPI    int `json:"dpi"`
}

type ocrUsage struct {
	PagesProcessed int `json:"pages_processed"`
	DocSizeBytes   int `json:"doc_size_bytes,omitempty"`
}

var (
	_ OCRProvider    = (*MistralOCRClient)(nil)
	_ VisionProvider = (*MistralOCRClient)(nil)
)
