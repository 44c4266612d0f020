package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// mockBehavior is the failure and latency knobs shared by the mocks.
type mockBehavior struct {
	Latency    time.Duration
	ShouldFail bool
	FailAfter  int // fail every request after the Nth; 0 disables

	requests atomic.Int64
}

// begin counts a request and applies the configured failure and latency.
// It returns the 1-based request number.
func (b *mockBehavior) begin(ctx context.Context, who string) (int, error) {
	n := int(b.requests.Add(1))
	switch {
	case b.ShouldFail:
		return n, fmt.Errorf("%s configured to fail", who)
	case b.FailAfter > 0 && n > b.FailAfter:
		return n, fmt.Errorf("%s failed after %d requests", who, b.FailAfter)
	}
	if b.Latency <= 0 {
		return n, ctx.Err()
	}
	t := time.NewTimer(b.Latency)
	defer t.Stop()
	select {
	case <-t.C:
		return n, nil
	case <-ctx.Done():
		return n, ctx.Err()
	}
}

// RequestCount returns the number of requests made.
func (b *mockBehavior) RequestCount() int64 { return b.requests.Load() }

// Reset zeroes the request counter.
func (b *mockBehavior) Reset() { b.requests.Store(0) }

// MockClient is an LLMClient that answers from canned text.
type MockClient struct {
	mockBehavior

	ResponseText string
	// Responses are returned in order, the last one repeating. They take
	// precedence over ResponseText.
	Responses []string
	// ResponseJSON answers requests that carry a ResponseFormat.
	ResponseJSON json.RawMessage
}

func NewMockClient() *MockClient {
	c := &MockClient{ResponseText: "mock response"}
	c.Latency = 10 * time.Millisecond
	return c
}

func (c *MockClient) Name() string { return MockClientName }

func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	n, err := c.begin(ctx, "mock client")
	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", n),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}
	if err != nil {
		result.ErrorType = "mock_failure"
		if ctx.Err() != nil {
			result.ErrorType = "context_cancelled"
		}
		result.ErrorMessage = err.Error()
		result.TotalTime = time.Since(start)
		return result, err
	}

	switch {
	case req.ResponseFormat != nil && len(c.ResponseJSON) > 0:
		result.Content = string(c.ResponseJSON)
		result.ParsedJSON = c.ResponseJSON
	case len(c.Responses) > 0:
		result.Content = c.Responses[min(n, len(c.Responses))-1]
	default:
		result.Content = c.ResponseText
	}

	// Roughly four characters per token.
	for _, m := range req.Messages {
		result.PromptTokens += len(m.Content) / 4
	}
	result.CompletionTokens = len(result.Content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens
	result.CostUSD = 0.001
	result.Success = true
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime
	return result, nil
}

var _ LLMClient = (*MockClient)(nil)

// MockOCRProvider returns "Page N: <ResponseText>" for each page unless
// PageText has an entry for it.
type MockOCRProvider struct {
	mockBehavior

	ProviderName string
	ResponseText string
	PageText     map[int]string

	RPS        float64
	Retries    int
	RetryDelay time.Duration
}

func NewMockOCRProvider() *MockOCRProvider {
	p := &MockOCRProvider{
		ProviderName: "mock-ocr",
		ResponseText: "mock OCR text",
		RPS:          10,
		Retries:      3,
		RetryDelay:   time.Second,
	}
	p.Latency = 10 * time.Millisecond
	return p
}

func (p *MockOCRProvider) Name() string                  { return p.ProviderName }
func (p *MockOCRProvider) RequestsPerSecond() float64    { return p.RPS }
func (p *MockOCRProvider) MaxRetries() int               { return p.Retries }
func (p *MockOCRProvider) RetryDelayBase() time.Duration { return p.RetryDelay }

func (p *MockOCRProvider) ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error) {
	start := time.Now()
	if _, err := p.begin(ctx, "mock OCR provider"); err != nil {
		return &OCRResult{ErrorMessage: err.Error(), ExecutionTime: time.Since(start)}, err
	}

	text, ok := p.PageText[pageNum]
	if !ok {
		text = fmt.Sprintf("Page %d: %s", pageNum, p.ResponseText)
	}
	return &OCRResult{
		Success:       true,
		Text:          text,
		CostUSD:       0.001,
		ExecutionTime: time.Since(start),
		Metadata: map[string]any{
			"page_num":    pageNum,
			"char_count":  len(text),
			"provider":    p.ProviderName,
			"image_bytes": len(image),
		},
	}, nil
}

var _ OCRProvider = (*MockOCRProvider)(nil)

// MockVisionProvider returns Markdown, or Err when set, from Convert.
type MockVisionProvider struct {
	mockBehavior

	ProviderName string
	Markdown     string
	Err          error

	lastDocument atomic.Pointer[[]byte]
}

func NewMockVisionProvider(markdown string) *MockVisionProvider {
	return &MockVisionProvider{ProviderName: "mock-vision", Markdown: markdown}
}

func (p *MockVisionProvider) Name() string { return p.ProviderName }

func (p *MockVisionProvider) Convert(ctx context.Context, pdf []byte) (string, error) {
	p.lastDocument.Store(&pdf)
	if _, err := p.begin(ctx, "mock vision provider"); err != nil {
		return "", err
	}
	if p.Err != nil {
		return "", p.Err
	}
	return p.Markdown, nil
}

// LastDocument returns the most recent document passed to Convert.
func (p *MockVisionProvider) LastDocument() []byte {
	if d := p.lastDocument.Load(); d != nil {
		return *d
	}
	return nil
}

var _ VisionProvider = (*MockVisionProvider)(nil)
