package providers

import (
	"context"
	"encoding/json"
	"time"
)

// LLMClient is a generative text model. The scramble reconstructor and the
// constrained page retry talk to it.
type LLMClient interface {
	Name() string
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)
}

// RetryPolicy describes how a caller should pace and retry a backend.
type RetryPolicy interface {
	RequestsPerSecond() float64
	MaxRetries() int
	RetryDelayBase() time.Duration
}

// OCRProvider reads the text of one rendered page image. Output is markdown
// for hosted backends and plain text for tesseract.
type OCRProvider interface {
	Name() string
	ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error)
	RetryPolicy
}

// VisionProvider converts a small PDF (the outline pages cut out of a
// larger document) into markdown, with tables rendered as pipe tables.
type VisionProvider interface {
	Name() string
	Convert(ctx context.Context, pdf []byte) (string, error)
}

// Message is one chat turn. Images are sent as data URLs by clients that
// support them and ignored otherwise.
type Message struct {
	Role    string   `json:"role"` // system, user or assistant
	Content string   `json:"content"`
	Images  [][]byte `json:"-"`
}

// ResponseFormat asks for JSON output matching a schema. JSONSchema may be
// a bare schema or the {"name","strict","schema"} wrapper.
type ResponseFormat struct {
	Type       string          `json:"type"` // "json_schema"
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// ChatRequest is a request to an LLM. An empty Model uses the client default.
type ChatRequest struct {
	Messages       []Message       `json:"messages"`
	Model          string          `json:"model,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	RequestID string `json:"-"`
}

// Usage is the token and cost accounting of one call.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// ChatResult is the outcome of a Chat call. It is returned alongside the
// error on failure so callers can log what was attempted.
type ChatResult struct {
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"` // set when ResponseFormat was requested and validated

	Usage

	ExecutionTime time.Duration `json:"execution_time"` // last attempt
	TotalTime     time.Duration `json:"total_time"`     // including retries

	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`
	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`

	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"` // http, rate_limit, json_parse, ...
	ErrorMessage string `json:"error_message,omitempty"`
}

// OCRResult is the text of one page.
type OCRResult struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`

	Metadata map[string]any `json:"metadata,omitempty"`

	CostUSD       float64       `json:"cost_usd"`
	ExecutionTime time.Duration `json:"execution_time"`
	RetryCount    int           `json:"retry_count"`

	ErrorMessage string `json:"error_message,omitempty"`
}
