package providers

import (
	"encoding/json"
	"fmt"
)

// Wire types for the OpenRouter chat completions API.

type openRouterRequest struct {
	Model          string                    `json:"model"`
	Messages       []openRouterMessage       `json:"messages"`
	Temperature    float64                   `json:"temperature"`
	MaxTokens      int                       `json:"max_tokens,omitempty"`
	ResponseFormat *openRouterResponseFormat `json:"response_format,omitempty"`
}

// openRouterMessage content is a string, or a []openRouterContent when the
// message carries images.
type openRouterMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openRouterContent struct {
	Type     string              `json:"type"`
	Text     string              `json:"text,omitempty"`
	ImageURL *openRouterImageURL `json:"image_url,omitempty"`
}

type openRouterImageURL struct {
	URL string `json:"url"`
}

type openRouterResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

type openRouterChoice struct {
	Message      openRouterMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type openRouterUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost,omitempty"`
}

type openRouterResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []openRouterChoice `json:"choices"`
	Usage   openRouterUsage    `json:"usage"`

	// Error is set on a 200 when the routed provider failed.
	Error *openRouterError `json:"error,omitempty"`
}

type openRouterError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"` // string or number
}

// retryableError returns an error for 200 responses that should be retried:
// an overloaded upstream or an empty choice list.
func (r *openRouterResponse) retryableError() error {
	if r.Error != nil {
		switch fmt.Sprint(r.Error.Code) {
		case "overloaded", "rate_limit_exceeded", "500", "502", "503":
			return fmt.Errorf("OpenRouter API error (retryable): %s", r.Error.Message)
		}
		return nil
	}
	if len(r.Choices) == 0 {
		return fmt.Errorf("empty choices in response (model=%s, id=%s)", r.Model, r.ID)
	}
	return nil
}

func (u openRouterUsage) usage() Usage {
	return Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		CostUSD:          u.Cost,
	}
}
