package providers

import (
	"cmp"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	OpenRouterName    = "openrouter"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenRouterConfig configures an OpenRouterClient. Zero values take
// defaults.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string        // default google/gemini-2.5-flash
	Timeout      time.Duration // default 120s
	RPS          float64       // default 10
	MaxRetries   int           // transport attempts, default 3
	RetryDelay   time.Duration // base backoff, default 1s
}

// OpenRouterClient is an LLMClient for the OpenRouter chat completions API.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	rps          float64
	maxRetries   int
	retryDelay   time.Duration
}

func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cmp.Or(cfg.BaseURL, OpenRouterBaseURL),
		defaultModel: cmp.Or(cfg.DefaultModel, "google/gemini-2.5-flash"),
		client:       &http.Client{Timeout: cmp.Or(cfg.Timeout, 120*time.Second)},
		rps:          cmp.Or(cfg.RPS, 10.0),
		maxRetries:   cmp.Or(cfg.MaxRetries, 3),
		retryDelay:   cmp.Or(cfg.RetryDelay, time.Second),
	}
}

func (c *OpenRouterClient) Name() string               { return OpenRouterName }
func (c *OpenRouterClient) RequestsPerSecond() float64 { return c.rps }

// Chat sends a chat completion request. With a response format set, the
// reply must parse and match the schema; otherwise the model gets up to
// maxStructuredRepairAttempts follow-up turns to fix it.
func (c *OpenRouterClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	model := cmp.Or(req.Model, c.defaultModel)
	result := &ChatResult{
		RequestID: cmp.Or(req.RequestID, uuid.New().String()),
		Provider:  OpenRouterName,
	}
	fail := func(kind string, err error) (*ChatResult, error) {
		result.Success = false
		result.ErrorType = kind
		result.ErrorMessage = err.Error()
		result.TotalTime = time.Since(start)
		return result, err
	}

	rf, err := adaptedResponseFormat(model, req.ResponseFormat)
	if err != nil {
		return nil, err
	}
	orReq := openRouterRequest{
		Model:          model,
		Messages:       make([]openRouterMessage, 0, len(req.Messages)+2),
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: rf,
	}
	for _, m := range req.Messages {
		orReq.Messages = append(orReq.Messages, toOpenRouterMessage(m))
	}

	for result.Attempts = 1; ; result.Attempts++ {
		orResp, err := c.doRequest(ctx, "/chat/completions", &orReq)
		if err != nil {
			return fail("http_error", err)
		}
		if len(orResp.Choices) == 0 {
			return fail("empty_response", fmt.Errorf("no choices in response"))
		}
		content, err := responseContent(orResp.Choices[0].Message.Content)
		if err != nil {
			return fail("content_marshal_error", err)
		}

		u := orResp.Usage.usage()
		result.PromptTokens += u.PromptTokens
		result.CompletionTokens += u.CompletionTokens
		result.TotalTokens += u.TotalTokens
		result.CostUSD += u.CostUSD
		result.Content = content
		result.ModelUsed = orResp.Model
		result.ExecutionTime = time.Since(start)
		result.TotalTime = result.ExecutionTime

		if req.ResponseFormat == nil {
			result.Success = true
			return result, nil
		}
		parsed, issue := ParseStructuredJSON(content)
		if issue == nil {
			issue = ValidateStructuredJSON(req.ResponseFormat.JSONSchema, parsed)
		}
		if issue == nil {
			result.Success = true
			result.ParsedJSON = parsed
			return result, nil
		}
		if result.Attempts > maxStructuredRepairAttempts {
			return fail("json_parse", fmt.Errorf("structured output: %w", issue))
		}
		orReq.Messages = append(orReq.Messages,
			openRouterMessage{Role: "assistant", Content: content},
			openRouterMessage{Role: "user", Content: structuredRepairPrompt(req.ResponseFormat.JSONSchema, content, issue)},
		)
	}
}

func toOpenRouterMessage(m Message) openRouterMessage {
	if len(m.Images) == 0 {
		return openRouterMessage{Role: m.Role, Content: m.Content}
	}
	content := []openRouterContent{{Type: "text", Text: m.Content}}
	for _, img := range m.Images {
		content = append(content, openRouterContent{
			Type: "image_url",
			ImageURL: &openRouterImageURL{
				URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
			},
		})
	}
	return openRouterMessage{Role: m.Role, Content: content}
}

func responseContent(raw any) (string, error) {
	switch c := raw.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return "", fmt.Errorf("failed to marshal content: %w", err)
		}
		return string(b), nil
	}
}

var _ LLMClient = (*OpenRouterClient)(nil)
