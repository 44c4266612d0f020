package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
)

const openRouterMaxDelay = 10 * time.Second

// doRequest posts orReq with backoff. Transport failures, 429s, 5xx and
// 200s carrying an overload error are retried; other statuses fail at once.
func (c *OpenRouterClient) doRequest(ctx context.Context, path string, orReq *openRouterRequest) (*openRouterResponse, error) {
	attempts := max(1, c.maxRetries)
	var out *openRouterResponse
	n := 0
	err := retry.Do(
		func() error {
			n++
			// Retries carry a nonce so upstream caches treat them as new requests.
			if n > 1 {
				c.injectNonce(orReq, n-1)
			}
			resp, err := c.post(ctx, path, orReq)
			if err != nil {
				return err
			}
			out = resp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(openRouterMaxDelay),
		retry.MaxJitter(c.retryDelay/2+time.Millisecond),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if n >= attempts && retry.IsRecoverable(err) {
			return nil, fmt.Errorf("max retries (%d) exceeded: %w", attempts, err)
		}
		return nil, err
	}
	return out, nil
}

// post makes one request. Errors that must not be retried are wrapped with
// retry.Unrecoverable.
func (c *OpenRouterClient) post(ctx context.Context, path string, orReq *openRouterRequest) (*openRouterResponse, error) {
	body, err := json.Marshal(orReq)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/jackzampolin/folio")
	req.Header.Set("X-Title", "Folio")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{
			Message:    fmt.Sprintf("OpenRouter rate limited: %s", respBody),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			StatusCode: resp.StatusCode,
		}
	case retryableStatus(resp.StatusCode):
		return nil, fmt.Errorf("OpenRouter error (status %d): %s", resp.StatusCode, respBody)
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Unrecoverable(fmt.Errorf("OpenRouter error (status %d): %s", resp.StatusCode, respBody))
	}

	var orResp openRouterResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if err := orResp.retryableError(); err != nil {
		return nil, err
	}
	return &orResp, nil
}

// retryableStatus reports whether a non-200 status is worth another try.
// 413 and 422 are transient on OpenRouter when a provider rejects a cached
// prompt, and clear once the nonce changes.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return true
	}
	return code >= 500
}

// injectNonce appends a unique comment to the last user message.
func (c *OpenRouterClient) injectNonce(req *openRouterRequest, attempt int) {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != "user" {
			continue
		}
		comment := fmt.Sprintf("\n<!-- retry_%d_id: %s -->", attempt, uuid.New().String()[:16])
		switch content := req.Messages[i].Content.(type) {
		case string:
			req.Messages[i].Content = content + comment
		case []openRouterContent:
			for j := range content {
				if content[j].Type == "text" {
					content[j].Text += comment
					break
				}
			}
		}
		return
	}
}
