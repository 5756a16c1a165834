package builtin

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smilemakc/flowgraph/pkg/executor"
)

// LLMHandler executes chat-completion requests against an OpenAI-compatible
// API. A base URL override supports self-hosted gateways. Rate limits and
// server errors retry under the handler's policy.
type LLMHandler struct {
	*executor.BaseHandler

	// defaultAPIKey is used when the node config carries no api_key.
	defaultAPIKey string
	retry         *executor.RetryPolicy
}

// NewLLMHandler creates an LLM handler.
func NewLLMHandler(defaultAPIKey string) *LLMHandler {
	return &LLMHandler{
		BaseHandler:   executor.NewBaseHandler("llm"),
		defaultAPIKey: defaultAPIKey,
		retry:         executor.DefaultRetryPolicy(),
	}
}

// WithRetry replaces the handler's retry policy.
func (h *LLMHandler) WithRetry(rp *executor.RetryPolicy) *LLMHandler {
	if rp == nil {
		rp = executor.NoRetry()
	}
	h.retry = rp
	return h
}

// Execute sends the configured prompt and returns the completion text plus
// token usage.
func (h *LLMHandler) Execute(ctx context.Context, inv *executor.Invocation) (*executor.Result, error) {
	model, err := h.GetString(inv.Config, "model")
	if err != nil {
		return executor.Failf("%v", err), nil
	}

	prompt, err := h.GetString(inv.Config, "prompt")
	if err != nil {
		return executor.Failf("%v", err), nil
	}

	apiKey := h.GetStringDefault(inv.Config, "api_key", h.defaultAPIKey)
	if apiKey == "" {
		return executor.Failf("llm node requires an api_key"), nil
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL := h.GetStringDefault(inv.Config, "base_url", ""); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(cfg)

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if system := h.GetStringDefault(inv.Config, "system_prompt", ""); system != "" {
		req.Messages = append([]openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
		}, req.Messages...)
	}
	if temp, ok := inv.Config["temperature"].(float64); ok {
		req.Temperature = float32(temp)
	}
	if maxTokens, err := h.GetInt(inv.Config, "max_tokens"); err == nil {
		req.MaxTokens = maxTokens
	}

	var resp openai.ChatCompletionResponse
	callErr := h.retry.Do(ctx, func() error {
		r, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return &executor.NodeError{
				Message:   fmt.Sprintf("chat completion failed: %v", err),
				Code:      "llm_request_failed",
				Retryable: isRetryableLLMError(err),
			}
		}
		resp = r
		return nil
	})
	if callErr != nil {
		if ne, ok := callErr.(*executor.NodeError); ok {
			return executor.Fail(ne), nil
		}
		return executor.Failf("chat completion aborted: %v", callErr), nil
	}

	if len(resp.Choices) == 0 {
		return executor.Failf("chat completion returned no choices"), nil
	}

	return executor.OK(map[string]interface{}{
		"content":       resp.Choices[0].Message.Content,
		"model":         resp.Model,
		"finish_reason": string(resp.Choices[0].FinishReason),
		"usage": map[string]interface{}{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		},
	}), nil
}

// Validate requires model and prompt; the api key may come from the handler
// default.
func (h *LLMHandler) Validate(config map[string]interface{}) error {
	if err := h.ValidateRequired(config, "model", "prompt"); err != nil {
		return err
	}
	if temp, ok := config["temperature"].(float64); ok {
		if temp < 0 || temp > 2 {
			return fmt.Errorf("temperature must be between 0 and 2, got %f", temp)
		}
	}
	return nil
}

func isRetryableLLMError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "timeout")
}
