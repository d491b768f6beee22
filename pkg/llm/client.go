// Package llm talks to an OpenAI-compatible endpoint for natural-language
// understanding: plain completions and schema-constrained structured output.
// Its main consumer is intent extraction for action dispatch.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/zeromicro/go-zero/core/logx"
)

// Client wraps the OpenAI SDK with retry and structured-output handling.
type Client struct {
	cfg   *Config
	oa    *openai.Client
	retry *RetryHandler
}

// ClientOption configures optional client behaviour.
type ClientOption func(*clientOptions)

type clientOptions struct {
	retry      *RetryHandler
	httpClient *http.Client
}

// WithRetryHandler injects a custom retry handler.
func WithRetryHandler(handler *RetryHandler) ClientOption {
	return func(opts *clientOptions) { opts.retry = handler }
}

// WithHTTPClient replaces the default HTTP client. Test hook.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(opts *clientOptions) { opts.httpClient = hc }
}

// NewClient constructs a client from a validated config.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("llm: config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var optState clientOptions
	for _, opt := range opts {
		opt(&optState)
	}

	retry := optState.retry
	if retry == nil {
		retry = NewRetryHandler(RetryConfig{MaxRetries: cfg.MaxRetries})
	}

	oaOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(cfg.RequestTimeout()),
	}
	if optState.httpClient != nil {
		oaOpts = append(oaOpts, option.WithHTTPClient(optState.httpClient))
	}
	oa := openai.NewClient(oaOpts...)

	return &Client{cfg: cfg, oa: &oa, retry: retry}, nil
}

func (c *Client) baseParams(system, user string) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if c.cfg.Temperature != nil {
		params.Temperature = openai.Float(*c.cfg.Temperature)
	}
	if c.cfg.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*c.cfg.MaxTokens))
	}
	return params
}

func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	start := time.Now()
	var completion *openai.ChatCompletion
	err := c.retry.Do(ctx, func() error {
		resp, callErr := c.oa.Chat.Completions.New(ctx, params)
		if callErr != nil {
			return callErr
		}
		completion = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("llm: completion returned no choices")
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	logx.WithContext(ctx).Infof("llm: completion ok model=%s duration_ms=%d prompt_tokens=%d completion_tokens=%d",
		completion.Model, time.Since(start).Milliseconds(),
		completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	return content, nil
}

// Complete runs a single synchronous completion and returns the text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, c.baseParams(system, user))
}

// CompleteStructured runs a completion constrained to the JSON schema
// derived from target's type, then decodes the response into target.
func (c *Client) CompleteStructured(ctx context.Context, system, user, schemaName string, target any) error {
	if target == nil {
		return errors.New("llm: structured target cannot be nil")
	}
	schema, err := GenerateSchema(target)
	if err != nil {
		return fmt.Errorf("llm: build schema: %w", err)
	}
	if schemaName == "" {
		schemaName = "structured_output"
	}

	params := c.baseParams(system, user)
	jsonSchema := shared.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   schemaName,
		Schema: schema,
		Strict: openai.Bool(true),
	}
	format := shared.ResponseFormatJSONSchemaParam{JSONSchema: jsonSchema}
	format.Type = format.Type.Default()
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &format,
	}

	content, err := c.complete(ctx, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFences(content)), target); err != nil {
		return fmt.Errorf("llm: decode structured response: %w", err)
	}
	return nil
}

// stripFences removes a wrapping markdown code fence; some models emit one
// even under a json_schema response format.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
