// Package extract converts caller speech into structured vehicle search
// fields using the OpenAI API.
//
// Extraction is a fallible external call: any transport or parse failure is
// returned as an error, and callers substitute the all-empty ParsedQuery and
// continue the call flow. The failure is never spoken to the caller as an
// error; it degrades to "no results found".
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/partsline/partsline/internal/models"
)

// ErrNoChoicesReturned indicates the model replied without any completion choices.
var ErrNoChoicesReturned = errors.New("no choices returned")

const systemPrompt = `You are an assistant that extracts vehicle search fields from user speech.
Input: a single sentence where a person says what they want.
Return ONLY valid JSON with keys: year (string), make (string), model (string), item (string), extras (array of strings).
If a field isn't present, set it to an empty string or empty array.
Example:
  Input: "2018 Toyota Camry brake pads"
  Output: {"year":"2018","make":"Toyota","model":"Camry","item":"brake pads","extras":[]}`

// Extractor is the contract the call flow relies on. A nil Extractor is
// valid and behaves as an always-failing collaborator.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (models.ParsedQuery, error)
}

// chatService defines the minimal chat-completion surface used by Client,
// matching the openai-go chat completion service so tests can inject a mock.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration options for the extraction client.
type Opts struct {
	APIKey string
	Model  string
}

// Option defines a configuration option for the extraction client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding $OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model used for extraction.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client extracts structured search fields from transcripts via chat
// completions.
type Client struct {
	chat  chatService
	model string
}

// NewClient initializes an extraction client. The API key falls back to the
// OPENAI_API_KEY environment variable; a missing key is an error so the
// caller can decide to run without extraction.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT3_5Turbo
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{chat: &cli.Chat.Completions, model: cfg.Model}, nil
}

// Extract asks the model for the structured fields of one utterance.
func (c *Client) Extract(ctx context.Context, transcript string) (models.ParsedQuery, error) {
	slog.Debug("Client.Extract: requesting field extraction", "transcript_len", len(transcript))

	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf("Now extract from this input:\n%q", transcript)),
		},
		Temperature:         openai.Float(0),
		MaxCompletionTokens: openai.Int(200),
	})
	if err != nil {
		return models.ParsedQuery{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.ParsedQuery{}, ErrNoChoicesReturned
	}

	parsed, err := parseFields(resp.Choices[0].Message.Content)
	if err != nil {
		return models.ParsedQuery{}, err
	}
	slog.Debug("Client.Extract: fields extracted",
		"year", parsed.Year, "make", parsed.Make, "model", parsed.Model, "item", parsed.Item)
	return parsed, nil
}

// parseFields decodes the model output. Models occasionally wrap the JSON in
// prose, so everything before the first opening brace is discarded first.
func parseFields(content string) (models.ParsedQuery, error) {
	text := strings.TrimSpace(content)
	if start := strings.Index(text, "{"); start >= 0 {
		text = text[start:]
	}
	var parsed models.ParsedQuery
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return models.ParsedQuery{}, fmt.Errorf("failed to parse extraction output: %w", err)
	}
	return parsed, nil
}
