package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/models"
	"github.com/benvon/productivity-assistant/internal/request"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the default chat model
	DefaultModel = "llama3.2:3b"
	// DefaultBaseURL is an OpenAI-compatible local endpoint
	DefaultBaseURL = "http://localhost:11434/v1"
	// DefaultParseTimeout bounds a free-text parse call
	DefaultParseTimeout = 45 * time.Second
	// DefaultEnrichTimeout bounds an enrichment call
	DefaultEnrichTimeout = 30 * time.Second
	// DefaultParseMaxTokens bounds the parse output
	DefaultParseMaxTokens = 200
	// DefaultEnrichMaxTokens bounds the enrichment output
	DefaultEnrichMaxTokens = 100

	// MaxInputTokens bounds the user text placed in a parse prompt
	MaxInputTokens = 512
	// MaxSnippetChars bounds the record snippet placed in an enrichment prompt
	MaxSnippetChars = 200

	// Temperature and TopP keep extraction close to deterministic
	Temperature = 0.1
	TopP        = 0.9

	opParse  = "parse_free_text"
	opEnrich = "enrich_external_record"
)

// ErrEmptyInput is returned when ParseFreeText receives blank text
var ErrEmptyInput = errors.New("text is required")

// OpenAIExtractor implements Extractor against any OpenAI-compatible chat endpoint
type OpenAIExtractor struct {
	client openai.Client
	opts   Options
	tokens *TokenBudget
	logger *zap.Logger
}

var _ Extractor = (*OpenAIExtractor)(nil)

// NewOpenAIExtractor creates an extractor. SDK retries are disabled: a failed
// call is reported once and retried only by the caller.
func NewOpenAIExtractor(opts Options, tokens *TokenBudget, log *zap.Logger) *OpenAIExtractor {
	opts = opts.withDefaults()
	if tokens == nil {
		tokens = NewTokenBudget()
	}

	clientOpts := []option.RequestOption{
		option.WithBaseURL(opts.BaseURL),
		option.WithHTTPClient(&http.Client{}),
		option.WithMaxRetries(0),
	}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	return &OpenAIExtractor{
		client: openai.NewClient(clientOpts...),
		opts:   opts,
		tokens: tokens,
		logger: logger.OrNop(log),
	}
}

// ParseFreeText extracts drafts from free text. The model output is decoded
// leniently and then overlaid with deterministic date, priority and type cues.
func (e *OpenAIExtractor) ParseFreeText(ctx context.Context, text string) ([]models.Draft, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	now := e.opts.Now()
	input := e.tokens.Truncate(text, MaxInputTokens)
	content, err := e.complete(ctx, opParse,
		buildParseSystemPrompt(now),
		buildParseUserPrompt(input),
		e.opts.ParseMaxTokens,
		e.opts.ParseTimeout,
	)
	if err != nil {
		return nil, err
	}

	drafts, skipped, err := decodeItems(content)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		e.logger.Warn("llm_items_skipped",
			zap.String("operation", opParse),
			zap.Int("skipped", skipped),
			zap.Int("decoded", len(drafts)),
		)
	}

	return ApplyInference(drafts, text, now), nil
}

// EnrichExternalRecord asks the model whether rec is actionable and, if so, for a fuller draft
func (e *OpenAIExtractor) EnrichExternalRecord(ctx context.Context, rec models.ExternalRecord) (*EnrichmentOutcome, error) {
	snippet := truncateRunes(rec.Snippet, MaxSnippetChars)
	content, err := e.complete(ctx, opEnrich,
		"You classify messages and extract actionable items. Respond with valid JSON only.",
		buildEnrichPrompt(e.opts.Now(), rec, snippet),
		e.opts.EnrichMaxTokens,
		e.opts.EnrichTimeout,
	)
	if err != nil {
		return nil, err
	}
	return decodeEnrichment(content)
}

// complete sends one bounded chat completion and returns the first choice's content
func (e *OpenAIExtractor) complete(ctx context.Context, op, system, user string, maxTokens int, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.opts.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(Temperature),
		TopP:        openai.Float(TopP),
		MaxTokens:   openai.Int(int64(maxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	requestID := request.IDFromContext(ctx)
	if e.opts.DebugMode {
		e.logger.Debug("llm_api_request",
			zap.String("operation", op),
			zap.String("model", e.opts.Model),
			zap.Int("prompt_tokens_estimate", e.tokens.Count(system)+e.tokens.Count(user)),
			zap.String("prompt_preview", logger.SanitizeDebugContent(user)),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := e.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		xerr := classifyError(ctx, op, err)
		e.logger.Warn("llm_api_error",
			zap.String("operation", op),
			zap.String("model", e.opts.Model),
			zap.String("kind", string(xerr.Kind)),
			zap.Int("status_code", xerr.StatusCode),
			zap.String("error", logger.SanitizeError(err)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
		return "", xerr
	}
	if len(resp.Choices) == 0 {
		return "", malformed(op, "no choices in response", nil)
	}

	content := resp.Choices[0].Message.Content
	if e.opts.DebugMode {
		e.logger.Debug("llm_api_response",
			zap.String("operation", op),
			zap.String("model", e.opts.Model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", logger.SanitizeDebugContent(content)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}
	return content, nil
}

// stripCodeFence removes surrounding markdown code-fence markup
func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeObject decodes content into a JSON object, falling back to the
// outermost brace-delimited span when the model wrapped it in prose.
func decodeObject(op, content string) (map[string]json.RawMessage, error) {
	raw := []byte(stripCodeFence(content))
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		return obj, nil
	}

	start := bytes.IndexByte(raw, '{')
	end := bytes.LastIndexByte(raw, '}')
	if start != -1 && end > start {
		if err := json.Unmarshal(raw[start:end+1], &obj); err == nil && obj != nil {
			return obj, nil
		}
	}
	return nil, malformed(op, "response is not a JSON object", nil)
}

// decodeItems decodes {"items": [...]}. A bare draft object carrying type and
// title is accepted as a single item. Elements that fail to decode are
// skipped and counted.
func decodeItems(content string) (drafts []models.Draft, skipped int, err error) {
	obj, err := decodeObject(opParse, content)
	if err != nil {
		return nil, 0, err
	}

	rawItems, ok := obj["items"]
	if !ok {
		_, hasType := obj["type"]
		_, hasTitle := obj["title"]
		if !hasType || !hasTitle {
			return nil, 0, malformed(opParse, "missing 'items' array", nil)
		}
		whole, _ := json.Marshal(obj)
		rawItems, _ = json.Marshal([]json.RawMessage{whole})
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(rawItems, &elems); err != nil {
		return nil, 0, malformed(opParse, "'items' is not an array", err)
	}

	drafts = make([]models.Draft, 0, len(elems))
	for _, elem := range elems {
		var d models.Draft
		if err := json.Unmarshal(elem, &d); err != nil {
			skipped++
			continue
		}
		drafts = append(drafts, d)
	}
	return drafts, skipped, nil
}

// decodeEnrichment decodes an enrichment payload. A missing or false
// "relevant" flag means the record is not actionable.
func decodeEnrichment(content string) (*EnrichmentOutcome, error) {
	obj, err := decodeObject(opEnrich, content)
	if err != nil {
		return nil, err
	}

	var relevant models.FlexBool
	if raw, ok := obj["relevant"]; ok {
		if err := json.Unmarshal(raw, &relevant); err != nil {
			return nil, malformed(opEnrich, "invalid 'relevant' flag", err)
		}
	}
	if !relevant {
		return &EnrichmentOutcome{Relevant: false}, nil
	}

	whole, _ := json.Marshal(obj)
	var d models.Draft
	if err := json.Unmarshal(whole, &d); err != nil {
		return nil, malformed(opEnrich, "enrichment fields have unexpected types", err)
	}
	return &EnrichmentOutcome{Relevant: true, Draft: d}, nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
