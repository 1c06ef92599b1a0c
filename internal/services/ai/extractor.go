package ai

import (
	"context"
	"time"

	"github.com/benvon/productivity-assistant/internal/models"
)

// Extractor turns unstructured text into item drafts
type Extractor interface {
	// ParseFreeText extracts zero or more drafts from user input
	ParseFreeText(ctx context.Context, text string) ([]models.Draft, error)
	// EnrichExternalRecord classifies a source record and, when relevant, returns a fuller draft
	EnrichExternalRecord(ctx context.Context, rec models.ExternalRecord) (*EnrichmentOutcome, error)
}

// EnrichmentOutcome is the result of enriching an external record.
// Draft is only meaningful when Relevant is true.
type EnrichmentOutcome struct {
	Relevant bool
	Draft    models.Draft
}

// Options configures an OpenAIExtractor
type Options struct {
	APIKey          string
	BaseURL         string
	Model           string
	ParseTimeout    time.Duration
	EnrichTimeout   time.Duration
	ParseMaxTokens  int
	EnrichMaxTokens int
	DebugMode       bool
	// Now anchors relative dates in prompts and inference. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.ParseTimeout <= 0 {
		o.ParseTimeout = DefaultParseTimeout
	}
	if o.EnrichTimeout <= 0 {
		o.EnrichTimeout = DefaultEnrichTimeout
	}
	if o.ParseMaxTokens <= 0 {
		o.ParseMaxTokens = DefaultParseMaxTokens
	}
	if o.EnrichMaxTokens <= 0 {
		o.EnrichMaxTokens = DefaultEnrichMaxTokens
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
