// Package pipeline sequences one compatibility check: gather candidate data
// from the catalog or a live scrape, build the prompt, invoke inference and
// parse the verdict.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/velofit/fitcheck/internal/catalog"
	"github.com/velofit/fitcheck/internal/prompt"
	"github.com/velofit/fitcheck/internal/scrape"
	"github.com/velofit/fitcheck/internal/verdict"
	"github.com/velofit/fitcheck/pkg/perplexity"
)

// Fixed decoding parameters of the inference request, matching what the
// answer grammar was tuned against.
const (
	inferenceMaxTokens        = 300
	inferenceTemperature      = 0.2
	inferenceTopP             = 0.9
	inferenceTopK             = 0
	inferenceFrequencyPenalty = 1.0
	inferenceRecencyFilter    = "month"
	inferenceTimeout          = 90 * time.Second
	scrapeTimeout             = 30 * time.Second
)

// ErrMissingInput reports a request with a missing required field. No
// collaborator is invoked in that case.
var ErrMissingInput = eris.New("pipeline: bikeInfo and productUrl are required")

// Query is one compatibility check request. Both fields are required.
type Query struct {
	BikeInfo   string `json:"bikeInfo"`
	ProductURL string `json:"productUrl"`
}

// ProductKey returns the normalized catalog key for the product URL.
func (q Query) ProductKey() string {
	return catalog.NormalizeKey(q.ProductURL)
}

// Result is the response to the caller: the three-field verdict plus the
// descriptive fields gathered along the way, kept for audit purposes.
type Result struct {
	ProductDescription string          `json:"productDescription"`
	BikeDescription    string          `json:"bikeDescription"`
	ProductH1          string          `json:"productH1"`
	Verdict            verdict.Verdict `json:"result"`
}

// Checker runs the resolution pipeline. Each Check is stateless and every
// external call is attempted exactly once; any error returned besides
// ErrMissingInput is an inference failure.
type Checker struct {
	catalog   *catalog.Index
	extractor scrape.Extractor
	inference perplexity.Client
	model     string
}

// NewChecker wires the pipeline. extractor may be nil, in which case catalog
// misses degrade straight to an empty product description.
func NewChecker(ix *catalog.Index, extractor scrape.Extractor, inference perplexity.Client, model string) *Checker {
	return &Checker{
		catalog:   ix,
		extractor: extractor,
		inference: inference,
		model:     model,
	}
}

// Check resolves the product and bike descriptions, queries the reasoning
// service and returns the parsed verdict.
func (c *Checker) Check(ctx context.Context, q Query) (*Result, error) {
	if strings.TrimSpace(q.BikeInfo) == "" || strings.TrimSpace(q.ProductURL) == "" {
		return nil, ErrMissingInput
	}

	productKey := catalog.NormalizeKey(q.ProductURL)
	bikeKey := catalog.NormalizeKey(q.BikeInfo)

	log := zap.L().With(zap.String("product_key", productKey))

	// Gather both sides independently. Neither side may fail the check:
	// a catalog miss falls through to scraping, a scrape failure falls
	// through with empty descriptions.
	var (
		in        prompt.Inputs
		productH1 string
	)
	in.BikeInfo = q.BikeInfo

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if rec, ok := c.catalog.Lookup(gCtx, productKey); ok {
			in.ProductCatalog = describeRecord(rec)
			in.ProductCategory = rec.Category
			log.Debug("pipeline: product resolved from catalog")
			return nil
		}
		if c.extractor == nil {
			log.Debug("pipeline: catalog miss, no extractor configured")
			return nil
		}

		scrapeCtx, cancel := context.WithTimeout(gCtx, scrapeTimeout)
		defer cancel()

		page, err := c.extractor.Extract(scrapeCtx, q.ProductURL)
		if err != nil {
			log.Warn("pipeline: scrape failed, degrading to empty description", zap.Error(err))
			return nil
		}
		productH1 = page.Title
		in.ProductScraped = describePage(page)
		log.Debug("pipeline: product resolved from live scrape")
		return nil
	})

	g.Go(func() error {
		// Bike-side lookup is best-effort: it only hits when bikeInfo is
		// itself a catalog URL rather than free text.
		if rec, ok := c.catalog.Lookup(gCtx, bikeKey); ok {
			in.BikeCatalog = describeRecord(rec)
		}
		return nil
	})

	_ = g.Wait()

	messages, variant := prompt.Build(in)
	log.Debug("pipeline: prompt built", zap.String("variant", string(variant)))

	answer, err := c.infer(ctx, messages)
	if err != nil {
		return nil, err
	}

	v := verdict.Parse(variant, *answer)
	v = verdict.ApplyCitations(v, answer.Citations, productKey)

	return &Result{
		ProductDescription: firstNonEmpty(in.ProductCatalog, in.ProductScraped),
		BikeDescription:    firstNonEmpty(in.BikeCatalog, q.BikeInfo),
		ProductH1:          productH1,
		Verdict:            v,
	}, nil
}

// infer sends a single inference request with the fixed decoding parameters.
// Failures are escalated: no usable verdict exists without an answer.
func (c *Checker) infer(ctx context.Context, messages []perplexity.Message) (*verdict.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, inferenceTimeout)
	defer cancel()

	maxTokens := inferenceMaxTokens
	temperature := inferenceTemperature
	topP := inferenceTopP
	topK := inferenceTopK
	frequencyPenalty := inferenceFrequencyPenalty

	resp, err := c.inference.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model:               c.model,
		Messages:            messages,
		MaxTokens:           &maxTokens,
		Temperature:         &temperature,
		TopP:                &topP,
		TopK:                &topK,
		FrequencyPenalty:    &frequencyPenalty,
		SearchRecencyFilter: inferenceRecencyFilter,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: inference")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("pipeline: inference returned no choices")
	}

	return &verdict.Answer{
		Text:      resp.Choices[0].Message.Content,
		Citations: resp.Citations,
	}, nil
}

// describeRecord flattens a catalog record into one prompt-ready description.
func describeRecord(rec *catalog.Record) string {
	parts := make([]string, 0, 4)
	if rec.Title != "" {
		parts = append(parts, rec.Title)
	}
	if rec.Brand != "" {
		parts = append(parts, "marque "+rec.Brand)
	}
	if rec.Description != "" {
		parts = append(parts, rec.Description)
	}
	for name, value := range rec.Attributes {
		parts = append(parts, name+" : "+value)
	}
	return strings.Join(parts, ". ")
}

func describePage(page *scrape.PageContent) string {
	if page.Description == "" || page.Description == scrape.DescriptionUnavailable {
		return page.Title
	}
	return page.Title + ". " + page.Description
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
