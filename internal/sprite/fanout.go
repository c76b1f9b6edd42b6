package sprite

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ruizrica/spriteforge/internal/prompts"
	"github.com/ruizrica/spriteforge/internal/provider"
	"github.com/ruizrica/spriteforge/pkg/models"
)

type StylesRequest struct {
	Reference *models.Image
	// Token is the character reference token woven into every prompt.
	Token  string
	Styles []models.StyleID
	APIKey string
}

// Fanout generates style variants concurrently. One failing style never
// cancels or affects the others.
type Fanout struct {
	gen     Generator
	catalog *prompts.Catalog
	opts    options
}

func NewFanout(gen Generator, catalog *prompts.Catalog, opts ...Option) *Fanout {
	return &Fanout{gen: gen, catalog: catalog, opts: newOptions(opts)}
}

// GenerateAll waits for every style to settle and returns the variants in
// request order. If none succeeded the variants are returned together with
// ErrAllStylesFailed.
func (f *Fanout) GenerateAll(ctx context.Context, req StylesRequest) ([]models.StyleVariant, error) {
	if req.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}
	if req.Reference.IsEmpty() {
		return nil, fmt.Errorf("%w: no reference image", provider.ErrInvalidInput)
	}
	if len(req.Styles) == 0 {
		return nil, ErrNoStyles
	}

	variants := make([]models.StyleVariant, len(req.Styles))

	var g errgroup.Group
	if f.opts.parallelism > 0 {
		g.SetLimit(f.opts.parallelism)
	}
	for i, id := range req.Styles {
		g.Go(func() error {
			variants[i] = f.Generate(ctx, req.Reference, req.Token, id, req.APIKey)
			return nil
		})
	}
	_ = g.Wait()

	var succeeded int
	var lastErr string
	for _, v := range variants {
		if v.Result.HasImage() {
			succeeded++
		} else {
			lastErr = v.Result.Err()
		}
	}

	f.opts.logger.InfoContext(ctx, "style generation finished",
		"requested", len(variants),
		"succeeded", succeeded,
	)
	if succeeded == 0 {
		return variants, fmt.Errorf("%w (%d attempted, last error: %s)", ErrAllStylesFailed, len(variants), lastErr)
	}
	return variants, nil
}

// Generate produces a single style variant. Failures are carried in the
// variant's result.
func (f *Fanout) Generate(ctx context.Context, reference *models.Image, token string, id models.StyleID, apiKey string) models.StyleVariant {
	prompt, err := f.catalog.StylePrompt(id, token)
	if err != nil {
		return models.StyleVariant{ID: id, Result: models.Failed(err.Error())}
	}

	f.opts.logger.DebugContext(ctx, "generating style", "style", id, "prompt_length", len(prompt))
	img, err := f.gen.Generate(ctx, prompt, reference, apiKey)
	f.opts.account(ctx, prompt, err)
	if err != nil {
		f.opts.logger.WarnContext(ctx, "style generation failed", "style", id, "error", err)
		return models.StyleVariant{ID: id, Result: models.Failed(err.Error())}
	}
	return models.StyleVariant{ID: id, Result: models.Succeeded(img)}
}
