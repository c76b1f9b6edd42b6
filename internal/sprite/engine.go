package sprite

import (
	"context"
	"fmt"

	"github.com/ruizrica/spriteforge/internal/cost"
	imgutil "github.com/ruizrica/spriteforge/internal/image"
	"github.com/ruizrica/spriteforge/internal/prompts"
	"github.com/ruizrica/spriteforge/internal/provider"
	"github.com/ruizrica/spriteforge/internal/session"
	"github.com/ruizrica/spriteforge/pkg/models"
)

// Engine is the entry point used by the CLI and the REPL. It owns no
// state of its own: everything lives in the injected store.
type Engine struct {
	store   session.StateStore
	catalog *prompts.Catalog
	fanout  *Fanout
	chain   *Chain
	opts    options
}

func NewEngine(gen Generator, store session.StateStore, catalog *prompts.Catalog, opts ...Option) *Engine {
	if catalog == nil {
		catalog = prompts.DefaultCatalog()
	}
	return &Engine{
		store:   store,
		catalog: catalog,
		fanout:  NewFanout(gen, catalog, opts...),
		chain:   NewChain(gen, store, catalog, opts...),
		opts:    newOptions(opts),
	}
}

func (e *Engine) Catalog() *prompts.Catalog {
	return e.catalog
}

func (e *Engine) Snapshot() session.Snapshot {
	return e.store.Get()
}

// LoadReference normalizes an upload and makes it the session reference.
// Styles and frames derived from a previous reference are dropped.
func (e *Engine) LoadReference(data []byte) (*models.Image, error) {
	size := e.opts.spriteSize
	if size <= 0 {
		size = imgutil.DefaultSpriteSize
	}
	img, err := imgutil.Normalize(data, size)
	if err != nil {
		return nil, err
	}

	token := prompts.NewReferenceToken(e.opts.now())
	e.store.Update(session.Patch{
		Reference:      img,
		ReferenceToken: session.Ptr(token),
		Styles:         []models.StyleVariant{},
		Frames:         []models.ActionFrame{},
	})
	e.opts.logger.Info("reference loaded", "token", token, "bytes", len(img.Data), "size", size)
	return img, nil
}

// GenerateStyles renders the given styles, or every catalog style when
// styles is empty. Each variant replaces the stored record of its style;
// styles not requested are kept. Nothing is stored when every style failed.
func (e *Engine) GenerateStyles(ctx context.Context, styles []models.StyleID, apiKey string) ([]models.StyleVariant, error) {
	if len(styles) == 0 {
		styles = e.catalog.StyleIDs()
	}
	snap := e.store.Get()
	variants, err := e.fanout.GenerateAll(ctx, StylesRequest{
		Reference: snap.Reference,
		Token:     snap.ReferenceToken,
		Styles:    styles,
		APIKey:    apiKey,
	})
	if err != nil {
		return variants, err
	}
	e.store.Modify(func(s session.Snapshot) session.Patch {
		styles := s.Styles
		for _, v := range variants {
			styles = session.ReplaceStyle(styles, v)
		}
		return session.Patch{Styles: styles}
	})
	return variants, nil
}

// RetryStyle regenerates a single style variant and replaces its record.
func (e *Engine) RetryStyle(ctx context.Context, style models.StyleID, apiKey string) (models.StyleVariant, error) {
	if apiKey == "" {
		return models.StyleVariant{}, provider.ErrAPIKeyRequired
	}
	if _, ok := e.catalog.Style(style); !ok {
		return models.StyleVariant{}, fmt.Errorf("%w: %s", prompts.ErrUnknownStyle, style)
	}
	snap := e.store.Get()
	if snap.Reference.IsEmpty() {
		return models.StyleVariant{}, ErrUnresolvableReference
	}

	v := e.fanout.Generate(ctx, snap.Reference, snap.ReferenceToken, style, apiKey)
	e.store.Modify(func(s session.Snapshot) session.Patch {
		return session.Patch{Styles: session.ReplaceStyle(s.Styles, v)}
	})
	return v, nil
}

func (e *Engine) GenerateChain(ctx context.Context, req ChainRequest) ([]models.ActionFrame, error) {
	return e.chain.Run(ctx, req)
}

func (e *Engine) Regenerate(ctx context.Context, req RegenerateRequest) (models.ActionFrame, error) {
	return e.chain.Regenerate(ctx, req)
}

func (e *Engine) DefaultPrompt(style models.StyleID, action models.ActionID, index int) (string, error) {
	return e.chain.DefaultPrompt(style, action, index)
}

// Select sets the active style and/or action. Empty values leave the
// current selection unchanged.
func (e *Engine) Select(style models.StyleID, action models.ActionID) error {
	var p session.Patch
	if style != "" {
		if _, ok := e.catalog.Style(style); !ok {
			return fmt.Errorf("%w: %s", prompts.ErrUnknownStyle, style)
		}
		p.SelectedStyle = session.Ptr(style)
	}
	if action != "" {
		if _, ok := e.catalog.Action(action); !ok {
			return fmt.Errorf("%w: %s", prompts.ErrUnknownAction, action)
		}
		p.SelectedAction = session.Ptr(action)
	}
	e.store.Update(p)
	return nil
}

func (e *Engine) Usage() cost.Usage {
	if e.opts.ledger == nil {
		return cost.Usage{}
	}
	return e.opts.ledger.Usage()
}

// Reset clears the session state and the usage totals.
func (e *Engine) Reset() {
	if r, ok := e.store.(interface{ Reset() }); ok {
		r.Reset()
	}
	if e.opts.ledger != nil {
		e.opts.ledger.Reset()
	}
}
