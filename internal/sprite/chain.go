package sprite

import (
	"context"
	"fmt"

	"github.com/ruizrica/spriteforge/internal/prompts"
	"github.com/ruizrica/spriteforge/internal/provider"
	"github.com/ruizrica/spriteforge/internal/session"
	"github.com/ruizrica/spriteforge/pkg/models"
)

// ChainRequest asks for frames 0..FrameCount-1 of one (style, action)
// chain. Empty IDs fall back to the session selection; FrameCount 0 uses
// the action's frame count.
type ChainRequest struct {
	StyleID    models.StyleID
	ActionID   models.ActionID
	FrameCount int
	APIKey     string
}

// RegenerateRequest regenerates one frame with Prompt sent verbatim.
type RegenerateRequest struct {
	StyleID    models.StyleID
	ActionID   models.ActionID
	FrameIndex int
	Prompt     string
	APIKey     string
}

// Chain generates the frames of an animation one after another, feeding
// each settled frame back as the reference of the next.
type Chain struct {
	gen     Generator
	store   session.StateStore
	catalog *prompts.Catalog
	opts    options
}

func NewChain(gen Generator, store session.StateStore, catalog *prompts.Catalog, opts ...Option) *Chain {
	return &Chain{gen: gen, store: store, catalog: catalog, opts: newOptions(opts)}
}

// Run generates the chain in index order. Frames of the chain at index
// FrameCount and above are dropped first so the stored chain matches the
// run. Frame i settles before frame i+1 is requested; a failed frame is
// recorded and the chain continues. On
// context cancellation the frames settled so far are returned with the
// context error.
func (c *Chain) Run(ctx context.Context, req ChainRequest) ([]models.ActionFrame, error) {
	if req.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}
	style, action, err := c.selection(req.StyleID, req.ActionID)
	if err != nil {
		return nil, err
	}
	def, err := c.action(action)
	if err != nil {
		return nil, err
	}

	count := req.FrameCount
	if count == 0 {
		count = def.Frames
	}
	if count < 0 || count > def.Frames {
		return nil, fmt.Errorf("%w: %s has %d frames, requested %d", ErrInvalidFrame, action, def.Frames, count)
	}
	if c.store.Get().Reference.IsEmpty() {
		return nil, ErrUnresolvableReference
	}

	c.store.Modify(func(s session.Snapshot) session.Patch {
		return session.Patch{Frames: session.TrimChain(s.Frames, style, action, count)}
	})

	c.opts.logger.InfoContext(ctx, "generating frame chain", "style", style, "action", action, "frames", count)

	frames := make([]models.ActionFrame, 0, count)
	for i := range count {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		frames = append(frames, c.generate(ctx, style, action, i, "", req.APIKey))
	}
	return frames, nil
}

// Regenerate replaces a single frame. The reference is resolved against the
// current chain and sibling frames are never touched. A generation failure
// is stored on the frame and is not returned as an error.
func (c *Chain) Regenerate(ctx context.Context, req RegenerateRequest) (models.ActionFrame, error) {
	if req.APIKey == "" {
		return models.ActionFrame{}, provider.ErrAPIKeyRequired
	}
	if req.Prompt == "" {
		return models.ActionFrame{}, fmt.Errorf("%w: %w", provider.ErrInvalidInput, models.ErrEmptyPrompt)
	}
	style, action, err := c.selection(req.StyleID, req.ActionID)
	if err != nil {
		return models.ActionFrame{}, err
	}
	def, err := c.action(action)
	if err != nil {
		return models.ActionFrame{}, err
	}
	if req.FrameIndex < 0 || req.FrameIndex >= def.Frames {
		return models.ActionFrame{}, fmt.Errorf("%w: %d (%s has %d frames)", ErrInvalidFrame, req.FrameIndex, action, def.Frames)
	}

	c.opts.logger.InfoContext(ctx, "regenerating frame", "style", style, "action", action, "frame", req.FrameIndex)
	return c.generate(ctx, style, action, req.FrameIndex, req.Prompt, req.APIKey), nil
}

// DefaultPrompt returns the prompt Run would send for a frame given the
// current state of its chain.
func (c *Chain) DefaultPrompt(style models.StyleID, action models.ActionID, index int) (string, error) {
	style, action, err := c.selection(style, action)
	if err != nil {
		return "", err
	}
	snap := c.store.Get()
	res, err := Resolve(snap, style, action, index)
	if err != nil {
		return "", err
	}
	return c.catalog.Build(style, action, snap.ReferenceToken, index, res.Source == models.SourcePreviousFrame)
}

// generate runs one frame through Pending and Settled. An empty prompt
// means the catalog prompt for the frame.
func (c *Chain) generate(ctx context.Context, style models.StyleID, action models.ActionID, index int, prompt, apiKey string) models.ActionFrame {
	frame := models.ActionFrame{
		ActionID: action,
		StyleID:  style,
		Index:    index,
		Result:   models.Pending(),
		Prompt:   prompt,
	}
	c.install(frame)

	snap := c.store.Get()
	res, err := Resolve(snap, style, action, index)
	if err != nil {
		return c.settle(ctx, frame, err)
	}
	frame.Source = res.Source
	frame.FromPrevious = res.Source == models.SourcePreviousFrame

	if frame.Prompt == "" {
		frame.Prompt, err = c.catalog.Build(style, action, snap.ReferenceToken, index, frame.FromPrevious)
		if err != nil {
			return c.settle(ctx, frame, err)
		}
	}

	img, err := c.gen.Generate(ctx, frame.Prompt, res.Image, apiKey)
	c.opts.account(ctx, frame.Prompt, err)
	if err != nil {
		return c.settle(ctx, frame, err)
	}
	frame.Result = models.Succeeded(img)
	c.install(frame)
	c.opts.logger.DebugContext(ctx, "frame generated", "frame", frame.Key().String(), "source", frame.Source)
	return frame
}

func (c *Chain) settle(ctx context.Context, frame models.ActionFrame, err error) models.ActionFrame {
	frame.Result = models.Failed(err.Error())
	c.install(frame)
	c.opts.logger.WarnContext(ctx, "frame generation failed", "frame", frame.Key().String(), "error", err)
	return frame
}

func (c *Chain) install(frame models.ActionFrame) {
	c.store.Modify(func(s session.Snapshot) session.Patch {
		return session.Patch{Frames: session.ReplaceFrame(s.Frames, frame)}
	})
	c.opts.notify(frame)
}

func (c *Chain) selection(style models.StyleID, action models.ActionID) (models.StyleID, models.ActionID, error) {
	if style == "" || action == "" {
		snap := c.store.Get()
		if style == "" {
			style = snap.SelectedStyle
		}
		if action == "" {
			action = snap.SelectedAction
		}
	}
	if style == "" || action == "" {
		return "", "", ErrNoSelection
	}
	if _, ok := c.catalog.Style(style); !ok {
		return "", "", fmt.Errorf("%w: %s", prompts.ErrUnknownStyle, style)
	}
	return style, action, nil
}

func (c *Chain) action(id models.ActionID) (prompts.Action, error) {
	def, ok := c.catalog.Action(id)
	if !ok {
		return prompts.Action{}, fmt.Errorf("%w: %s", prompts.ErrUnknownAction, id)
	}
	return def, nil
}
