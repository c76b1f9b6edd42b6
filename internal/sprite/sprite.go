// Package sprite orchestrates sprite generation: it resolves which image
// each frame is generated from, fans style variants out concurrently and
// drives the sequential frame chains of an animation.
package sprite

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ruizrica/spriteforge/internal/cost"
	"github.com/ruizrica/spriteforge/internal/provider"
	"github.com/ruizrica/spriteforge/pkg/models"
)

var (
	ErrUnresolvableReference = errors.New("no reference image available for frame")
	ErrAllStylesFailed       = errors.New("failed to generate any styles")
	ErrNoStyles              = errors.New("no styles requested")
	ErrInvalidFrame          = errors.New("invalid frame index")
	ErrNoSelection           = errors.New("no style or action selected")
)

// Generator turns a prompt and a reference image into a new image.
// provider.Gateway is the production implementation.
type Generator interface {
	Generate(ctx context.Context, prompt string, reference *models.Image, apiKey string) (*models.Image, error)
}

var _ Generator = (*provider.Gateway)(nil)

// Observer is notified of every frame transition, Pending and Settled.
type Observer func(models.ActionFrame)

const defaultParallelism = 4

type options struct {
	logger      *slog.Logger
	ledger      *cost.Ledger
	sizeClass   cost.SizeClass
	parallelism int
	observers   []Observer
	spriteSize  int
	now         func() time.Time
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLedger records every generation in l, priced as sc.
func WithLedger(l *cost.Ledger, sc cost.SizeClass) Option {
	return func(o *options) {
		o.ledger = l
		o.sizeClass = sc
	}
}

// WithParallelism bounds concurrent style generations. n < 1 means no limit.
func WithParallelism(n int) Option {
	return func(o *options) { o.parallelism = n }
}

func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithSpriteSize sets the edge length references are normalized to.
func WithSpriteSize(size int) Option {
	return func(o *options) { o.spriteSize = size }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{
		logger:      slog.Default(),
		parallelism: defaultParallelism,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// account feeds the outcome of one generation call to the ledger. Calls
// rejected before reaching the backend are not counted.
func (o *options) account(ctx context.Context, prompt string, err error) {
	if o.ledger == nil {
		return
	}
	switch {
	case err == nil:
		o.ledger.Record(ctx, prompt, o.sizeClass)
	case errors.Is(err, provider.ErrGenerationFailed):
		o.ledger.RecordFailure(ctx, prompt, o.sizeClass)
	}
}

func (o *options) notify(f models.ActionFrame) {
	for _, obs := range o.observers {
		obs(f)
	}
}
