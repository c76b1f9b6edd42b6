package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	imgutil "github.com/ruizrica/spriteforge/internal/image"
	"github.com/ruizrica/spriteforge/pkg/models"
)

const (
	DefaultGenerateTimeout = 120 * time.Second
	tracerName             = "github.com/ruizrica/spriteforge/internal/provider"
)

// Gateway wraps one provider and model: it validates inputs, prepends the
// system primer, enforces the per-call timeout and checks the output.
// It makes exactly one backend call per Generate and never retries.
type Gateway struct {
	provider Provider
	caps     *models.ModelCapabilities
	primer   string
	timeout  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
}

type GatewayOption func(*Gateway)

func WithPrimer(primer string) GatewayOption {
	return func(g *Gateway) { g.primer = primer }
}

func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = logger }
}

func WithTracer(tracer trace.Tracer) GatewayOption {
	return func(g *Gateway) { g.tracer = tracer }
}

func NewGateway(p Provider, caps *models.ModelCapabilities, opts ...GatewayOption) *Gateway {
	if caps == nil {
		caps = &models.ModelCapabilities{}
	}
	g := &Gateway{
		provider: p,
		caps:     caps,
		timeout:  DefaultGenerateTimeout,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Provider() models.ProviderType {
	return g.provider.Name()
}

func (g *Gateway) Model() *models.ModelCapabilities {
	return g.caps
}

// Generate edits reference according to prompt and returns the new image.
func (g *Gateway) Generate(ctx context.Context, prompt string, reference *models.Image, apiKey string) (*models.Image, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if prompt == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, models.ErrEmptyPrompt)
	}
	if reference.IsEmpty() {
		return nil, fmt.Errorf("%w: reference image is empty", ErrInvalidInput)
	}
	if _, _, err := imgutil.Inspect(reference.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	fullPrompt := prompt
	if g.primer != "" {
		fullPrompt = g.primer + "\n\n" + prompt
	}

	req := models.NewEditRequest(reference, fullPrompt)
	req.APIKey = apiKey
	g.caps.ApplyDefaults(req)
	if err := g.caps.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	ctx, span := g.tracer.Start(ctx, "provider.Generate", trace.WithAttributes(
		attribute.String("provider", string(g.provider.Name())),
		attribute.String("model", req.Model),
		attribute.Int("prompt.length", len(fullPrompt)),
		attribute.Int("reference.bytes", len(reference.Data)),
	))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	img, err := g.provider.Edit(callCtx, req)
	elapsed := time.Since(start)

	if err == nil {
		err = validateOutput(img)
	}
	if err != nil {
		err = g.classify(ctx, callCtx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.WarnContext(ctx, "generation failed",
			"provider", g.provider.Name(),
			"model", req.Model,
			"duration", elapsed,
			"error", err,
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("output.bytes", len(img.Data)))
	g.logger.DebugContext(ctx, "generation succeeded",
		"provider", g.provider.Name(),
		"model", req.Model,
		"duration", elapsed,
		"bytes", len(img.Data),
	)
	return img, nil
}

func (g *Gateway) classify(parent, call context.Context, err error) error {
	switch {
	case errors.Is(err, ErrAPIKeyRequired):
		return err
	case parent.Err() != nil:
		return fmt.Errorf("%w: %w", ErrGenerationFailed, parent.Err())
	case errors.Is(call.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: timeout after %s", ErrGenerationFailed, g.timeout)
	case errors.Is(err, ErrGenerationFailed):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
}

func validateOutput(img *models.Image) error {
	if img.IsEmpty() {
		return fmt.Errorf("%w: invalid response format: no image generated", ErrGenerationFailed)
	}
	_, format, err := imgutil.Inspect(img.Data)
	if err != nil {
		return fmt.Errorf("%w: returned data is not an image", ErrGenerationFailed)
	}
	if img.MIMEType == "" {
		img.MIMEType = "image/" + format
	}
	return nil
}
