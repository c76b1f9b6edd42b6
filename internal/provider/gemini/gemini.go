// Package gemini implements the image edit provider backed by the Gemini
// image model.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/ruizrica/spriteforge/internal/provider"
	"github.com/ruizrica/spriteforge/pkg/models"
)

const (
	defaultTimeout = 120 * time.Second
	defaultModel   = "gemini-2.5-flash-image"
	defaultAspect  = "1:1"
	imageModality  = "IMAGE"
)

type Provider struct {
	httpClient *http.Client
	baseURL    string
	registry   *models.ModelRegistry
	logger     *slog.Logger

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func New(cfg *provider.Config, registry *models.ModelRegistry) *Provider {
	timeout := defaultTimeout
	var baseURL string
	if cfg != nil {
		if cfg.TimeoutSec > 0 {
			timeout = time.Duration(cfg.TimeoutSec) * time.Second
		}
		baseURL = cfg.BaseURL
	}

	return &Provider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		registry:   registry,
		logger:     provider.LoggerFor(cfg),
		clients:    make(map[string]*genai.Client),
	}
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderGemini
}

func (p *Provider) SupportsModel(model string) bool {
	cap, ok := p.registry.Get(model)
	return ok && cap.Provider == models.ProviderGemini
}

func (p *Provider) ListModels() []string {
	return p.registry.ListByProvider(models.ProviderGemini)
}

// client returns the SDK client bound to apiKey, creating it on first use.
func (p *Provider) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[apiKey]; ok {
		return c, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
	}
	if p.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}

	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	p.clients[apiKey] = c
	return c, nil
}

func (p *Provider) Edit(ctx context.Context, req *models.EditRequest) (*models.Image, error) {
	if req.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", provider.ErrInvalidInput, err)
	}

	model := req.Model
	if model == "" {
		model = defaultModel
	}
	aspect := defaultAspect
	if cap, ok := p.registry.Get(model); ok && cap.AspectRatio != "" {
		aspect = cap.AspectRatio
	}

	client, err := p.client(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}

	mimeType := req.Image.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.Prompt),
			genai.NewPartFromBytes(req.Image.Data, mimeType),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{imageModality},
		ImageConfig:        &genai.ImageConfig{AspectRatio: aspect},
	}

	p.logger.DebugContext(ctx, "gemini request",
		"model", model,
		"aspect_ratio", aspect,
		"prompt_length", len(req.Prompt),
		"image_bytes", len(req.Image.Data),
	)

	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrGenerationFailed, err)
	}
	return parseResponse(resp)
}

// parseResponse returns the first inline image of the first candidate.
func parseResponse(resp *genai.GenerateContentResponse) (*models.Image, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response from Gemini API", provider.ErrGenerationFailed)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked (%s)", provider.ErrGenerationFailed, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates returned from Gemini API", provider.ErrGenerationFailed)
	}

	// The first candidate carrying image data wins; later candidates are
	// only consulted when earlier ones have none.
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &models.Image{
					MIMEType: part.InlineData.MIMEType,
					Data:     part.InlineData.Data,
				}, nil
			}
		}
	}

	for _, candidate := range resp.Candidates {
		if candidate != nil && candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
			return nil, fmt.Errorf("%w: generation stopped (finish reason %s)", provider.ErrGenerationFailed, candidate.FinishReason)
		}
	}
	return nil, fmt.Errorf("%w: invalid response format: no image generated", provider.ErrGenerationFailed)
}
