// Package openai implements the image edit provider backed by the OpenAI
// images API.
package openai

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ruizrica/spriteforge/internal/provider"
	"github.com/ruizrica/spriteforge/pkg/models"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second
)

type apiResponse struct {
	Created int64       `json:"created"`
	Data    []imageData `json:"data"`
	Error   *apiError   `json:"error,omitempty"`
}

type imageData struct {
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type Provider struct {
	baseURL    string
	httpClient *http.Client
	registry   *models.ModelRegistry
	logger     *slog.Logger
	verbose    bool
}

func New(cfg *provider.Config, registry *models.ModelRegistry) *Provider {
	baseURL := defaultBaseURL
	timeout := defaultTimeout
	var verbose bool
	if cfg != nil {
		if cfg.BaseURL != "" {
			baseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
		if cfg.TimeoutSec > 0 {
			timeout = time.Duration(cfg.TimeoutSec) * time.Second
		}
		verbose = cfg.Verbose
	}

	return &Provider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		registry: registry,
		logger:   provider.LoggerFor(cfg),
		verbose:  verbose,
	}
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderOpenAI
}

func (p *Provider) SupportsModel(model string) bool {
	cap, ok := p.registry.Get(model)
	if !ok {
		return false
	}
	return cap.Provider == models.ProviderOpenAI
}

func (p *Provider) ListModels() []string {
	return p.registry.ListByProvider(models.ProviderOpenAI)
}

// firstImage decodes the first b64_json entry of a response.
func firstImage(apiResp apiResponse) (*models.Image, error) {
	for i, data := range apiResp.Data {
		if data.B64JSON == "" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(data.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("%w: decode image %d: %v", provider.ErrGenerationFailed, i, err)
		}
		return models.NewImage(decoded), nil
	}
	return nil, fmt.Errorf("%w: invalid response format: no image generated", provider.ErrGenerationFailed)
}

func (p *Provider) logRequest(method, url string, headers http.Header, fields map[string]string, imageBytes int) {
	if !p.verbose {
		return
	}

	attrs := []any{"method", method, "url", url, "headers", redactHeaders(headers), "image_bytes", imageBytes}
	for k, v := range fields {
		attrs = append(attrs, "form."+k, v)
	}
	p.logger.Debug("openai request", attrs...)
}

func (p *Provider) logResponse(statusCode int, body []byte) {
	if !p.verbose {
		return
	}
	p.logger.Debug("openai response", "status", statusCode, "body", string(truncateBase64InJSON(body)))
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		value := strings.Join(values, ",")
		if strings.EqualFold(key, "authorization") {
			value = "[REDACTED]"
		}
		out[key] = value
	}
	return out
}

func truncateBase64InJSON(body []byte) []byte {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	truncateBase64Fields(data)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return body
	}
	return bytes.TrimSpace(buf.Bytes())
}

func truncateBase64Fields(data map[string]any) {
	for key, value := range data {
		switch v := value.(type) {
		case string:
			if key == "b64_json" && len(v) > 100 {
				data[key] = v[:100] + "... [truncated]"
			}
		case map[string]any:
			truncateBase64Fields(v)
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					truncateBase64Fields(m)
				}
			}
		}
	}
}
