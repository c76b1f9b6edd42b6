package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

var (
	ErrEmptyPrompt     = errors.New("prompt cannot be empty")
	ErrInvalidSize     = errors.New("invalid size for model")
	ErrInvalidQuality  = errors.New("invalid quality for model")
	ErrNoImageData     = errors.New("image data is required for editing")
	ErrInvalidDataURL  = errors.New("invalid data URL")
	ErrUnknownModel    = errors.New("unknown model")
	ErrUnsupportedMIME = errors.New("unsupported image type")
)

type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOpenAI ProviderType = "openai"
)

func ValidProviders() []ProviderType {
	return []ProviderType{ProviderGemini, ProviderOpenAI}
}

func (p ProviderType) IsValid() bool {
	return slices.Contains(ValidProviders(), p)
}

// Image is an encoded raster payload. Reference images and generated
// artifacts share this type and are never mutated after creation.
type Image struct {
	MIMEType string
	Data     []byte
}

// NewImage wraps raw bytes, sniffing the MIME type from the content.
func NewImage(data []byte) *Image {
	return &Image{
		MIMEType: http.DetectContentType(data),
		Data:     data,
	}
}

func (i *Image) IsEmpty() bool {
	return i == nil || len(i.Data) == 0
}

func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL renders the image as data:<mime>;base64,<payload>.
func (i *Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + i.Base64()
}

func ParseDataURL(s string) (*Image, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}

	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}

	if mime == "" {
		mime = http.DetectContentType(data)
	}

	return &Image{MIMEType: mime, Data: data}, nil
}

// EditRequest is a single image-to-image call: a prompt applied to a
// reference image. It lives only for the duration of the call.
type EditRequest struct {
	Image   *Image
	Prompt  string
	Model   string
	Size    string
	Quality string
	APIKey  string
}

func NewEditRequest(image *Image, prompt string) *EditRequest {
	return &EditRequest{
		Image:  image,
		Prompt: prompt,
	}
}

func (r *EditRequest) Validate() error {
	if r.Image.IsEmpty() {
		return ErrNoImageData
	}
	if r.Prompt == "" {
		return ErrEmptyPrompt
	}
	return nil
}

type ModelCapabilities struct {
	Name               string
	Provider           ProviderType
	SupportedSizes     []string
	SupportedQualities []string
	DefaultSize        string
	DefaultQuality     string
	AspectRatio        string
}

func (c *ModelCapabilities) Validate(req *EditRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if req.Size != "" && len(c.SupportedSizes) > 0 && !slices.Contains(c.SupportedSizes, req.Size) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidSize, req.Size, c.SupportedSizes)
	}

	if req.Quality != "" && len(c.SupportedQualities) > 0 && !slices.Contains(c.SupportedQualities, req.Quality) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidQuality, req.Quality, c.SupportedQualities)
	}

	return nil
}

func (c *ModelCapabilities) ApplyDefaults(req *EditRequest) {
	if req.Size == "" {
		req.Size = c.DefaultSize
	}
	if req.Quality == "" && c.DefaultQuality != "" {
		req.Quality = c.DefaultQuality
	}
	if req.Model == "" {
		req.Model = c.Name
	}
}

type ModelRegistry struct {
	models map[string]*ModelCapabilities
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models: make(map[string]*ModelCapabilities),
	}
}

func (r *ModelRegistry) Register(cap *ModelCapabilities) {
	r.models[cap.Name] = cap
}

func (r *ModelRegistry) Get(name string) (*ModelCapabilities, bool) {
	cap, ok := r.models[name]
	return cap, ok
}

func (r *ModelRegistry) List() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *ModelRegistry) ListByProvider(provider ProviderType) []string {
	var names []string
	for name, cap := range r.models {
		if cap.Provider == provider {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// DefaultModel returns the first registered model for a provider.
func (r *ModelRegistry) DefaultModel(provider ProviderType) (string, bool) {
	names := r.ListByProvider(provider)
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

func DefaultRegistry() *ModelRegistry {
	r := NewModelRegistry()

	r.Register(&ModelCapabilities{
		Name:           "gemini-2.5-flash-image",
		Provider:       ProviderGemini,
		SupportedSizes: []string{"1024x1024"},
		DefaultSize:    "1024x1024",
		AspectRatio:    "1:1",
	})

	r.Register(&ModelCapabilities{
		Name:               "gpt-image-1",
		Provider:           ProviderOpenAI,
		SupportedSizes:     []string{"1024x1024", "1536x1024", "1024x1536", "auto"},
		SupportedQualities: []string{"auto", "low", "medium", "high"},
		DefaultSize:        "1024x1024",
		DefaultQuality:     "medium",
	})

	return r
}
