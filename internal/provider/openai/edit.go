package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	imgutil "github.com/ruizrica/spriteforge/internal/image"
	"github.com/ruizrica/spriteforge/internal/provider"
	"github.com/ruizrica/spriteforge/pkg/models"
)

// Edit posts the reference image and prompt to /images/edits and returns
// the first image of the response.
func (p *Provider) Edit(ctx context.Context, req *models.EditRequest) (*models.Image, error) {
	if req.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", provider.ErrInvalidInput, err)
	}
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("%w: %s", provider.ErrModelNotSupported, req.Model)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := "reference." + imgutil.Extension(req.Image.MIMEType)
	imagePart, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := imagePart.Write(req.Image.Data); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}

	fields := map[string]string{
		"prompt":        req.Prompt,
		"model":         req.Model,
		"n":             "1",
		"background":    "transparent",
		"output_format": "png",
	}
	if req.Size != "" {
		fields["size"] = req.Size
	}
	if req.Quality != "" {
		fields["quality"] = req.Quality
	}
	for _, name := range []string{"prompt", "model", "n", "size", "quality", "background", "output_format"} {
		value, ok := fields[name]
		if !ok {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := p.baseURL + "/images/edits"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	p.logRequest(http.MethodPost, url, httpReq.Header, fields, len(req.Image.Data))

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %w", provider.ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", provider.ErrGenerationFailed, err)
	}

	p.logResponse(resp.StatusCode, bodyBytes)

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: parse response (status %d): %v", provider.ErrGenerationFailed, resp.StatusCode, err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrGenerationFailed, apiResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", provider.ErrGenerationFailed, resp.StatusCode)
	}

	return firstImage(apiResp)
}
