package sprite

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruizrica/spriteforge/internal/prompts"
	"github.com/ruizrica/spriteforge/internal/provider"
	"github.com/ruizrica/spriteforge/pkg/models"
)

// solid returns a 2x2 PNG whose red channel identifies it.
func solid(t testing.TB, id uint8) *models.Image {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for x := range 2 {
		for y := range 2 {
			img.Set(x, y, color.NRGBA{R: id, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &models.Image{MIMEType: "image/png", Data: buf.Bytes()}
}

// idOf reads back the identifier written by solid.
func idOf(t testing.TB, img *models.Image) uint8 {
	t.Helper()
	decoded, err := png.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	r, _, _, _ := decoded.At(0, 0).RGBA()
	return uint8(r >> 8)
}

type call struct {
	prompt string
	ref    uint8
	apiKey string
}

// fakeGenerator hands out images with increasing ids starting at 100 and
// fails every prompt containing one of the fail substrings.
type fakeGenerator struct {
	t    testing.TB
	mu   sync.Mutex
	fail []string
	next uint8
	log  []call
}

func newFakeGenerator(t testing.TB, fail ...string) *fakeGenerator {
	return &fakeGenerator{t: t, fail: fail, next: 100}
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, ref *models.Image, apiKey string) (*models.Image, error) {
	refID := idOf(g.t, ref)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.log = append(g.log, call{prompt: prompt, ref: refID, apiKey: apiKey})
	for _, f := range g.fail {
		if strings.Contains(prompt, f) {
			return nil, provider.ErrGenerationFailed
		}
	}
	g.next++
	return solid(g.t, g.next), nil
}

func (g *fakeGenerator) calls() []call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]call, len(g.log))
	copy(out, g.log)
	return out
}

func testCatalog() *prompts.Catalog {
	return prompts.NewCatalog(
		[]prompts.Style{
			{ID: models.OriginalStyle, Description: "style-original"},
			{ID: "style-a", Description: "style-a"},
			{ID: "style-b", Description: "style-b"},
			{ID: "style-c", Description: "style-c"},
		},
		[]prompts.Action{
			{ID: prompts.IdleAction, Frames: 2, Motion: "idle"},
			{ID: "walk", Frames: 3, Motion: "walk"},
		},
	)
}
