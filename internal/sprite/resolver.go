package sprite

import (
	"fmt"

	imgutil "github.com/ruizrica/spriteforge/internal/image"
	"github.com/ruizrica/spriteforge/internal/session"
	"github.com/ruizrica/spriteforge/pkg/models"
)

type Resolution struct {
	Image  *models.Image
	Source models.InputSource
}

// Resolve picks the image a frame is generated from, in priority order:
// the previous frame of the same chain, the style's variant, the original
// reference. An artifact that fails to decode falls through to the next
// source. Resolve only reads snap.
func Resolve(snap session.Snapshot, style models.StyleID, action models.ActionID, index int) (Resolution, error) {
	if index > 0 {
		prev, ok := snap.Frame(models.FrameKey{ActionID: action, StyleID: style, Index: index - 1})
		if ok && prev.Result.HasImage() {
			if img, err := imgutil.ToPNG(prev.Result.Image()); err == nil {
				return Resolution{Image: img, Source: models.SourcePreviousFrame}, nil
			}
		}
	}

	if style != models.OriginalStyle {
		if v, ok := snap.Style(style); ok && v.Result.HasImage() {
			if img, err := imgutil.ToPNG(v.Result.Image()); err == nil {
				return Resolution{Image: img, Source: models.SourceStyledImage}, nil
			}
		}
	}

	if snap.Reference.IsEmpty() {
		return Resolution{}, ErrUnresolvableReference
	}
	img, err := imgutil.ToPNG(snap.Reference)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrUnresolvableReference, err)
	}
	return Resolution{Image: img, Source: models.SourceOriginal}, nil
}
