// Package prompts holds the style and action catalog and builds the text
// sent with every generation.
package prompts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ruizrica/spriteforge/pkg/models"
)

var (
	ErrUnknownStyle  = errors.New("unknown style")
	ErrUnknownAction = errors.New("unknown action")
)

// SystemPrimer is prepended to every prompt by the generation gateway.
const SystemPrimer = `You are a game sprite artist. Edit the provided reference image into a single game-ready sprite.
Rules:
- Keep the same character: identical silhouette proportions, colors, outfit and accessories.
- Output exactly one character, centered, full body, facing right unless told otherwise.
- Use a fully transparent background. No ground, shadows, text, borders or UI.
- Keep the art crisp and readable at 128x128 pixels.`

// IdleAction is used to render style variants.
const IdleAction models.ActionID = "idle"

type Style struct {
	ID          models.StyleID
	Name        string
	Description string
}

type Action struct {
	ID     models.ActionID
	Name   string
	Frames int
	Motion string
	// Poses describes the key pose of each frame; shorter than Frames is
	// fine, later frames reuse the generic motion description.
	Poses []string
}

type Catalog struct {
	styles  []Style
	actions []Action
}

func NewCatalog(styles []Style, actions []Action) *Catalog {
	return &Catalog{styles: styles, actions: actions}
}

func DefaultCatalog() *Catalog {
	return NewCatalog(defaultStyles, defaultActions)
}

var defaultStyles = []Style{
	{ID: models.OriginalStyle, Name: "Original", Description: "the exact art style of the reference image"},
	{ID: "pixel", Name: "Pixel Art", Description: "16-bit pixel art with a limited palette and hard pixel edges, no anti-aliasing"},
	{ID: "chibi", Name: "Chibi", Description: "cute chibi proportions with an oversized head, small body and thick clean outlines"},
	{ID: "anime", Name: "Anime", Description: "cel-shaded anime style with clean line art and two-tone shading"},
	{ID: "cartoon", Name: "Cartoon", Description: "bold western cartoon style with flat colors and heavy black outlines"},
	{ID: "painterly", Name: "Painterly", Description: "hand-painted fantasy style with soft brush strokes and rich lighting"},
}

var defaultActions = []Action{
	{ID: IdleAction, Name: "Idle", Frames: 4, Motion: "a relaxed breathing idle loop",
		Poses: []string{"neutral standing pose", "chest slightly raised, inhaling", "shoulders slightly lowered, exhaling", "returning to neutral"}},
	{ID: "walk", Name: "Walk", Frames: 6, Motion: "a steady walk cycle",
		Poses: []string{"contact pose, right foot forward", "down pose, weight on right foot", "passing pose, left leg swinging", "contact pose, left foot forward", "down pose, weight on left foot", "passing pose, right leg swinging"}},
	{ID: "run", Name: "Run", Frames: 6, Motion: "a fast run cycle with forward lean",
		Poses: []string{"push off with right foot", "airborne, legs apart", "land on left foot", "push off with left foot", "airborne, legs apart", "land on right foot"}},
	{ID: "jump", Name: "Jump", Frames: 4, Motion: "a vertical jump",
		Poses: []string{"crouch anticipation", "take off, legs extending", "peak of the jump, knees tucked", "landing with bent knees"}},
	{ID: "attack", Name: "Attack", Frames: 4, Motion: "a melee attack swing",
		Poses: []string{"wind up, weapon pulled back", "swing starts", "full extension, impact", "follow through and recover"}},
	{ID: "hurt", Name: "Hurt", Frames: 3, Motion: "a recoil after taking a hit",
		Poses: []string{"flinch backwards", "maximum recoil, eyes shut", "recovering balance"}},
}

func (c *Catalog) Styles() []Style {
	out := make([]Style, len(c.styles))
	copy(out, c.styles)
	return out
}

func (c *Catalog) StyleIDs() []models.StyleID {
	ids := make([]models.StyleID, len(c.styles))
	for i, s := range c.styles {
		ids[i] = s.ID
	}
	return ids
}

func (c *Catalog) Style(id models.StyleID) (Style, bool) {
	for _, s := range c.styles {
		if s.ID == id {
			return s, true
		}
	}
	return Style{}, false
}

func (c *Catalog) Actions() []Action {
	out := make([]Action, len(c.actions))
	copy(out, c.actions)
	return out
}

func (c *Catalog) Action(id models.ActionID) (Action, bool) {
	for _, a := range c.actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// Build returns the prompt for one frame. continuation marks frames that
// are generated from the preceding frame's image.
func (c *Catalog) Build(styleID models.StyleID, actionID models.ActionID, token string, index int, continuation bool) (string, error) {
	style, ok := c.Style(styleID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownStyle, styleID)
	}
	action, ok := c.Action(actionID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, actionID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Character reference: %s.\n", token)
	fmt.Fprintf(&b, "Art style: %s.\n", style.Description)
	fmt.Fprintf(&b, "Animation: %s, frame %d of %d.\n", action.Motion, index+1, action.Frames)
	if index < len(action.Poses) {
		fmt.Fprintf(&b, "Pose: %s.\n", action.Poses[index])
	}
	if continuation {
		b.WriteString("The input image is the previous frame of this animation. Advance the motion by exactly one step; keep the character, scale, position and palette identical.\n")
	} else if styleID != models.OriginalStyle {
		b.WriteString("Redraw the input character in the art style above.\n")
	}
	b.WriteString("Transparent background, single sprite, no text.")
	return b.String(), nil
}

// StylePrompt is the prompt used to render a style variant.
func (c *Catalog) StylePrompt(styleID models.StyleID, token string) (string, error) {
	return c.Build(styleID, IdleAction, token, 0, false)
}

// NewReferenceToken returns an identity token like CHAR_m5x3k2p1.
func NewReferenceToken(t time.Time) string {
	return "CHAR_" + strconv.FormatInt(t.UnixMilli(), 36)
}
