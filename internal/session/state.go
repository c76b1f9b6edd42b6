package session

import (
	"slices"
	"sync"

	"github.com/ruizrica/spriteforge/pkg/models"
)

// Snapshot is a point-in-time copy of the orchestration state. Slices in
// a snapshot returned by Get are owned by the caller.
type Snapshot struct {
	Reference      *models.Image
	ReferenceToken string
	Styles         []models.StyleVariant
	Frames         []models.ActionFrame
	SelectedStyle  models.StyleID
	SelectedAction models.ActionID
}

func (s Snapshot) Clone() Snapshot {
	s.Styles = slices.Clone(s.Styles)
	s.Frames = slices.Clone(s.Frames)
	return s
}

func (s Snapshot) Style(id models.StyleID) (models.StyleVariant, bool) {
	for _, v := range s.Styles {
		if v.ID == id {
			return v, true
		}
	}
	return models.StyleVariant{}, false
}

func (s Snapshot) Frame(key models.FrameKey) (models.ActionFrame, bool) {
	for _, f := range s.Frames {
		if f.Key() == key {
			return f, true
		}
	}
	return models.ActionFrame{}, false
}

// ChainFrames returns the frames of one (style, action) chain ordered by index.
func (s Snapshot) ChainFrames(style models.StyleID, action models.ActionID) []models.ActionFrame {
	var out []models.ActionFrame
	for _, f := range s.Frames {
		if f.StyleID == style && f.ActionID == action {
			out = append(out, f)
		}
	}
	slices.SortFunc(out, func(a, b models.ActionFrame) int { return a.Index - b.Index })
	return out
}

// Patch is a shallow update. Nil fields are left untouched; a non-nil
// collection replaces the stored one wholesale.
type Patch struct {
	Reference      *models.Image
	ReferenceToken *string
	Styles         []models.StyleVariant
	Frames         []models.ActionFrame
	SelectedStyle  *models.StyleID
	SelectedAction *models.ActionID
}

func Ptr[T any](v T) *T {
	return &v
}

type StateStore interface {
	Get() Snapshot
	Update(p Patch)
	// Modify applies the patch returned by fn atomically with respect to
	// other updates. fn must not call back into the store.
	Modify(fn func(Snapshot) Patch)
}

type State struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewState() *State {
	return &State{}
}

func (s *State) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

func (s *State) Update(p Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(p)
}

func (s *State) Modify(fn func(Snapshot) Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(fn(s.snap.Clone()))
}

func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{}
}

func (s *State) apply(p Patch) {
	if p.Reference != nil {
		s.snap.Reference = p.Reference
	}
	if p.ReferenceToken != nil {
		s.snap.ReferenceToken = *p.ReferenceToken
	}
	if p.Styles != nil {
		s.snap.Styles = slices.Clone(p.Styles)
	}
	if p.Frames != nil {
		s.snap.Frames = slices.Clone(p.Frames)
	}
	if p.SelectedStyle != nil {
		s.snap.SelectedStyle = *p.SelectedStyle
	}
	if p.SelectedAction != nil {
		s.snap.SelectedAction = *p.SelectedAction
	}
}

// ReplaceFrame returns a new frame collection with f stored under its key,
// replacing any existing record for that key.
func ReplaceFrame(frames []models.ActionFrame, f models.ActionFrame) []models.ActionFrame {
	out := make([]models.ActionFrame, 0, len(frames)+1)
	replaced := false
	for _, existing := range frames {
		if existing.Key() == f.Key() {
			out = append(out, f)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, f)
	}
	return out
}

// ReplaceStyle does the same for style variants.
func ReplaceStyle(styles []models.StyleVariant, v models.StyleVariant) []models.StyleVariant {
	out := make([]models.StyleVariant, 0, len(styles)+1)
	replaced := false
	for _, existing := range styles {
		if existing.ID == v.ID {
			out = append(out, v)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, v)
	}
	return out
}

// TrimChain drops the frames of (style, action) at index count and above.
func TrimChain(frames []models.ActionFrame, style models.StyleID, action models.ActionID, count int) []models.ActionFrame {
	out := make([]models.ActionFrame, 0, len(frames))
	for _, f := range frames {
		if f.StyleID == style && f.ActionID == action && f.Index >= count {
			continue
		}
		out = append(out, f)
	}
	return out
}
