package session

import (
	"sync"
	"testing"

	"github.com/ruizrica/spriteforge/pkg/models"
)

func testImage() *models.Image {
	return &models.Image{MIMEType: "image/png", Data: []byte("png")}
}

func TestState_EmptySnapshot(t *testing.T) {
	s := NewState()
	snap := s.Get()
	if snap.Reference != nil || len(snap.Styles) != 0 || len(snap.Frames) != 0 {
		t.Errorf("NewState().Get() = %+v, want empty", snap)
	}
}

func TestState_UpdateShallowMerge(t *testing.T) {
	s := NewState()
	ref := testImage()

	s.Update(Patch{
		Reference:      ref,
		ReferenceToken: Ptr("CHAR_abc"),
		Styles:         []models.StyleVariant{{ID: "pixel", Result: models.Succeeded(ref)}},
	})
	s.Update(Patch{SelectedStyle: Ptr(models.StyleID("pixel"))})

	snap := s.Get()
	if snap.Reference != ref {
		t.Error("Reference was cleared by an unrelated update")
	}
	if snap.ReferenceToken != "CHAR_abc" {
		t.Errorf("ReferenceToken = %q", snap.ReferenceToken)
	}
	if len(snap.Styles) != 1 {
		t.Errorf("Styles len = %d, want 1", len(snap.Styles))
	}
	if snap.SelectedStyle != "pixel" {
		t.Errorf("SelectedStyle = %q", snap.SelectedStyle)
	}
}

func TestState_CollectionsReplacedWholesale(t *testing.T) {
	s := NewState()
	s.Update(Patch{Frames: []models.ActionFrame{
		{ActionID: "walk", StyleID: "pixel", Index: 0},
		{ActionID: "walk", StyleID: "pixel", Index: 1},
	}})
	s.Update(Patch{Frames: []models.ActionFrame{{ActionID: "jump", StyleID: "pixel", Index: 0}}})

	snap := s.Get()
	if len(snap.Frames) != 1 || snap.Frames[0].ActionID != "jump" {
		t.Errorf("Frames = %+v, want only the jump frame", snap.Frames)
	}

	// An empty non-nil slice clears the collection.
	s.Update(Patch{Frames: []models.ActionFrame{}})
	if got := len(s.Get().Frames); got != 0 {
		t.Errorf("Frames len = %d, want 0", got)
	}
}

func TestState_GetReturnsCopy(t *testing.T) {
	s := NewState()
	s.Update(Patch{Styles: []models.StyleVariant{{ID: "pixel"}}})

	snap := s.Get()
	snap.Styles[0].ID = "mutated"

	if s.Get().Styles[0].ID != "pixel" {
		t.Error("mutating a snapshot leaked into the store")
	}
}

func TestState_ModifyIsAtomic(t *testing.T) {
	s := NewState()

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			frame := models.ActionFrame{ActionID: "walk", StyleID: "pixel", Index: i}
			s.Modify(func(snap Snapshot) Patch {
				return Patch{Frames: ReplaceFrame(snap.Frames, frame)}
			})
		}()
	}
	wg.Wait()

	if got := len(s.Get().Frames); got != 40 {
		t.Errorf("Frames len = %d, want 40 (lost updates)", got)
	}
}

func TestState_Reset(t *testing.T) {
	s := NewState()
	s.Update(Patch{Reference: testImage(), SelectedAction: Ptr(models.ActionID("walk"))})
	s.Reset()

	snap := s.Get()
	if snap.Reference != nil || snap.SelectedAction != "" {
		t.Errorf("Get() after Reset = %+v", snap)
	}
}

func TestSnapshot_Lookups(t *testing.T) {
	snap := Snapshot{
		Styles: []models.StyleVariant{{ID: "pixel"}, {ID: "anime"}},
		Frames: []models.ActionFrame{
			{ActionID: "walk", StyleID: "pixel", Index: 2},
			{ActionID: "walk", StyleID: "pixel", Index: 0},
			{ActionID: "jump", StyleID: "pixel", Index: 0},
			{ActionID: "walk", StyleID: "anime", Index: 1},
		},
	}

	if _, ok := snap.Style("anime"); !ok {
		t.Error("Style(anime) not found")
	}
	if _, ok := snap.Style("chibi"); ok {
		t.Error("Style(chibi) should not be found")
	}

	if _, ok := snap.Frame(models.FrameKey{ActionID: "walk", StyleID: "anime", Index: 1}); !ok {
		t.Error("Frame(anime/walk/1) not found")
	}

	chain := snap.ChainFrames("pixel", "walk")
	if len(chain) != 2 || chain[0].Index != 0 || chain[1].Index != 2 {
		t.Errorf("ChainFrames() = %+v", chain)
	}
}

func TestReplaceFrame(t *testing.T) {
	frames := []models.ActionFrame{
		{ActionID: "walk", StyleID: "pixel", Index: 0, Prompt: "old"},
		{ActionID: "walk", StyleID: "pixel", Index: 1},
	}

	out := ReplaceFrame(frames, models.ActionFrame{ActionID: "walk", StyleID: "pixel", Index: 0, Prompt: "new"})
	if len(out) != 2 || out[0].Prompt != "new" {
		t.Errorf("ReplaceFrame() = %+v", out)
	}
	if frames[0].Prompt != "old" {
		t.Error("ReplaceFrame() modified its input")
	}

	out = ReplaceFrame(out, models.ActionFrame{ActionID: "walk", StyleID: "pixel", Index: 2})
	if len(out) != 3 {
		t.Errorf("ReplaceFrame() len = %d, want 3", len(out))
	}
}

func TestTrimChain(t *testing.T) {
	frames := []models.ActionFrame{
		{ActionID: "walk", StyleID: "pixel", Index: 0},
		{ActionID: "walk", StyleID: "pixel", Index: 1},
		{ActionID: "walk", StyleID: "pixel", Index: 2},
		{ActionID: "walk", StyleID: "anime", Index: 2},
		{ActionID: "jump", StyleID: "pixel", Index: 2},
	}

	out := TrimChain(frames, "pixel", "walk", 1)
	if len(out) != 3 {
		t.Fatalf("TrimChain() = %+v, want 3 frames", out)
	}
	for _, f := range out {
		if f.StyleID == "pixel" && f.ActionID == "walk" && f.Index != 0 {
			t.Errorf("TrimChain() kept %+v", f.Key())
		}
	}
	if len(frames) != 5 {
		t.Error("TrimChain() modified its input")
	}
	if out := TrimChain(nil, "pixel", "walk", 0); out == nil {
		t.Error("TrimChain(nil) = nil, want empty slice")
	}
}

func TestReplaceStyle(t *testing.T) {
	styles := []models.StyleVariant{{ID: "pixel", Result: models.Failed("x")}}
	out := ReplaceStyle(styles, models.StyleVariant{ID: "pixel", Result: models.Succeeded(testImage())})
	if len(out) != 1 || !out[0].Result.HasImage() {
		t.Errorf("ReplaceStyle() = %+v", out)
	}
	out = ReplaceStyle(out, models.StyleVariant{ID: "anime"})
	if len(out) != 2 {
		t.Errorf("ReplaceStyle() len = %d, want 2", len(out))
	}
}
