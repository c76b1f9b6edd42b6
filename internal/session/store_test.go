package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) (*Store, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewStoreWithPath(dbPath)
	if err != nil {
		t.Fatalf("NewStoreWithPath() error = %v", err)
	}

	cleanup := func() {
		store.Close()
	}
	return store, cleanup
}

func createTestSession(t *testing.T, store *Store, id string) *Session {
	t.Helper()
	sess := &Session{
		ID:        id,
		Name:      "Test Session",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Provider:  "gemini",
		Model:     "gemini-2.5-flash-image",
	}
	if err := store.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return sess
}

func TestNewStoreWithPath(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	if store == nil {
		t.Error("NewStoreWithPath() returned nil")
	}
}

func TestStore_CreateAndGetSession(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	sess := createTestSession(t, store, "test-session-1")

	got, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}

	if got.ID != sess.ID {
		t.Errorf("GetSession() ID = %v, want %v", got.ID, sess.ID)
	}
	if got.Name != sess.Name {
		t.Errorf("GetSession() Name = %v, want %v", got.Name, sess.Name)
	}
	if got.Provider != "gemini" || got.Model != "gemini-2.5-flash-image" {
		t.Errorf("GetSession() Provider/Model = %v/%v", got.Provider, got.Model)
	}
}

func TestStore_UpdateSession(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	sess := createTestSession(t, store, "test-session-1")
	sess.Name = "Renamed"
	sess.Provider = "openai"
	sess.Model = "gpt-image-1"
	sess.UpdatedAt = time.Now()

	if err := store.UpdateSession(ctx, sess); err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}

	got, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Name != "Renamed" || got.Model != "gpt-image-1" {
		t.Errorf("GetSession() = %+v", got)
	}
}

func TestStore_DeleteSessionCascades(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	sess := createTestSession(t, store, "test-session-1")
	gen := &Generation{
		ID: "g1", SessionID: sess.ID, Kind: KindFrame, StyleID: "pixel", ActionID: "walk",
		Prompt: "p", Status: "succeeded", Model: "m", Timestamp: time.Now(),
	}
	if err := store.CreateGeneration(ctx, gen); err != nil {
		t.Fatalf("CreateGeneration() error = %v", err)
	}

	if err := store.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	if _, err := store.GetSession(ctx, sess.ID); err == nil {
		t.Error("GetSession() after delete should fail")
	}
	count, err := store.CountGenerations(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CountGenerations() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountGenerations() = %d, want 0 after cascade", count)
	}
}

func TestStore_ListSessions(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	createTestSession(t, store, "a")
	createTestSession(t, store, "b")

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("ListSessions() returned %d sessions, want 2", len(sessions))
	}
}

func TestStore_Generations(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	sess := createTestSession(t, store, "s1")
	base := time.Now()

	gens := []*Generation{
		{ID: "g1", SessionID: sess.ID, Kind: KindStyle, StyleID: "pixel", Prompt: "style", Status: "succeeded", Model: "m", Timestamp: base},
		{ID: "g2", SessionID: sess.ID, Kind: KindFrame, StyleID: "pixel", ActionID: "walk", FrameIndex: 1, Prompt: "frame", Source: "previous_frame", Status: "failed", Error: "boom", Model: "m", Timestamp: base.Add(time.Second),
			Metadata: GenerationMetadata{Provider: "gemini", Cost: 0.039, DurationMS: 1200}},
	}
	for _, g := range gens {
		if err := store.CreateGeneration(ctx, g); err != nil {
			t.Fatalf("CreateGeneration() error = %v", err)
		}
	}

	got, err := store.ListGenerations(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ListGenerations() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListGenerations() returned %d, want 2", len(got))
	}
	if got[0].ActionID != "" || got[0].Source != "" {
		t.Errorf("style generation = %+v", got[0])
	}
	if got[1].Error != "boom" || got[1].FrameIndex != 1 || got[1].Source != "previous_frame" {
		t.Errorf("frame generation = %+v", got[1])
	}
	if got[1].Metadata.DurationMS != 1200 || got[1].Metadata.Provider != "gemini" {
		t.Errorf("metadata = %+v", got[1].Metadata)
	}
}

func TestStore_CostQueries(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	createTestSession(t, store, "s1")
	createTestSession(t, store, "s2")
	now := time.Now()

	entries := []*CostEntry{
		{SessionID: "s1", Provider: "gemini", Model: "gemini-2.5-flash-image", Cost: 0.039, ImageCount: 1, Timestamp: now},
		{SessionID: "s1", Provider: "gemini", Model: "gemini-2.5-flash-image", Cost: 0.039, ImageCount: 1, Timestamp: now},
		{SessionID: "s2", Provider: "openai", Model: "gpt-image-1", Size: "1024x1024", Quality: "medium", Cost: 0.042, ImageCount: 1, Timestamp: now.AddDate(0, 0, -10)},
	}
	for _, e := range entries {
		if err := store.LogCost(ctx, e); err != nil {
			t.Fatalf("LogCost() error = %v", err)
		}
	}

	total, err := store.GetTotalCost(ctx)
	if err != nil {
		t.Fatalf("GetTotalCost() error = %v", err)
	}
	if total.EntryCount != 3 || total.ImageCount != 3 {
		t.Errorf("GetTotalCost() = %+v", total)
	}

	recent, err := store.GetCostByDateRange(ctx, now.AddDate(0, 0, -1), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetCostByDateRange() error = %v", err)
	}
	if recent.EntryCount != 2 {
		t.Errorf("GetCostByDateRange() EntryCount = %d, want 2", recent.EntryCount)
	}

	byProvider, err := store.GetCostByProvider(ctx)
	if err != nil {
		t.Fatalf("GetCostByProvider() error = %v", err)
	}
	if len(byProvider) != 2 || byProvider[0].Provider != "gemini" || byProvider[0].ImageCount != 2 {
		t.Errorf("GetCostByProvider() = %+v", byProvider)
	}

	s2, err := store.GetSessionCost(ctx, "s2")
	if err != nil {
		t.Fatalf("GetSessionCost() error = %v", err)
	}
	if s2.EntryCount != 1 {
		t.Errorf("GetSessionCost(s2) EntryCount = %d, want 1", s2.EntryCount)
	}
}

func TestGenerationMetadata_JSON(t *testing.T) {
	m := GenerationMetadata{Provider: "openai", Size: "1024x1024", Cost: 0.042}
	parsed := ParseGenerationMetadata(m.ToJSON())
	if parsed != m {
		t.Errorf("ParseGenerationMetadata(ToJSON()) = %+v, want %+v", parsed, m)
	}

	if got := ParseGenerationMetadata(""); got != (GenerationMetadata{}) {
		t.Errorf("ParseGenerationMetadata(\"\") = %+v", got)
	}
	if got := ParseGenerationMetadata("{bad"); got != (GenerationMetadata{}) {
		t.Errorf("ParseGenerationMetadata(bad) = %+v", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := FormatTimestamp(ts); got != "2025-03-04 05:06:07" {
		t.Errorf("FormatTimestamp() = %q", got)
	}
}
