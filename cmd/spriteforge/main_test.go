package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ruizrica/spriteforge/internal/config"
	"github.com/ruizrica/spriteforge/internal/display"
	imgutil "github.com/ruizrica/spriteforge/internal/image"
	"github.com/ruizrica/spriteforge/internal/keys"
	"github.com/ruizrica/spriteforge/internal/provider"
	"github.com/ruizrica/spriteforge/pkg/models"
)

// mockProvider implements provider.Provider for testing.
type mockProvider struct {
	mu      sync.Mutex
	data    []byte
	fail    string
	prompts []string
	keys    []string
}

func (m *mockProvider) Name() models.ProviderType {
	return models.ProviderGemini
}

func (m *mockProvider) Edit(_ context.Context, req *models.EditRequest) (*models.Image, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, req.Prompt)
	m.keys = append(m.keys, req.APIKey)
	m.mu.Unlock()

	if m.fail != "" && strings.Contains(req.Prompt, m.fail) {
		return nil, fmt.Errorf("%w: safety filter", provider.ErrGenerationFailed)
	}
	return &models.Image{MIMEType: "image/png", Data: m.data}, nil
}

func (m *mockProvider) SupportsModel(_ string) bool {
	return true
}

func (m *mockProvider) ListModels() []string {
	return []string{"gemini-2.5-flash-image"}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	img.Set(8, 8, color.NRGBA{G: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type testHarness struct {
	app    *App
	out    *bytes.Buffer
	errOut *bytes.Buffer
	mock   *mockProvider
	dir    string
	ref    string
	env    map[string]string
}

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// newTestApp creates an App configured for testing.
func newTestApp(t *testing.T) *testHarness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SPRITEFORGE_CONFIG_DIR", filepath.Join(dir, "config"))

	data := testPNG(t)
	ref := filepath.Join(dir, "hero.png")
	if err := os.WriteFile(ref, data, 0644); err != nil {
		t.Fatal(err)
	}

	env := map[string]string{
		"SPRITEFORGE_DB":         filepath.Join(dir, "usage.db"),
		"SPRITEFORGE_OUTPUT_DIR": filepath.Join(dir, "out"),
		"GEMINI_API_KEY":         "test-key",
	}
	mock := &mockProvider{data: data}
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	app := &App{
		In:       strings.NewReader(""),
		Out:      out,
		Err:      errOut,
		Registry: models.DefaultRegistry(),
		GetEnv:   func(k string) string { return env[k] },
		Environ:  env,
		NewFactory: func(_ *provider.Config, registry *models.ModelRegistry) *provider.Factory {
			f := provider.NewFactory(registry)
			f.Register(mock)
			return f
		},
		NewSaver:     imgutil.NewSaver,
		NewDisplayer: display.New,
		Now:          func() time.Time { return fixedNow },
	}

	return &testHarness{app: app, out: out, errOut: errOut, mock: mock, dir: dir, ref: ref, env: env}
}

func (h *testHarness) execute(args ...string) error {
	cmd := newRootCmd(h.app)
	cmd.SetArgs(args)
	cmd.SetOut(h.out)
	cmd.SetErr(h.errOut)
	return cmd.ExecuteContext(context.Background())
}

func (h *testHarness) runDir() string {
	return filepath.Join(h.dir, "out", "sprites-20260102-030405")
}

func TestDefaultApp(t *testing.T) {
	app := DefaultApp()

	if app.In == nil || app.Out == nil || app.Err == nil {
		t.Error("DefaultApp() streams not set")
	}
	if app.Registry == nil || app.GetEnv == nil || app.Now == nil {
		t.Error("DefaultApp() dependencies not set")
	}
	if app.NewSaver == nil || app.NewDisplayer == nil {
		t.Error("DefaultApp() constructors not set")
	}
	if app.Environ != nil {
		t.Error("DefaultApp() should read the process environment")
	}

	f := app.NewFactory(&provider.Config{}, app.Registry)
	for _, model := range []string{"gemini-2.5-flash-image", "gpt-image-1"} {
		if _, err := f.GetForModel(model); err != nil {
			t.Errorf("default factory has no provider for %s: %v", model, err)
		}
	}
}

func TestNewRootCmd(t *testing.T) {
	h := newTestApp(t)
	cmd := newRootCmd(h.app)

	if cmd.Use != "spriteforge" {
		t.Errorf("Use = %s", cmd.Use)
	}
	for _, name := range []string{"styles", "animate", "batch", "interactive", "catalog", "cost", "price", "keys"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("subcommand %q not found", name)
		}
	}
	for _, flag := range []string{"provider", "model", "api-key", "output", "db", "timeout", "show", "verbose"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s not found", flag)
		}
	}
}

func TestRootCmd_Version(t *testing.T) {
	h := newTestApp(t)
	if err := h.execute("--version"); err != nil {
		t.Fatalf("--version error = %v", err)
	}
	if !strings.Contains(h.out.String(), "dev") {
		t.Errorf("version output = %q", h.out.String())
	}
}

func TestStyles(t *testing.T) {
	h := newTestApp(t)

	if err := h.execute("styles", h.ref, "--styles", "pixel,anime"); err != nil {
		t.Fatalf("styles error = %v", err)
	}

	output := h.out.String()
	for _, want := range []string{"gemini-2.5-flash-image", "pixel      ok", "anime      ok", "Cost: $0.08"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	for _, name := range []string{"pixel.png", "anime.png"} {
		if _, err := os.Stat(filepath.Join(h.runDir(), name)); err != nil {
			t.Errorf("%s not saved: %v", name, err)
		}
	}

	if len(h.mock.prompts) != 2 {
		t.Fatalf("provider called %d times, want 2", len(h.mock.prompts))
	}
	for i, p := range h.mock.prompts {
		if !strings.HasPrefix(p, "You are a game sprite artist") {
			t.Errorf("prompt %d missing system primer", i)
		}
		if h.mock.keys[i] != "test-key" {
			t.Errorf("key %d = %q", i, h.mock.keys[i])
		}
	}
}

func TestStyles_PartialFailure(t *testing.T) {
	h := newTestApp(t)
	h.mock.fail = "cel-shaded"

	if err := h.execute("styles", h.ref, "--styles", "pixel,anime"); err != nil {
		t.Fatalf("styles error = %v", err)
	}
	if !strings.Contains(h.out.String(), "anime      failed:") {
		t.Errorf("failed style not reported:\n%s", h.out.String())
	}
	if _, err := os.Stat(filepath.Join(h.runDir(), "anime.png")); !os.IsNotExist(err) {
		t.Error("failed style should not be saved")
	}
}

func TestStyles_Errors(t *testing.T) {
	t.Run("no api key", func(t *testing.T) {
		h := newTestApp(t)
		delete(h.env, "GEMINI_API_KEY")
		err := h.execute("styles", h.ref)
		if !errors.Is(err, keys.ErrNoKey) {
			t.Errorf("error = %v, want ErrNoKey", err)
		}
	})

	t.Run("api key flag", func(t *testing.T) {
		h := newTestApp(t)
		delete(h.env, "GEMINI_API_KEY")
		if err := h.execute("styles", h.ref, "--styles", "pixel", "--api-key", "flag-key"); err != nil {
			t.Fatalf("styles error = %v", err)
		}
		if h.mock.keys[0] != "flag-key" {
			t.Errorf("key = %q", h.mock.keys[0])
		}
	})

	t.Run("missing image", func(t *testing.T) {
		h := newTestApp(t)
		err := h.execute("styles", filepath.Join(h.dir, "nope.png"))
		if err == nil || !strings.Contains(err.Error(), "failed to read image") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("not an image", func(t *testing.T) {
		h := newTestApp(t)
		bad := filepath.Join(h.dir, "bad.png")
		os.WriteFile(bad, []byte("not an image"), 0644)
		err := h.execute("styles", bad)
		if err == nil || !strings.Contains(err.Error(), "invalid reference image") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("all failed", func(t *testing.T) {
		h := newTestApp(t)
		h.mock.fail = "Character reference"
		err := h.execute("styles", h.ref, "--styles", "pixel")
		if err == nil || !strings.Contains(err.Error(), "failed to generate any styles") {
			t.Errorf("error = %v", err)
		}
	})
}

func TestAnimate(t *testing.T) {
	h := newTestApp(t)

	if err := h.execute("animate", h.ref, "--style", "pixel", "--action", "jump", "--frames", "3"); err != nil {
		t.Fatalf("animate error = %v", err)
	}

	output := h.out.String()
	for _, want := range []string{
		"Estimated cost: $0.1560 USD (4 image(s))",
		"Rendering pixel style",
		"Animating pixel/jump",
		"frame 1: ok (from styled_image)",
		"frame 2: ok (from previous_frame)",
		"frame 3: ok (from previous_frame)",
		"Saved 3 frame(s)",
		"Cost: $0.16",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	for _, name := range []string{"pixel.png", "pixel_jump_frame_01.png", "pixel_jump_frame_03.png"} {
		if _, err := os.Stat(filepath.Join(h.runDir(), name)); err != nil {
			t.Errorf("%s not saved: %v", name, err)
		}
	}

	h.out.Reset()
	if err := h.execute("cost", "total"); err != nil {
		t.Fatalf("cost error = %v", err)
	}
	if !strings.Contains(h.out.String(), "Total cost: $0.1560 (4 image(s))") {
		t.Errorf("cost output = %q", h.out.String())
	}
}

func TestAnimate_FrameFailure(t *testing.T) {
	h := newTestApp(t)
	h.mock.fail = "frame 2 of 4"

	if err := h.execute("animate", h.ref, "-s", "pixel", "-a", "jump"); err != nil {
		t.Fatalf("animate error = %v", err)
	}

	output := h.out.String()
	for _, want := range []string{"frame 2: failed:", "frame 3: ok (from styled_image)", "frame 4: ok (from previous_frame)", "Saved 3 frame(s)"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestAnimate_StyleFailureFallsBackToReference(t *testing.T) {
	h := newTestApp(t)
	h.mock.fail = "breathing idle"

	if err := h.execute("animate", h.ref, "-s", "pixel", "-a", "jump", "-n", "1"); err != nil {
		t.Fatalf("animate error = %v", err)
	}
	if !strings.Contains(h.errOut.String(), "frames start from the reference") {
		t.Errorf("stderr = %q", h.errOut.String())
	}
	if !strings.Contains(h.out.String(), "frame 1: ok (from original)") {
		t.Errorf("output:\n%s", h.out.String())
	}
}

func TestAnimate_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		fail string
		want string
	}{
		{"unknown action", []string{"-a", "fly"}, "", "unknown action"},
		{"unknown style", []string{"-s", "vapor"}, "", "unknown style"},
		{"too many frames", []string{"-a", "hurt", "-n", "9"}, "", "invalid frame index"},
		{"every frame failed", []string{"-a", "hurt", "--skip-style", "-s", "pixel"}, "Animation:", "all 3 frames failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestApp(t)
			h.mock.fail = tt.fail
			err := h.execute(append([]string{"animate", h.ref}, tt.args...)...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestBatch(t *testing.T) {
	h := newTestApp(t)
	jobs := filepath.Join(h.dir, "jobs.txt")
	os.WriteFile(jobs, []byte("# sprites\npixel walk 2\nanime jump 1\n"), 0644)

	if err := h.execute("batch", h.ref, jobs, "--jobs", "2"); err != nil {
		t.Fatalf("batch error = %v", err)
	}

	output := h.out.String()
	for _, want := range []string{"Running 2 job(s)", "Estimated cost: $0.1950 USD (5 image(s))", "Generating 2 style(s)", "Complete chains: 2/2", "Frames: 3 generated, 0 failed", "(5 image(s))"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if _, err := os.Stat(filepath.Join(h.runDir(), "anime_jump_frame_01.png")); err != nil {
		t.Errorf("frame not saved: %v", err)
	}
}

func TestBatch_BadJobFile(t *testing.T) {
	h := newTestApp(t)
	jobs := filepath.Join(h.dir, "jobs.txt")
	os.WriteFile(jobs, []byte("pixel walk\npixel walk\n"), 0644)

	err := h.execute("batch", h.ref, jobs)
	if err == nil || !strings.Contains(err.Error(), "duplicates") {
		t.Errorf("error = %v", err)
	}
	if len(h.mock.prompts) != 0 {
		t.Error("no generation should run for an invalid job file")
	}
}

func TestInteractive(t *testing.T) {
	h := newTestApp(t)
	h.app.In = strings.NewReader("select original walk\ngenerate 2\nhistory\nquit\n")

	if err := h.execute("interactive", h.ref); err != nil {
		t.Fatalf("interactive error = %v", err)
	}

	output := h.out.String()
	for _, want := range []string{"Reference loaded (CHAR_", "spriteforge interactive mode", "2 frame(s), 0 failed", "original/walk #2", "Goodbye!"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if h.errOut.Len() != 0 {
		t.Errorf("unexpected errors: %s", h.errOut.String())
	}
}

func TestCatalog(t *testing.T) {
	h := newTestApp(t)
	if err := h.execute("catalog"); err != nil {
		t.Fatalf("catalog error = %v", err)
	}
	output := h.out.String()
	for _, want := range []string{"Styles:", "pixel", "Actions:", "walk", "6 frames", "Models:", "gpt-image-1"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestCost(t *testing.T) {
	h := newTestApp(t)

	if err := h.execute("cost"); err != nil {
		t.Fatalf("cost error = %v", err)
	}
	if !strings.Contains(h.out.String(), "No costs recorded.") {
		t.Errorf("empty cost output = %q", h.out.String())
	}

	if err := h.execute("styles", h.ref, "--styles", "pixel"); err != nil {
		t.Fatal(err)
	}

	for _, period := range []string{"today", "week", "month"} {
		h.out.Reset()
		if err := h.execute("cost", period); err != nil {
			t.Fatalf("cost %s error = %v", period, err)
		}
		if !strings.Contains(h.out.String(), "$0.0390 (1 image(s))") {
			t.Errorf("cost %s output = %q", period, h.out.String())
		}
	}

	h.out.Reset()
	if err := h.execute("cost", "provider"); err != nil {
		t.Fatalf("cost provider error = %v", err)
	}
	if !strings.Contains(h.out.String(), "gemini") {
		t.Errorf("provider output = %q", h.out.String())
	}

	if err := h.execute("cost", "yesterday"); err == nil {
		t.Error("unknown period should fail")
	}
}

func TestPrice(t *testing.T) {
	h := newTestApp(t)

	if err := h.execute("price", "show"); err != nil {
		t.Fatalf("price show error = %v", err)
	}
	output := h.out.String()
	for _, want := range []string{"gemini-2.5-flash-image", "$0.0390", "gpt-image-1", "$0.0110", "$0.1670"} {
		if !strings.Contains(output, want) {
			t.Errorf("price show missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "Local overrides") {
		t.Error("no overrides expected yet")
	}

	if err := h.execute("price", "set", "gemini-2.5-flash-image", "0.05"); err != nil {
		t.Fatalf("price set error = %v", err)
	}

	h.out.Reset()
	if err := h.execute("styles", h.ref, "--styles", "pixel"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.out.String(), "Cost: $0.05") {
		t.Errorf("override not applied:\n%s", h.out.String())
	}

	h.out.Reset()
	if err := h.execute("price", "show"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.out.String(), "Local overrides") || !strings.Contains(h.out.String(), "$0.0500") {
		t.Errorf("overrides not listed:\n%s", h.out.String())
	}

	if err := h.execute("price", "reset"); err != nil {
		t.Fatalf("price reset error = %v", err)
	}
	h.out.Reset()
	h.execute("price", "show")
	if strings.Contains(h.out.String(), "Local overrides") {
		t.Error("overrides should be gone after reset")
	}

	if err := h.execute("price", "set", "nope", "1"); err == nil {
		t.Error("unknown model should fail")
	}
	if err := h.execute("price", "set", "gpt-image-1", "cheap"); err == nil {
		t.Error("invalid price should fail")
	}
	if err := h.execute("price", "set", "gpt-image-1", "--", "-1"); err == nil {
		t.Error("negative price should fail")
	}
}

func TestKeys(t *testing.T) {
	h := newTestApp(t)

	if err := h.execute("keys", "list"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.out.String(), "No keys stored") {
		t.Errorf("list output = %q", h.out.String())
	}

	if err := h.execute("keys", "set", "openai", "sk-abcdefghijkl"); err != nil {
		t.Fatalf("keys set error = %v", err)
	}

	h.app.In = strings.NewReader("gm-0123456789\n")
	if err := h.execute("keys", "set", "gemini"); err != nil {
		t.Fatalf("keys set from stdin error = %v", err)
	}

	h.out.Reset()
	if err := h.execute("keys", "list"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"gemini", "gm-0*****6789", "openai", "sk-a*******ijkl"} {
		if !strings.Contains(h.out.String(), want) {
			t.Errorf("list missing %q:\n%s", want, h.out.String())
		}
	}

	h.out.Reset()
	if err := h.execute("keys", "get", "gemini"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.out.String(), "stored key") {
		t.Errorf("get output = %q", h.out.String())
	}

	if err := h.execute("styles", h.ref, "--styles", "pixel"); err != nil {
		t.Fatal(err)
	}
	if h.mock.keys[0] != "gm-0123456789" {
		t.Errorf("stored key should win over env, got %q", h.mock.keys[0])
	}

	if err := h.execute("keys", "delete", "gemini"); err != nil {
		t.Fatalf("keys delete error = %v", err)
	}
	if err := h.execute("keys", "delete", "gemini"); !errors.Is(err, keys.ErrNoKey) {
		t.Errorf("second delete error = %v", err)
	}
	if err := h.execute("keys", "set", "stability", "x"); !errors.Is(err, keys.ErrUnknownProvider) {
		t.Errorf("unknown provider error = %v", err)
	}
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
		wantErr  string
	}{
		{name: "gemini default", provider: "gemini", want: "gemini-2.5-flash-image"},
		{name: "openai default", provider: "openai", want: "gpt-image-1"},
		{name: "explicit", provider: "openai", model: "gpt-image-1", want: "gpt-image-1"},
		{name: "unknown provider", provider: "stability", wantErr: "unknown provider"},
		{name: "unknown model", provider: "gemini", model: "imagen-9", wantErr: "unknown model"},
		{name: "mismatch", provider: "gemini", model: "gpt-image-1", wantErr: "belongs to provider openai"},
	}

	app := DefaultApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps, err := app.resolveModel(&config.Config{Provider: tt.provider, Model: tt.model})
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveModel() error = %v", err)
			}
			if caps.Name != tt.want {
				t.Errorf("model = %s, want %s", caps.Name, tt.want)
			}
		})
	}
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	h := newTestApp(t)
	h.env["SPRITEFORGE_SPRITE_SIZE"] = "96"
	h.env["SPRITEFORGE_PARALLELISM"] = "2"

	cmd := newRootCmd(h.app)
	if err := cmd.ParseFlags([]string{"--size", "64", "--timeout", "5s", "--verbose"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := h.app.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.SpriteSize != 64 || cfg.Timeout != 5*time.Second || cfg.LogLevel != "debug" {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Parallelism != 2 {
		t.Errorf("Parallelism = %d, want env value 2", cfg.Parallelism)
	}

	newRootCmd(h.app)
	h.env["SPRITEFORGE_SPRITE_SIZE"] = "4096"
	if _, err := h.app.loadConfig(); err == nil {
		t.Error("invalid env should fail validation")
	}
}
