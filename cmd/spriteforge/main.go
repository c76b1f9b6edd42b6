package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ruizrica/spriteforge/internal/display"
	"github.com/ruizrica/spriteforge/internal/image"
	"github.com/ruizrica/spriteforge/internal/provider"
	"github.com/ruizrica/spriteforge/internal/provider/gemini"
	"github.com/ruizrica/spriteforge/internal/provider/openai"
	"github.com/ruizrica/spriteforge/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagProvider string
	flagModel    string
	flagAPIKey   string
	flagOutput   string
	flagDB       string
	flagLogLevel string
	flagTimeout  time.Duration
	flagParallel int
	flagSize     int
	flagShow     bool
	flagVerbose  bool
)

type App struct {
	In       io.Reader
	Out      io.Writer
	Err      io.Writer
	Registry *models.ModelRegistry
	GetEnv   func(string) string
	// Environ replaces the process environment for configuration when
	// non-nil.
	Environ      map[string]string
	NewFactory   func(cfg *provider.Config, registry *models.ModelRegistry) *provider.Factory
	NewSaver     func(dir string) *image.Saver
	NewDisplayer func(out io.Writer, columns int) *display.Displayer
	Now          func() time.Time
}

func DefaultApp() *App {
	return &App{
		In:           os.Stdin,
		Out:          os.Stdout,
		Err:          os.Stderr,
		Registry:     models.DefaultRegistry(),
		GetEnv:       os.Getenv,
		NewFactory:   defaultFactory,
		NewSaver:     image.NewSaver,
		NewDisplayer: display.New,
		Now:          time.Now,
	}
}

func defaultFactory(cfg *provider.Config, registry *models.ModelRegistry) *provider.Factory {
	f := provider.NewFactory(registry)
	f.Configure(models.ProviderGemini, cfg)
	f.Configure(models.ProviderOpenAI, cfg)
	f.Register(gemini.New(cfg, registry))
	f.Register(openai.New(cfg, registry))
	return f
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spriteforge",
		Short: "Generate game sprites and animation frames from a character image",
		Long: `spriteforge turns one reference character image into stylized sprite
variants and animation frames using AI image editing APIs.

Every frame after the first is generated from the previous frame, so the
character stays consistent through the animation.

Supported providers:
  - Google Gemini (gemini-2.5-flash-image)
  - OpenAI (gpt-image-1)

Examples:
  spriteforge styles hero.png
  spriteforge animate hero.png --style pixel --action walk
  spriteforge batch hero.png jobs.txt --parallel 3
  spriteforge interactive hero.png`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flagProvider, "provider", "p", "", "image provider (gemini, openai)")
	pf.StringVarP(&flagModel, "model", "m", "", "model to use (defaults to the provider's model)")
	pf.StringVar(&flagAPIKey, "api-key", "", "API key (defaults to the stored key or GEMINI_API_KEY / OPENAI_API_KEY)")
	pf.StringVarP(&flagOutput, "output", "o", "", "base output directory")
	pf.StringVar(&flagDB, "db", "", "usage database path")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.DurationVar(&flagTimeout, "timeout", 0, "timeout per generation call")
	pf.IntVar(&flagParallel, "parallel", 0, "concurrent style generations")
	pf.IntVar(&flagSize, "size", 0, "sprite edge length in pixels")
	pf.BoolVar(&flagShow, "show", false, "preview images in the terminal (Kitty graphics protocol)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log provider requests and responses")

	cmd.AddCommand(newStylesCmd(app))
	cmd.AddCommand(newAnimateCmd(app))
	cmd.AddCommand(newBatchCmd(app))
	cmd.AddCommand(newInteractiveCmd(app))
	cmd.AddCommand(newCatalogCmd(app))
	cmd.AddCommand(newCostCmd(app))
	cmd.AddCommand(newPriceCmd(app))
	cmd.AddCommand(newKeysCmd(app))

	return cmd
}
