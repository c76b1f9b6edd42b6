package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ruizrica/spriteforge/internal/config"
	"github.com/ruizrica/spriteforge/internal/cost"
	"github.com/ruizrica/spriteforge/internal/display"
	"github.com/ruizrica/spriteforge/internal/image"
	"github.com/ruizrica/spriteforge/internal/keys"
	"github.com/ruizrica/spriteforge/internal/prompts"
	"github.com/ruizrica/spriteforge/internal/provider"
	"github.com/ruizrica/spriteforge/internal/session"
	"github.com/ruizrica/spriteforge/internal/sprite"
	"github.com/ruizrica/spriteforge/internal/telemetry"
	"github.com/ruizrica/spriteforge/pkg/models"
)

const serviceName = "spriteforge"

// runtime is everything a generating command needs, built from the
// environment, the flags and the App hooks.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	caps      *models.ModelCapabilities
	apiKey    string
	keySource string
	engine    *sprite.Engine
	sessions  *session.Manager
	saver     *image.Saver
	displayer *display.Displayer
	calc      *cost.Calculator
	sizeClass cost.SizeClass

	closers []func(context.Context) error
}

func (rt *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// loadConfig reads the environment and applies flag overrides.
func (app *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(app.Environ)
	if err != nil {
		return nil, err
	}

	if flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagOutput != "" {
		cfg.OutputDir = flagOutput
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagTimeout > 0 {
		cfg.Timeout = flagTimeout
	}
	if flagParallel > 0 {
		cfg.Parallelism = flagParallel
	}
	if flagSize > 0 {
		cfg.SpriteSize = flagSize
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (app *App) newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return config.NewLogger(level, app.Err), nil
}

// resolveModel picks the model for the configured provider.
func (app *App) resolveModel(cfg *config.Config) (*models.ModelCapabilities, error) {
	p := models.ProviderType(cfg.Provider)
	if !p.IsValid() {
		return nil, fmt.Errorf("unknown provider %q: must be one of %v", cfg.Provider, models.ValidProviders())
	}

	name := cfg.Model
	if name == "" {
		var ok bool
		if name, ok = app.Registry.DefaultModel(p); !ok {
			return nil, fmt.Errorf("no model registered for provider %s", p)
		}
	}

	caps, ok := app.Registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown model %q: available models: %v", name, app.Registry.List())
	}
	if caps.Provider != p {
		return nil, fmt.Errorf("model %s belongs to provider %s, not %s", name, caps.Provider, p)
	}
	return caps, nil
}

func (app *App) openSessions(cfg *config.Config, p models.ProviderType, model string) (*session.Manager, func(context.Context) error, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		var err error
		if dbPath, err = session.DefaultDBPath(); err != nil {
			return nil, nil, err
		}
	}

	store, err := session.NewStoreWithPath(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open usage database: %w", err)
	}
	return session.NewManager(store, p, model), func(context.Context) error { return store.Close() }, nil
}

func pricingPath() (string, error) {
	dir, err := keys.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pricing.json"), nil
}

func loadCalculator() (*cost.Calculator, error) {
	path, err := pricingPath()
	if err != nil {
		return nil, err
	}
	overrides, err := cost.LoadPricing(path)
	if err != nil {
		return nil, err
	}
	return cost.NewCalculator().WithOverrides(overrides), nil
}

// setup wires the full generation stack. The caller must Close the
// returned runtime.
func (app *App) setup(ctx context.Context) (*runtime, error) {
	cfg, err := app.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := app.newLogger(cfg)
	if err != nil {
		return nil, err
	}

	caps, err := app.resolveModel(cfg)
	if err != nil {
		return nil, err
	}

	keyStore, err := keys.NewStore()
	if err != nil {
		logger.Warn("key store unavailable", "error", err)
		keyStore = nil
	}
	apiKey, source, err := keys.Resolver{Store: keyStore, Getenv: app.GetEnv}.Resolve(flagAPIKey, caps.Provider)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger, caps: caps, apiKey: apiKey, keySource: source}

	shutdown, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	rt.closers = append(rt.closers, shutdown)

	factory := app.NewFactory(&provider.Config{
		BaseURL:    cfg.BaseURL,
		TimeoutSec: int(cfg.Timeout.Seconds()),
		Verbose:    flagVerbose,
		Logger:     logger,
	}, app.Registry)
	prov, err := factory.GetForModel(caps.Name)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	gateway := provider.NewGateway(prov, caps,
		provider.WithPrimer(prompts.SystemPrimer),
		provider.WithTimeout(cfg.Timeout),
		provider.WithLogger(logger),
	)

	mgr, closeStore, err := app.openSessions(cfg, caps.Provider, caps.Name)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.sessions = mgr
	rt.closers = append(rt.closers, closeStore)

	calc, err := loadCalculator()
	if err != nil {
		logger.Warn("ignoring pricing overrides", "error", err)
		calc = cost.NewCalculator()
	}
	ledger := cost.NewLedger(calc, cost.WithSink(mgr), cost.WithLogger(logger))
	sizeClass := cost.SizeClass{
		Provider: caps.Provider,
		Model:    caps.Name,
		Size:     caps.DefaultSize,
		Quality:  caps.DefaultQuality,
	}

	rt.calc = calc
	rt.sizeClass = sizeClass

	rt.engine = sprite.NewEngine(gateway, session.NewState(), prompts.DefaultCatalog(),
		sprite.WithLogger(logger),
		sprite.WithLedger(ledger, sizeClass),
		sprite.WithParallelism(cfg.Parallelism),
		sprite.WithSpriteSize(cfg.SpriteSize),
		sprite.WithClock(app.Now),
	)

	rt.saver = app.NewSaver(image.OutputDir(cfg.OutputDir, app.Now()))
	rt.displayer = app.NewDisplayer(app.Out, display.DefaultColumns)

	logger.Debug("runtime ready",
		"provider", caps.Provider,
		"model", caps.Name,
		"key_source", source,
		"output", rt.saver.Dir(),
	)
	return rt, nil
}

// estimate prices n generations at the model's default size and quality.
func (rt *runtime) estimate(n int) string {
	sc := rt.sizeClass
	info := rt.calc.Calculate(sc.Provider, sc.Model, sc.Size, sc.Quality, n)
	return fmt.Sprintf("Estimated cost: $%.4f %s (%d image(s))", info.Total, info.Currency, n)
}

// frameCount is the number of frames a chain of action generates when
// asked for requested frames.
func (rt *runtime) frameCount(action models.ActionID, requested int) int {
	if requested > 0 {
		return requested
	}
	a, ok := rt.engine.Catalog().Action(action)
	if !ok {
		return 0
	}
	return a.Frames
}

// logStyles and logFrames write audit rows; failures only warn.
func (rt *runtime) logStyles(ctx context.Context, variants []models.StyleVariant) {
	token := rt.engine.Snapshot().ReferenceToken
	for _, v := range variants {
		prompt, _ := rt.engine.Catalog().StylePrompt(v.ID, token)
		if err := rt.sessions.LogGeneration(ctx, session.StyleGeneration(v, prompt)); err != nil {
			rt.logger.Warn("failed to log generation", "style", v.ID, "error", err)
		}
	}
}

func (rt *runtime) logFrames(ctx context.Context, frames []models.ActionFrame) {
	for _, f := range frames {
		if err := rt.sessions.LogGeneration(ctx, session.FrameGeneration(session.KindFrame, f)); err != nil {
			rt.logger.Warn("failed to log generation", "frame", f.Key().String(), "error", err)
		}
	}
}
