package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ruizrica/spriteforge/internal/cost"
	"github.com/ruizrica/spriteforge/internal/session"
	"github.com/ruizrica/spriteforge/pkg/models"
)

func newCostCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cost [today|week|month|total|provider]",
		Short: "Show recorded generation costs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCost(cmd.Context(), app, args)
		},
	}
}

func openStore(app *App) (*session.Store, error) {
	cfg, err := app.loadConfig()
	if err != nil {
		return nil, err
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		if dbPath, err = session.DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	return session.NewStoreWithPath(dbPath)
}

func runCost(ctx context.Context, app *App, args []string) error {
	store, err := openStore(app)
	if err != nil {
		return err
	}
	defer store.Close()

	period := "total"
	if len(args) > 0 {
		period = strings.ToLower(args[0])
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.Add(24 * time.Hour)

	var (
		label   string
		summary *session.CostSummary
	)
	switch period {
	case "today":
		label = "Today's cost"
		summary, err = store.GetCostByDateRange(ctx, today, tomorrow)
	case "week":
		label = "Last 7 days cost"
		summary, err = store.GetCostByDateRange(ctx, today.Add(-6*24*time.Hour), tomorrow)
	case "month":
		label = "Last 30 days cost"
		summary, err = store.GetCostByDateRange(ctx, today.Add(-29*24*time.Hour), tomorrow)
	case "total":
		label = "Total cost"
		summary, err = store.GetTotalCost(ctx)
	case "provider":
		return showCostByProvider(ctx, app, store)
	default:
		return fmt.Errorf("unknown period %q: use today, week, month, total or provider", period)
	}
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintln(app.Out, "No costs recorded.")
		return nil
	}
	fmt.Fprintf(app.Out, "%s: $%.4f (%d image(s))\n", label, summary.TotalCost, summary.ImageCount)
	return nil
}

func showCostByProvider(ctx context.Context, app *App, store *session.Store) error {
	summaries, err := store.GetCostByProvider(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(app.Out, "No costs recorded.")
		return nil
	}

	fmt.Fprintf(app.Out, "%-12s  %-8s  %s\n", "Provider", "Images", "Cost")
	fmt.Fprintln(app.Out, strings.Repeat("-", 35))

	var totalCost float64
	var totalImages int
	for _, ps := range summaries {
		fmt.Fprintf(app.Out, "%-12s  %-8d  $%.4f\n", ps.Provider, ps.ImageCount, ps.TotalCost)
		totalCost += ps.TotalCost
		totalImages += ps.ImageCount
	}

	fmt.Fprintln(app.Out, strings.Repeat("-", 35))
	fmt.Fprintf(app.Out, "%-12s  %-8d  $%.4f\n", "Total", totalImages, totalCost)
	return nil
}

var (
	flagPriceSize    string
	flagPriceQuality string
)

func newPriceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Show or override per-image prices",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show built-in prices and local overrides",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPriceShow(app)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <model> <price>",
		Short: "Override the price of a model",
		Long: `Override the per-image price of a model. Without --size and --quality the
price applies to every image of the model.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPriceSet(app, args[0], args[1])
		},
	}
	setCmd.Flags().StringVar(&flagPriceSize, "size", "", "image size the price applies to")
	setCmd.Flags().StringVar(&flagPriceQuality, "quality", "", "quality the price applies to")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove all local price overrides",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPriceReset(app)
		},
	}

	cmd.AddCommand(showCmd, setCmd, resetCmd)
	return cmd
}

func runPriceShow(app *App) error {
	showBuiltinPricing(app)

	path, err := pricingPath()
	if err != nil {
		return err
	}
	overrides, err := cost.LoadPricing(path)
	if err != nil {
		return err
	}
	if overrides == nil || len(overrides.Image) == 0 {
		return nil
	}

	fmt.Fprintf(app.Out, "\nLocal overrides (%s):\n", path)
	for _, model := range sortedKeys(overrides.Image) {
		for _, key := range sortedKeys(overrides.Image[model]) {
			quality, size := cost.ParsePricingKey(key)
			if size == "" {
				size = "any"
			}
			if quality == "" {
				quality = "any"
			}
			fmt.Fprintf(app.Out, "  %-24s %-10s %-8s $%.4f\n", model, size, quality, overrides.Image[model][key])
		}
	}
	return nil
}

func showBuiltinPricing(app *App) {
	calc := cost.NewCalculator()

	fmt.Fprintln(app.Out, "Built-in prices (USD per image):")
	for _, name := range app.Registry.List() {
		caps, _ := app.Registry.Get(name)
		if caps.Provider == models.ProviderGemini {
			fmt.Fprintf(app.Out, "  %-24s %-10s %-8s $%.4f\n", name, "any", "-", calc.PerImage(cost.SizeClass{Provider: caps.Provider, Model: name}))
			continue
		}
		qualities := caps.SupportedQualities
		if len(qualities) == 0 {
			qualities = []string{""}
		}
		for _, size := range caps.SupportedSizes {
			for _, q := range qualities {
				price := calc.PerImage(cost.SizeClass{Provider: caps.Provider, Model: name, Size: size, Quality: q})
				fmt.Fprintf(app.Out, "  %-24s %-10s %-8s $%.4f\n", name, size, q, price)
			}
		}
	}
}

func runPriceSet(app *App, model, priceArg string) error {
	if _, ok := app.Registry.Get(model); !ok {
		return fmt.Errorf("unknown model %q: available models: %v", model, app.Registry.List())
	}
	price, err := strconv.ParseFloat(priceArg, 64)
	if err != nil {
		return fmt.Errorf("invalid price %q", priceArg)
	}

	path, err := pricingPath()
	if err != nil {
		return err
	}
	if err := cost.SetPrice(path, model, flagPriceSize, flagPriceQuality, price); err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Price for %s set to $%.4f\n", model, price)
	return nil
}

func runPriceReset(app *App) error {
	path, err := pricingPath()
	if err != nil {
		return err
	}
	if err := cost.DeletePricing(path); err != nil {
		return err
	}
	fmt.Fprintln(app.Out, "Price overrides removed")
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
