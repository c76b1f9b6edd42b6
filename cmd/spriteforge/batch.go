package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ruizrica/spriteforge/internal/batch"
	"github.com/ruizrica/spriteforge/pkg/models"
)

var (
	flagBatchParallel int
	flagStopOnError   bool
	flagDelay         int
	flagBatchStyles   bool
)

func newBatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <image> <jobs-file>",
		Short: "Generate several animations from a job file",
		Long: `Generate several (style, action) animations for one reference image.

The job file is either text, one "<style> <action> [frames]" per line
(# starts a comment), or JSON:

  [{"style": "pixel", "action": "walk", "frames": 4}]`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), app, args[0], args[1])
		},
	}

	cmd.Flags().IntVar(&flagBatchParallel, "jobs", 1, "number of animations generated concurrently")
	cmd.Flags().BoolVar(&flagStopOnError, "stop-on-error", false, "stop at the first job that cannot run")
	cmd.Flags().IntVar(&flagDelay, "delay", 0, "delay between jobs in milliseconds (sequential only)")
	cmd.Flags().BoolVar(&flagBatchStyles, "styles", true, "render the style variants before animating")
	return cmd
}

func runBatch(ctx context.Context, app *App, imagePath, jobsPath string) error {
	items, err := batch.ParseFile(jobsPath)
	if err != nil {
		return err
	}

	rt, err := app.setup(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	if err := loadReference(rt, imagePath); err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Running %d job(s) with %s...\n", len(items), rt.caps.Name)
	fmt.Fprintln(app.Out, rt.estimate(batchImages(rt, items)))

	proc := batch.NewProcessor(rt.engine, rt.saver, app.Out, app.Err)
	results, err := proc.Process(ctx, items, &batch.Options{
		APIKey:      rt.apiKey,
		Styles:      flagBatchStyles,
		Parallel:    flagBatchParallel,
		StopOnError: flagStopOnError,
		DelayMs:     flagDelay,
	})

	snap := rt.engine.Snapshot()
	rt.logStyles(ctx, snap.Styles)
	for _, r := range results {
		rt.logFrames(ctx, r.Frames)
	}

	proc.PrintSummary(results)
	return err
}

// batchImages counts the generations a job file will request.
func batchImages(rt *runtime, items []batch.Item) int {
	n := 0
	styles := make(map[models.StyleID]bool)
	for _, it := range items {
		n += rt.frameCount(it.Action, it.Frames)
		if flagBatchStyles && it.Style != models.OriginalStyle {
			styles[it.Style] = true
		}
	}
	return n + len(styles)
}
