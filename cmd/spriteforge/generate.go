package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ruizrica/spriteforge/internal/sprite"
	"github.com/ruizrica/spriteforge/pkg/models"
)

var (
	flagStyles    []string
	flagStyle     string
	flagAction    string
	flagFrames    int
	flagSkipStyle bool
)

func newStylesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "styles <image>",
		Short: "Render the reference character in several art styles",
		Long: `Render the reference character in every catalog style, or in the styles
given with --styles. Styles are generated concurrently; a failed style does
not affect the others.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStyles(cmd.Context(), app, args[0])
		},
	}

	cmd.Flags().StringSliceVar(&flagStyles, "styles", nil, "styles to render (default: all)")
	return cmd
}

func newAnimateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "animate <image>",
		Short: "Generate the animation frames of one style and action",
		Long: `Generate the frames of an action for one style. The style variant is
rendered first, then each frame is generated from the previous one.

Examples:
  spriteforge animate hero.png --style pixel --action walk
  spriteforge animate hero.png -s anime -a jump --frames 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnimate(cmd.Context(), app, args[0])
		},
	}

	cmd.Flags().StringVarP(&flagStyle, "style", "s", string(models.OriginalStyle), "style of the frames")
	cmd.Flags().StringVarP(&flagAction, "action", "a", "idle", "action to animate")
	cmd.Flags().IntVarP(&flagFrames, "frames", "n", 0, "number of frames (default: all frames of the action)")
	cmd.Flags().BoolVar(&flagSkipStyle, "skip-style", false, "start from the reference instead of rendering the style first")
	return cmd
}

func loadReference(rt *runtime, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if _, err := rt.engine.LoadReference(data); err != nil {
		return fmt.Errorf("invalid reference image: %w", err)
	}
	return nil
}

func runStyles(ctx context.Context, app *App, path string) error {
	rt, err := app.setup(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	if err := loadReference(rt, path); err != nil {
		return err
	}

	ids := make([]models.StyleID, len(flagStyles))
	for i, s := range flagStyles {
		ids[i] = models.StyleID(strings.TrimSpace(s))
	}

	fmt.Fprintf(app.Out, "Generating styles with %s...\n", rt.caps.Name)
	variants, err := rt.engine.GenerateStyles(ctx, ids, rt.apiKey)
	rt.logStyles(ctx, variants)
	printStyles(app, rt, variants)
	if err != nil {
		return err
	}

	paths, err := rt.saver.SaveStyles(variants)
	for _, p := range paths {
		fmt.Fprintf(app.Out, "Saved: %s\n", p)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Cost: %s\n", rt.engine.Usage().Formatted())
	return nil
}

func printStyles(app *App, rt *runtime, variants []models.StyleVariant) {
	for _, v := range variants {
		if flagShow {
			if err := rt.displayer.ShowStyle(v); err != nil {
				fmt.Fprintf(app.Err, "Warning: failed to display: %v\n", err)
			}
			continue
		}
		if v.Result.HasImage() {
			fmt.Fprintf(app.Out, "  %-10s ok\n", v.ID)
		} else {
			fmt.Fprintf(app.Out, "  %-10s failed: %s\n", v.ID, v.Result.Err())
		}
	}
}

func runAnimate(ctx context.Context, app *App, path string) error {
	rt, err := app.setup(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	if err := loadReference(rt, path); err != nil {
		return err
	}

	style := models.StyleID(flagStyle)
	action := models.ActionID(flagAction)
	if err := rt.engine.Select(style, action); err != nil {
		return err
	}

	renderStyle := style != models.OriginalStyle && !flagSkipStyle
	images := rt.frameCount(action, flagFrames)
	if renderStyle {
		images++
	}
	fmt.Fprintln(app.Out, rt.estimate(images))

	if renderStyle {
		fmt.Fprintf(app.Out, "Rendering %s style...\n", style)
		variants, err := rt.engine.GenerateStyles(ctx, []models.StyleID{style}, rt.apiKey)
		rt.logStyles(ctx, variants)
		switch {
		case errors.Is(err, sprite.ErrAllStylesFailed):
			fmt.Fprintf(app.Err, "Warning: %v; frames start from the reference\n", err)
		case err != nil:
			return err
		default:
			if _, err := rt.saver.SaveStyles(variants); err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(app.Out, "Animating %s/%s with %s...\n", style, action, rt.caps.Name)
	frames, err := rt.engine.GenerateChain(ctx, sprite.ChainRequest{
		StyleID:    style,
		ActionID:   action,
		FrameCount: flagFrames,
		APIKey:     rt.apiKey,
	})
	rt.logFrames(ctx, frames)
	if err != nil {
		return err
	}

	failed := 0
	for _, f := range frames {
		if f.Result.HasImage() {
			fmt.Fprintf(app.Out, "  frame %d: ok (from %s)\n", f.Index+1, f.Source)
		} else {
			failed++
			fmt.Fprintf(app.Out, "  frame %d: failed: %s\n", f.Index+1, f.Result.Err())
		}
	}
	if flagShow {
		if err := rt.displayer.ShowStrip(frames); err != nil {
			fmt.Fprintf(app.Err, "Warning: failed to display: %v\n", err)
		}
	}

	paths, err := rt.saver.SaveFrames(frames)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Saved %d frame(s) to %s\n", len(paths), rt.saver.Dir())
	fmt.Fprintf(app.Out, "Cost: %s\n", rt.engine.Usage().Formatted())

	if failed == len(frames) {
		return fmt.Errorf("all %d frames failed", failed)
	}
	return nil
}
