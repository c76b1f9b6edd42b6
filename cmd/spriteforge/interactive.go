package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ruizrica/spriteforge/internal/repl"
)

func newInteractiveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive [image]",
		Aliases: []string{"i", "repl"},
		Short:   "Start an interactive sprite session",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runInteractive(cmd.Context(), app, path)
		},
	}
}

func runInteractive(ctx context.Context, app *App, path string) error {
	rt, err := app.setup(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	if _, err := rt.sessions.StartNew(ctx, ""); err != nil {
		return err
	}

	if path != "" {
		if err := loadReference(rt, path); err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "Reference loaded (%s)\n", rt.engine.Snapshot().ReferenceToken)
	}

	r := repl.New(&repl.Config{
		In:         app.In,
		Out:        app.Out,
		Err:        app.Err,
		Engine:     rt.engine,
		SessionMgr: rt.sessions,
		Displayer:  rt.displayer,
		Saver:      rt.saver,
		APIKey:     rt.apiKey,
	})
	return r.Run(ctx)
}
