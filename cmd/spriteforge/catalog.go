package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ruizrica/spriteforge/internal/prompts"
)

func newCatalogCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List styles, actions and models",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCatalog(app)
		},
	}
}

func runCatalog(app *App) error {
	catalog := prompts.DefaultCatalog()

	fmt.Fprintln(app.Out, "Styles:")
	for _, s := range catalog.Styles() {
		fmt.Fprintf(app.Out, "  %-10s %s\n", s.ID, s.Name)
	}

	fmt.Fprintln(app.Out, "\nActions:")
	for _, a := range catalog.Actions() {
		fmt.Fprintf(app.Out, "  %-10s %-8s %d frames\n", a.ID, a.Name, a.Frames)
	}

	fmt.Fprintln(app.Out, "\nModels:")
	for _, name := range app.Registry.List() {
		caps, _ := app.Registry.Get(name)
		fmt.Fprintf(app.Out, "  %-24s %s\n", name, caps.Provider)
	}
	return nil
}
