package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ruizrica/spriteforge/internal/keys"
	"github.com/ruizrica/spriteforge/pkg/models"
)

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
	}

	setCmd := &cobra.Command{
		Use:   "set <provider> [key]",
		Short: "Store an API key (read from stdin when omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			key := ""
			if len(args) == 2 {
				key = args[1]
			}
			return runKeysSet(app, models.ProviderType(args[0]), key)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <provider>",
		Short: "Show the key that would be used, masked",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKeysGet(app, models.ProviderType(args[0]))
		},
	}

	deleteCmd := &cobra.Command{
		Use:     "delete <provider>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored key",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKeysDelete(app, models.ProviderType(args[0]))
		},
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List providers with a stored key",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runKeysList(app)
		},
	}

	cmd.AddCommand(setCmd, getCmd, deleteCmd, listCmd)
	return cmd
}

func runKeysSet(app *App, p models.ProviderType, key string) error {
	store, err := keys.NewStore()
	if err != nil {
		return err
	}

	if key == "" {
		fmt.Fprintf(app.Out, "Enter %s API key: ", p)
		line, err := bufio.NewReader(app.In).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read key: %w", err)
		}
		key = strings.TrimSpace(line)
		fmt.Fprintln(app.Out)
	}

	if err := store.Set(p, key); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Stored %s key in %s\n", p, store.Path())
	return nil
}

func runKeysGet(app *App, p models.ProviderType) error {
	store, err := keys.NewStore()
	if err != nil {
		return err
	}

	key, source, err := keys.Resolver{Store: store, Getenv: app.GetEnv}.Resolve(flagAPIKey, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "%s: %s (from %s)\n", p, keys.MaskKey(key), source)
	return nil
}

func runKeysDelete(app *App, p models.ProviderType) error {
	store, err := keys.NewStore()
	if err != nil {
		return err
	}
	if err := store.Delete(p); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted %s key\n", p)
	return nil
}

func runKeysList(app *App) error {
	store, err := keys.NewStore()
	if err != nil {
		return err
	}

	providers, err := store.List()
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		fmt.Fprintln(app.Out, "No keys stored")
		return nil
	}
	for _, p := range providers {
		key, _ := store.Get(p)
		fmt.Fprintf(app.Out, "  %-8s %s\n", p, keys.MaskKey(key))
	}
	return nil
}
