package repl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ruizrica/spriteforge/internal/cost"
	"github.com/ruizrica/spriteforge/internal/session"
	"github.com/ruizrica/spriteforge/internal/sprite"
	"github.com/ruizrica/spriteforge/pkg/models"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func allCommands() []Command {
	return []Command{
		&LoadCommand{},
		&StylesCommand{},
		&RetryCommand{},
		&SelectCommand{},
		&ActionCommand{},
		&GenerateCommand{},
		&RegenCommand{},
		&PromptCommand{},
		&FramesCommand{},
		&ShowCommand{},
		&SaveCommand{},
		&CatalogCommand{},
		&CostCommand{},
		&HistoryCommand{},
		&SessionCommand{},
		&ResetCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}
}

func (r *REPL) registerCommands() {
	for _, cmd := range allCommands() {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

func (r *REPL) logGeneration(ctx context.Context, g *session.Generation) {
	if r.sessionMgr == nil {
		return
	}
	if err := r.sessionMgr.LogGeneration(ctx, g); err != nil {
		fmt.Fprintf(r.err, "Warning: failed to log generation: %v\n", err)
	}
}

func (r *REPL) logStyle(ctx context.Context, v models.StyleVariant) {
	prompt, _ := r.engine.Catalog().StylePrompt(v.ID, r.engine.Snapshot().ReferenceToken)
	r.logGeneration(ctx, session.StyleGeneration(v, prompt))
}

func (r *REPL) requireReference() error {
	if r.engine.Snapshot().Reference.IsEmpty() {
		return errors.New("no reference image - use 'load <path>' first")
	}
	return nil
}

// LoadCommand reads a reference image from disk
type LoadCommand struct{}

func (c *LoadCommand) Name() string        { return "load" }
func (c *LoadCommand) Aliases() []string   { return []string{"l", "ref"} }
func (c *LoadCommand) Description() string { return "Load the reference character image" }
func (c *LoadCommand) Usage() string       { return "load <path>" }

func (c *LoadCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	img, err := r.engine.LoadReference(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Reference loaded (%s)\n", r.engine.Snapshot().ReferenceToken)
	return r.displayer.Show("reference", models.Succeeded(img))
}

// StylesCommand renders style variants of the reference
type StylesCommand struct{}

func (c *StylesCommand) Name() string        { return "styles" }
func (c *StylesCommand) Aliases() []string   { return []string{"st"} }
func (c *StylesCommand) Description() string { return "Generate style variants" }
func (c *StylesCommand) Usage() string       { return "styles [style...]" }

func (c *StylesCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if err := r.requireReference(); err != nil {
		return err
	}

	ids := make([]models.StyleID, len(args))
	for i, a := range args {
		ids[i] = models.StyleID(a)
	}

	fmt.Fprintln(r.out, "Generating styles...")
	variants, err := r.engine.GenerateStyles(ctx, ids, r.apiKey)
	for _, v := range variants {
		r.logStyle(ctx, v)
		if showErr := r.displayer.ShowStyle(v); showErr != nil {
			fmt.Fprintf(r.err, "Warning: failed to display: %v\n", showErr)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Usage: %s\n", r.engine.Usage().Formatted())
	return nil
}

// RetryCommand regenerates one style variant
type RetryCommand struct{}

func (c *RetryCommand) Name() string        { return "retry" }
func (c *RetryCommand) Aliases() []string   { return nil }
func (c *RetryCommand) Description() string { return "Regenerate a single style variant" }
func (c *RetryCommand) Usage() string       { return "retry <style>" }

func (c *RetryCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	v, err := r.engine.RetryStyle(ctx, models.StyleID(args[0]), r.apiKey)
	if err != nil {
		return err
	}
	r.logStyle(ctx, v)
	return r.displayer.ShowStyle(v)
}

// SelectCommand sets the active style and optionally the action
type SelectCommand struct{}

func (c *SelectCommand) Name() string        { return "select" }
func (c *SelectCommand) Aliases() []string   { return []string{"use"} }
func (c *SelectCommand) Description() string { return "Select style and action" }
func (c *SelectCommand) Usage() string       { return "select <style> [action]" }

func (c *SelectCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	var action models.ActionID
	if len(args) == 2 {
		action = models.ActionID(args[1])
	}
	if err := r.engine.Select(models.StyleID(args[0]), action); err != nil {
		return err
	}

	snap := r.engine.Snapshot()
	fmt.Fprintf(r.out, "Selected style: %s\n", snap.SelectedStyle)
	if snap.SelectedAction != "" {
		fmt.Fprintf(r.out, "Selected action: %s\n", snap.SelectedAction)
	}
	return nil
}

// ActionCommand sets the active action
type ActionCommand struct{}

func (c *ActionCommand) Name() string        { return "action" }
func (c *ActionCommand) Aliases() []string   { return []string{"a"} }
func (c *ActionCommand) Description() string { return "Select the active action" }
func (c *ActionCommand) Usage() string       { return "action <action>" }

func (c *ActionCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	if err := r.engine.Select("", models.ActionID(args[0])); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Selected action: %s\n", args[0])
	return nil
}

// GenerateCommand runs the frame chain of the selected style and action
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string        { return "generate" }
func (c *GenerateCommand) Aliases() []string   { return []string{"gen", "g"} }
func (c *GenerateCommand) Description() string { return "Generate the selected animation" }
func (c *GenerateCommand) Usage() string       { return "generate [frames]" }

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	var count int
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid frame count: %s", args[0])
		}
		count = n
	}

	fmt.Fprintln(r.out, "Generating frames...")
	frames, err := r.engine.GenerateChain(ctx, sprite.ChainRequest{FrameCount: count, APIKey: r.apiKey})
	for _, f := range frames {
		r.logGeneration(ctx, session.FrameGeneration(session.KindFrame, f))
	}
	if err != nil {
		return err
	}

	if err := r.displayer.ShowStrip(frames); err != nil {
		fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
	}

	failed := 0
	for _, f := range frames {
		if !f.Result.HasImage() {
			failed++
		}
	}
	fmt.Fprintf(r.out, "%d frame(s), %d failed. Usage: %s\n", len(frames), failed, r.engine.Usage().Formatted())
	return nil
}

// RegenCommand regenerates a single frame with a custom prompt
type RegenCommand struct{}

func (c *RegenCommand) Name() string        { return "regen" }
func (c *RegenCommand) Aliases() []string   { return []string{"r"} }
func (c *RegenCommand) Description() string { return "Regenerate one frame with a custom prompt" }
func (c *RegenCommand) Usage() string       { return "regen <frame> <prompt>" }

func (c *RegenCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	index, err := parseFrame(args[0])
	if err != nil {
		return err
	}

	f, err := r.engine.Regenerate(ctx, sprite.RegenerateRequest{
		FrameIndex: index,
		Prompt:     strings.Join(args[1:], " "),
		APIKey:     r.apiKey,
	})
	if err != nil {
		return err
	}
	r.logGeneration(ctx, session.FrameGeneration(session.KindRegenerate, f))
	return r.displayer.ShowFrame(f)
}

// PromptCommand prints the prompt of a frame
type PromptCommand struct{}

func (c *PromptCommand) Name() string        { return "prompt" }
func (c *PromptCommand) Aliases() []string   { return []string{"p"} }
func (c *PromptCommand) Description() string { return "Show a frame prompt" }
func (c *PromptCommand) Usage() string       { return "prompt <frame>" }

func (c *PromptCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	index, err := parseFrame(args[0])
	if err != nil {
		return err
	}

	snap := r.engine.Snapshot()
	key := models.FrameKey{StyleID: snap.SelectedStyle, ActionID: snap.SelectedAction, Index: index}
	if f, ok := snap.Frame(key); ok && f.Prompt != "" {
		fmt.Fprintln(r.out, f.Prompt)
		return nil
	}

	prompt, err := r.engine.DefaultPrompt(snap.SelectedStyle, snap.SelectedAction, index)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, prompt)
	return nil
}

// FramesCommand lists the frames of the selected chain
type FramesCommand struct{}

func (c *FramesCommand) Name() string        { return "frames" }
func (c *FramesCommand) Aliases() []string   { return []string{"f"} }
func (c *FramesCommand) Description() string { return "List the selected frames" }
func (c *FramesCommand) Usage() string       { return "frames" }

func (c *FramesCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	snap := r.engine.Snapshot()
	if snap.SelectedStyle == "" || snap.SelectedAction == "" {
		return sprite.ErrNoSelection
	}

	frames := snap.ChainFrames(snap.SelectedStyle, snap.SelectedAction)
	if len(frames) == 0 {
		fmt.Fprintln(r.out, "No frames yet")
		return nil
	}

	for _, f := range frames {
		detail := string(f.Source)
		if f.Result.Status() == models.StatusFailed {
			detail = f.Result.Err()
		}
		fmt.Fprintf(r.out, "  [%d] %-9s %s\n", f.Index+1, f.Result.Status(), detail)
	}
	return nil
}

// ShowCommand previews the reference, a style or a frame
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"display", "view"} }
func (c *ShowCommand) Description() string { return "Preview an image" }
func (c *ShowCommand) Usage() string       { return "show [reference|strip|<style>|<frame>]" }

func (c *ShowCommand) Execute(_ context.Context, r *REPL, args []string) error {
	snap := r.engine.Snapshot()

	target := "strip"
	if len(args) > 0 {
		target = args[0]
	}

	switch target {
	case "reference", "ref":
		if err := r.requireReference(); err != nil {
			return err
		}
		return r.displayer.Show("reference", models.Succeeded(snap.Reference))
	case "strip":
		frames := snap.ChainFrames(snap.SelectedStyle, snap.SelectedAction)
		if len(frames) == 0 {
			return errors.New("no frames to show")
		}
		return r.displayer.ShowStrip(frames)
	}

	if index, err := parseFrame(target); err == nil {
		f, ok := snap.Frame(models.FrameKey{StyleID: snap.SelectedStyle, ActionID: snap.SelectedAction, Index: index})
		if !ok {
			return fmt.Errorf("%w: frame %d has not been generated", sprite.ErrInvalidFrame, index+1)
		}
		return r.displayer.ShowFrame(f)
	}

	v, ok := snap.Style(models.StyleID(target))
	if !ok {
		return fmt.Errorf("style %s has not been generated", target)
	}
	return r.displayer.ShowStyle(v)
}

// SaveCommand writes every successful style and frame to disk
type SaveCommand struct{}

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Aliases() []string   { return []string{"s"} }
func (c *SaveCommand) Description() string { return "Save styles and frames to the output directory" }
func (c *SaveCommand) Usage() string       { return "save" }

func (c *SaveCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	snap := r.engine.Snapshot()

	stylePaths, err := r.saver.SaveStyles(snap.Styles)
	if err != nil {
		return err
	}
	framePaths, err := r.saver.SaveFrames(snap.Frames)
	if err != nil {
		return err
	}

	paths := append(stylePaths, framePaths...)
	if len(paths) == 0 {
		fmt.Fprintln(r.out, "Nothing to save")
		return nil
	}
	for _, p := range paths {
		fmt.Fprintf(r.out, "Saved: %s\n", p)
	}
	return nil
}

// CatalogCommand lists styles and actions
type CatalogCommand struct{}

func (c *CatalogCommand) Name() string        { return "catalog" }
func (c *CatalogCommand) Aliases() []string   { return []string{"list", "ls"} }
func (c *CatalogCommand) Description() string { return "List available styles and actions" }
func (c *CatalogCommand) Usage() string       { return "catalog" }

func (c *CatalogCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	catalog := r.engine.Catalog()

	fmt.Fprintln(r.out, "Styles:")
	for _, s := range catalog.Styles() {
		fmt.Fprintf(r.out, "  %-10s %s\n", s.ID, s.Name)
	}
	fmt.Fprintln(r.out, "Actions:")
	for _, a := range catalog.Actions() {
		fmt.Fprintf(r.out, "  %-10s %s (%d frames)\n", a.ID, a.Name, a.Frames)
	}
	return nil
}

// CostCommand displays cost information
type CostCommand struct{}

func (c *CostCommand) Name() string        { return "cost" }
func (c *CostCommand) Aliases() []string   { return []string{"$"} }
func (c *CostCommand) Description() string { return "View usage (session) or stored cost history" }
func (c *CostCommand) Usage() string       { return "cost [today|week|month|total|provider]" }

func (c *CostCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		u := r.engine.Usage()
		fmt.Fprintf(r.out, "Session: %d image(s), %s", u.TotalImages, u.Formatted())
		if u.FailedAttempts > 0 {
			fmt.Fprintf(r.out, ", %d failed attempt(s)", u.FailedAttempts)
		}
		fmt.Fprintln(r.out)
		return nil
	}

	if r.sessionMgr == nil {
		return errors.New("cost history is not available")
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.Add(24 * time.Hour)

	var (
		label   string
		summary *session.CostSummary
		err     error
	)
	switch strings.ToLower(args[0]) {
	case "today":
		label = "Today's cost"
		summary, err = r.sessionMgr.GetCostByDateRange(ctx, today, tomorrow)
	case "week":
		label = "Last 7 days cost"
		summary, err = r.sessionMgr.GetCostByDateRange(ctx, today.Add(-6*24*time.Hour), tomorrow)
	case "month":
		label = "Last 30 days cost"
		summary, err = r.sessionMgr.GetCostByDateRange(ctx, today.Add(-29*24*time.Hour), tomorrow)
	case "total":
		label = "Total cost"
		summary, err = r.sessionMgr.GetTotalCost(ctx)
	case "provider":
		return c.showByProvider(ctx, r)
	default:
		return fmt.Errorf("unknown cost command: %s\nUsage: %s", args[0], c.Usage())
	}
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintln(r.out, "No costs recorded.")
		return nil
	}
	fmt.Fprintf(r.out, "%s: %s (%d image(s))\n", label, cost.FormatUSD(summary.TotalCost), summary.ImageCount)
	return nil
}

func (c *CostCommand) showByProvider(ctx context.Context, r *REPL) error {
	summaries, err := r.sessionMgr.GetCostByProvider(ctx)
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Fprintln(r.out, "No costs recorded.")
		return nil
	}

	fmt.Fprintf(r.out, "%-12s  %-8s  %s\n", "Provider", "Images", "Cost")
	fmt.Fprintln(r.out, strings.Repeat("-", 35))
	for _, ps := range summaries {
		fmt.Fprintf(r.out, "%-12s  %-8d  %s\n", ps.Provider, ps.ImageCount, cost.FormatUSD(ps.TotalCost))
	}
	return nil
}

// HistoryCommand shows the generation log of the session
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Aliases() []string   { return []string{"h", "hist"} }
func (c *HistoryCommand) Description() string { return "Show generation history" }
func (c *HistoryCommand) Usage() string       { return "history" }

func (c *HistoryCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	if r.sessionMgr == nil {
		return errors.New("history is not available")
	}

	history, err := r.sessionMgr.History(ctx)
	if err != nil {
		return err
	}

	if len(history) == 0 {
		fmt.Fprintln(r.out, "No history yet")
		return nil
	}

	for i, g := range history {
		target := g.StyleID
		if g.ActionID != "" {
			target = fmt.Sprintf("%s/%s #%d", g.StyleID, g.ActionID, g.FrameIndex+1)
		}
		fmt.Fprintf(r.out, "[%d] %s %-10s %-20s %s\n",
			i+1,
			session.FormatTimestamp(g.Timestamp),
			g.Kind,
			target,
			g.Status)
	}

	return nil
}

// SessionCommand manages the audit sessions in the usage database
type SessionCommand struct{}

func (c *SessionCommand) Name() string        { return "session" }
func (c *SessionCommand) Aliases() []string   { return []string{"sess"} }
func (c *SessionCommand) Description() string { return "Manage audit sessions" }
func (c *SessionCommand) Usage() string       { return "session [list|load|new|rename|delete] [args]" }

func (c *SessionCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if r.sessionMgr == nil {
		return errors.New("sessions are not available")
	}
	if len(args) == 0 {
		return c.current(ctx, r)
	}

	subCmd := strings.ToLower(args[0])
	subArgs := args[1:]

	switch subCmd {
	case "list", "ls":
		return c.list(ctx, r)
	case "load":
		if len(subArgs) != 1 {
			return errors.New("usage: session load <id>")
		}
		return c.load(ctx, r, subArgs[0])
	case "new":
		return c.new(ctx, r, strings.Join(subArgs, " "))
	case "rename":
		if len(subArgs) == 0 {
			return errors.New("usage: session rename <name>")
		}
		return c.rename(ctx, r, strings.Join(subArgs, " "))
	case "delete", "rm":
		if len(subArgs) != 1 {
			return errors.New("usage: session delete <id>")
		}
		return c.delete(ctx, r, subArgs[0])
	default:
		return fmt.Errorf("unknown session command: %s", subCmd)
	}
}

func displayName(sess *session.Session) string {
	if sess.Name == "" {
		return "(unnamed)"
	}
	return sess.Name
}

func shortID(id string) string {
	return id[:min(6, len(id))]
}

func (c *SessionCommand) current(ctx context.Context, r *REPL) error {
	sess := r.sessionMgr.Current()
	if sess == nil {
		fmt.Fprintln(r.out, "No active session")
		return nil
	}
	count, err := r.sessionMgr.GenerationCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Session: %s (%s), %d generation(s)\n", displayName(sess), shortID(sess.ID), count)
	return nil
}

func (c *SessionCommand) list(ctx context.Context, r *REPL) error {
	sessions, err := r.sessionMgr.ListSessions(ctx)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(r.out, "No sessions found")
		return nil
	}

	currentID := ""
	if r.sessionMgr.HasSession() {
		currentID = r.sessionMgr.Current().ID
	}

	fmt.Fprintf(r.out, "  %-6s  %-20s  %-19s  %s\n", "ID", "Name", "Updated", "Model")
	fmt.Fprintln(r.out, strings.Repeat("-", 70))

	for _, sess := range sessions {
		marker := "  "
		if sess.ID == currentID {
			marker = "> "
		}
		fmt.Fprintf(r.out, "%s%-6s  %-20s  %-19s  %s\n",
			marker,
			shortID(sess.ID),
			truncate(displayName(sess), 20),
			session.FormatTimestamp(sess.UpdatedAt),
			sess.Model)
	}

	return nil
}

// findSession resolves an id prefix as printed by list.
func (c *SessionCommand) findSession(ctx context.Context, r *REPL, prefix string) (string, error) {
	sessions, err := r.sessionMgr.ListSessions(ctx)
	if err != nil {
		return "", err
	}
	for _, sess := range sessions {
		if strings.HasPrefix(sess.ID, prefix) {
			return sess.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", session.ErrSessionNotFound, prefix)
}

func (c *SessionCommand) load(ctx context.Context, r *REPL, prefix string) error {
	id, err := c.findSession(ctx, r, prefix)
	if err != nil {
		return err
	}
	if err := r.sessionMgr.Load(ctx, id); err != nil {
		return err
	}

	sess := r.sessionMgr.Current()
	fmt.Fprintf(r.out, "Loaded session: %s (%s)\n", displayName(sess), shortID(sess.ID))
	return nil
}

func (c *SessionCommand) new(ctx context.Context, r *REPL, name string) error {
	sess, err := r.sessionMgr.StartNew(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Created new session: %s (%s)\n", displayName(sess), shortID(sess.ID))
	return nil
}

func (c *SessionCommand) rename(ctx context.Context, r *REPL, name string) error {
	if err := r.sessionMgr.RenameSession(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Session renamed to: %s\n", name)
	return nil
}

func (c *SessionCommand) delete(ctx context.Context, r *REPL, prefix string) error {
	id, err := c.findSession(ctx, r, prefix)
	if err != nil {
		return err
	}
	if err := r.sessionMgr.DeleteSession(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Deleted session %s\n", shortID(id))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// ResetCommand clears the session
type ResetCommand struct{}

func (c *ResetCommand) Name() string        { return "reset" }
func (c *ResetCommand) Aliases() []string   { return []string{"clear"} }
func (c *ResetCommand) Description() string { return "Clear the reference, styles, frames and usage" }
func (c *ResetCommand) Usage() string       { return "reset" }

func (c *ResetCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.engine.Reset()
	fmt.Fprintln(r.out, "Session cleared")
	return nil
}

// HelpCommand shows available commands
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range allCommands() {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-20s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "                      Usage: %s\n", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}

// parseFrame turns a 1-based frame number into an index.
func parseFrame(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s", sprite.ErrInvalidFrame, s)
	}
	return n - 1, nil
}
