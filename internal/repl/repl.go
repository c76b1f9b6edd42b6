// Package repl implements the interactive sprite session.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ruizrica/spriteforge/internal/display"
	"github.com/ruizrica/spriteforge/internal/image"
	"github.com/ruizrica/spriteforge/internal/session"
	"github.com/ruizrica/spriteforge/internal/sprite"
)

type REPL struct {
	in         io.Reader
	out        io.Writer
	err        io.Writer
	engine     *sprite.Engine
	sessionMgr *session.Manager
	displayer  *display.Displayer
	saver      *image.Saver
	apiKey     string
	commands   map[string]Command
	running    bool
}

type Config struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Engine *sprite.Engine
	// SessionMgr is optional; without it history and stored cost
	// summaries are unavailable.
	SessionMgr *session.Manager
	Displayer  *display.Displayer
	Saver      *image.Saver
	APIKey     string
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:         cfg.In,
		out:        cfg.Out,
		err:        cfg.Err,
		engine:     cfg.Engine,
		sessionMgr: cfg.SessionMgr,
		displayer:  cfg.Displayer,
		saver:      cfg.Saver,
		apiKey:     cfg.APIKey,
		commands:   make(map[string]Command),
	}
	if r.displayer == nil {
		r.displayer = display.New(r.out, display.DefaultColumns)
	}
	if r.saver == nil {
		r.saver = image.NewSaver(".")
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "spriteforge interactive mode")
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	snap := r.engine.Snapshot()
	switch {
	case snap.SelectedStyle != "" && snap.SelectedAction != "":
		fmt.Fprintf(r.out, "spriteforge [%s/%s]> ", snap.SelectedStyle, snap.SelectedAction)
	case snap.SelectedStyle != "":
		fmt.Fprintf(r.out, "spriteforge [%s]> ", snap.SelectedStyle)
	default:
		fmt.Fprint(r.out, "spriteforge> ")
	}
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
