// Package display previews sprites inline in terminals that speak the
// kitty graphics protocol, and falls back to a text summary elsewhere.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ruizrica/spriteforge/pkg/models"
)

const DefaultColumns = 16

type Displayer struct {
	out     io.Writer
	enc     *KittyEncoder
	graphic bool
}

// New returns a Displayer writing to out. Images are drawn only when out
// is a terminal with graphics support.
func New(out io.Writer, columns int) *Displayer {
	return &Displayer{
		out:     out,
		enc:     NewKittyEncoder(out, columns),
		graphic: isTerminal(out) && IsTerminalSupported(os.Getenv),
	}
}

// NewGraphic forces graphics output regardless of the terminal.
func NewGraphic(out io.Writer, columns int) *Displayer {
	d := New(out, columns)
	d.graphic = true
	return d
}

func (d *Displayer) Graphic() bool {
	return d.graphic
}

// Show draws one result with a label. Failed and pending results are
// reported as text.
func (d *Displayer) Show(label string, r models.Result) error {
	switch {
	case r.HasImage() && d.graphic:
		fmt.Fprintf(d.out, "%s\n", label)
		if err := d.enc.Encode(r.Image()); err != nil {
			return fmt.Errorf("failed to encode image: %w", err)
		}
		fmt.Fprintln(d.out)
	case r.HasImage():
		fmt.Fprintf(d.out, "%s: %s, %d bytes\n", label, r.Image().MIMEType, len(r.Image().Data))
	case r.Status() == models.StatusFailed:
		fmt.Fprintf(d.out, "%s: failed: %s\n", label, r.Err())
	default:
		fmt.Fprintf(d.out, "%s: pending\n", label)
	}
	return nil
}

func (d *Displayer) ShowStyle(v models.StyleVariant) error {
	return d.Show(string(v.ID), v.Result)
}

func (d *Displayer) ShowFrame(f models.ActionFrame) error {
	return d.Show(f.Name(), f.Result)
}

// ShowStrip draws the frames of a chain side by side.
func (d *Displayer) ShowStrip(frames []models.ActionFrame) error {
	if !d.graphic {
		for _, f := range frames {
			if err := d.ShowFrame(f); err != nil {
				return err
			}
		}
		return nil
	}

	for _, f := range frames {
		if !f.Result.HasImage() {
			fmt.Fprintf(d.out, "[%d failed] ", f.Index+1)
			continue
		}
		if err := d.enc.Encode(f.Result.Image()); err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", f.Index, err)
		}
	}
	fmt.Fprintln(d.out)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// IsTerminalSupported reports whether the terminal described by the
// environment understands the kitty graphics protocol.
func IsTerminalSupported(getenv func(string) string) bool {
	termProgram := strings.ToLower(getenv("TERM_PROGRAM"))
	supportedPrograms := []string{"kitty", "ghostty", "iterm.app", "wezterm"}

	for _, prog := range supportedPrograms {
		if termProgram == prog {
			return true
		}
	}

	if getenv("KITTY_WINDOW_ID") != "" {
		return true
	}

	if getenv("ITERM_SESSION_ID") != "" {
		return true
	}

	t := strings.ToLower(getenv("TERM"))
	return strings.Contains(t, "kitty") || strings.Contains(t, "ghostty")
}
