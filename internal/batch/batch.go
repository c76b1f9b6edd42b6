// Package batch runs several animation chains from a job file.
package batch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ruizrica/spriteforge/internal/image"
	"github.com/ruizrica/spriteforge/internal/sprite"
	"github.com/ruizrica/spriteforge/pkg/models"
)

type Result struct {
	Item     Item
	Frames   []models.ActionFrame
	Failed   int
	Paths    []string
	Error    error
	Duration time.Duration
}

// Complete reports whether every frame of the chain has an image.
func (r Result) Complete() bool {
	return r.Error == nil && r.Failed == 0
}

type Options struct {
	APIKey string
	// Styles renders the style variant of every job before the chains
	// run, so frame 0 starts from the styled image.
	Styles      bool
	Parallel    int
	StopOnError bool
	DelayMs     int
}

type Processor struct {
	engine *sprite.Engine
	saver  *image.Saver
	out    io.Writer
	err    io.Writer
	outMu  sync.Mutex
}

func NewProcessor(engine *sprite.Engine, saver *image.Saver, out, errOut io.Writer) *Processor {
	return &Processor{
		engine: engine,
		saver:  saver,
		out:    out,
		err:    errOut,
	}
}

func (p *Processor) printf(format string, args ...any) {
	p.outMu.Lock()
	fmt.Fprintf(p.out, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) errorf(format string, args ...any) {
	p.outMu.Lock()
	fmt.Fprintf(p.err, format, args...)
	p.outMu.Unlock()
}

// Process runs every item. Chains of different (style, action) pairs are
// independent, so they may run in parallel; a frame failure inside a
// chain is reported per item and never stops the batch.
func (p *Processor) Process(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	if opts.Styles {
		if err := p.prepareStyles(ctx, items, opts); err != nil {
			return nil, err
		}
	}
	if opts.Parallel <= 1 {
		return p.processSequential(ctx, items, opts)
	}
	return p.processParallel(ctx, items, opts)
}

func (p *Processor) prepareStyles(ctx context.Context, items []Item, opts *Options) error {
	var styles []models.StyleID
	seen := make(map[models.StyleID]bool)
	for _, it := range items {
		if !seen[it.Style] {
			seen[it.Style] = true
			styles = append(styles, it.Style)
		}
	}

	p.printf("Generating %d style(s)...\n", len(styles))
	variants, err := p.engine.GenerateStyles(ctx, styles, opts.APIKey)
	for _, v := range variants {
		if !v.Result.HasImage() {
			p.errorf("       Style %s failed: %s\n", v.ID, v.Result.Err())
		}
	}
	if err != nil {
		return fmt.Errorf("style generation failed: %w", err)
	}
	return nil
}

func (p *Processor) processSequential(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	total := len(items)

	for i, item := range items {
		select {
		case <-ctx.Done():
			return results[:i], ctx.Err()
		default:
		}

		result := p.processItem(ctx, item, opts, i+1, total)
		results[i] = result

		if result.Error != nil && opts.StopOnError {
			return results[:i+1], fmt.Errorf("stopped at item %d: %w", item.Index, result.Error)
		}

		if opts.DelayMs > 0 && i < len(items)-1 {
			select {
			case <-ctx.Done():
				return results[:i+1], ctx.Err()
			case <-time.After(time.Duration(opts.DelayMs) * time.Millisecond):
			}
		}
	}

	return results, nil
}

func (p *Processor) processParallel(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	done := make([]bool, len(items))
	total := len(items)

	type job struct {
		index int
		item  Item
	}

	jobs := make(chan job, len(items))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	workers := min(opts.Parallel, len(items))

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				mu.Lock()
				stop := opts.StopOnError && firstErr != nil
				mu.Unlock()
				if stop || ctx.Err() != nil {
					return
				}

				result := p.processItem(ctx, j.item, opts, j.index+1, total)

				mu.Lock()
				results[j.index] = result
				done[j.index] = true
				if result.Error != nil && opts.StopOnError && firstErr == nil {
					firstErr = result.Error
				}
				mu.Unlock()
			}
		}()
	}

	for i, item := range items {
		jobs <- job{index: i, item: item}
	}
	close(jobs)

	wg.Wait()

	finished := results[:0:0]
	for i, r := range results {
		if done[i] {
			finished = append(finished, r)
		}
	}

	if firstErr != nil {
		return finished, fmt.Errorf("batch stopped due to error: %w", firstErr)
	}
	if err := ctx.Err(); err != nil {
		return finished, err
	}
	return finished, nil
}

func (p *Processor) processItem(ctx context.Context, item Item, opts *Options, current, total int) Result {
	start := time.Now()
	result := Result{Item: item}

	p.printf("[%d/%d] Animating %s...\n", current, total, item.Key())

	frames, err := p.engine.GenerateChain(ctx, sprite.ChainRequest{
		StyleID:    item.Style,
		ActionID:   item.Action,
		FrameCount: item.Frames,
		APIKey:     opts.APIKey,
	})
	result.Frames = frames
	for _, f := range frames {
		if !f.Result.HasImage() {
			result.Failed++
		}
	}
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		p.errorf("       Error: %v\n", err)
		return result
	}

	paths, err := p.saver.SaveFrames(frames)
	result.Paths = paths
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		p.errorf("       Error: %v\n", result.Error)
		return result
	}

	p.printf("       %s: %d/%d frame(s) saved\n", item.Key(), len(paths), len(frames))
	return result
}

func (p *Processor) PrintSummary(results []Result) {
	var complete, frames, failedFrames int
	var errored []Result

	for _, r := range results {
		frames += len(r.Frames)
		failedFrames += r.Failed
		switch {
		case r.Error != nil:
			errored = append(errored, r)
		case r.Failed == 0:
			complete++
		}
	}

	usage := p.engine.Usage()

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Summary:")
	fmt.Fprintf(p.out, "  Complete chains: %d/%d\n", complete, len(results))
	fmt.Fprintf(p.out, "  Frames: %d generated, %d failed\n", frames-failedFrames, failedFrames)
	fmt.Fprintf(p.out, "  Total cost: %s (%d image(s))\n", usage.Formatted(), usage.TotalImages)

	if len(errored) > 0 {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, "Errors:")
		for _, e := range errored {
			fmt.Fprintf(p.out, "  [%d] %s: %v\n", e.Item.Index, e.Item.Key(), e.Error)
		}
	}
}
