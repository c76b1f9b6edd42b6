package cost

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Record is one priced generation. Records are append-only.
type Record struct {
	Seq           int
	PromptLength  int
	SizeClass     SizeClass
	Cost          float64
	RunningCost   float64
	RunningImages int
	Timestamp     time.Time
}

type Usage struct {
	TotalImages    int
	TotalCost      float64
	FailedAttempts int
}

func (u Usage) Formatted() string {
	return FormatUSD(u.TotalCost)
}

func FormatUSD(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// Sink receives every record for durable storage.
type Sink interface {
	LogCost(ctx context.Context, rec Record) error
}

// Ledger accumulates the cost of successful generations. Totals only
// grow until Reset.
type Ledger struct {
	mu      sync.Mutex
	calc    *Calculator
	records []Record
	usage   Usage
	sink    Sink
	logger  *slog.Logger
	now     func() time.Time
}

type LedgerOption func(*Ledger)

func WithSink(s Sink) LedgerOption {
	return func(l *Ledger) { l.sink = s }
}

func WithLogger(logger *slog.Logger) LedgerOption {
	return func(l *Ledger) { l.logger = logger }
}

func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(calc *Calculator, opts ...LedgerOption) *Ledger {
	if calc == nil {
		calc = NewCalculator()
	}
	l := &Ledger{
		calc:   calc,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record prices one successful generation and returns the running total.
func (l *Ledger) Record(ctx context.Context, prompt string, sc SizeClass) float64 {
	price := l.calc.PerImage(sc)

	l.mu.Lock()
	l.usage.TotalImages++
	l.usage.TotalCost += price
	rec := Record{
		Seq:           len(l.records) + 1,
		PromptLength:  len(prompt),
		SizeClass:     sc,
		Cost:          price,
		RunningCost:   l.usage.TotalCost,
		RunningImages: l.usage.TotalImages,
		Timestamp:     l.now(),
	}
	l.records = append(l.records, rec)
	l.mu.Unlock()

	l.logger.DebugContext(ctx, "usage recorded",
		"seq", rec.Seq,
		"size_class", sc.String(),
		"cost", price,
		"running_cost", rec.RunningCost,
	)

	if l.sink != nil {
		if err := l.sink.LogCost(ctx, rec); err != nil {
			l.logger.WarnContext(ctx, "failed to persist usage record", "seq", rec.Seq, "error", err)
		}
	}

	return rec.RunningCost
}

// RecordFailure counts a call that produced no image. It is never priced.
func (l *Ledger) RecordFailure(ctx context.Context, prompt string, sc SizeClass) {
	l.mu.Lock()
	l.usage.FailedAttempts++
	failed := l.usage.FailedAttempts
	l.mu.Unlock()

	l.logger.DebugContext(ctx, "failed attempt recorded",
		"size_class", sc.String(),
		"prompt_length", len(prompt),
		"failed_attempts", failed,
	)
}

func (l *Ledger) Usage() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usage
}

func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
	l.usage = Usage{}
}
