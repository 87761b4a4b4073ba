// Package bench runs stencil strategies side by side on the same input and
// times them.
package bench

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"go-stencil/pkg/raster"
	"go-stencil/pkg/stats"
	"go-stencil/pkg/stencil"
	"go-stencil/pkg/strategy"
)

var (
	ErrNoStrategies    = errors.New("bench: no strategies configured")
	ErrUnknownStrategy = errors.New("bench: unknown strategy")
	ErrMismatch        = errors.New("bench: strategy outputs differ")
)

// Source returns the input image. Run copies whatever it returns before
// handing it to a strategy, so a source may return the same image twice.
type Source func() (*raster.Image, error)

// FileSource reloads the image at path on every call.
func FileSource(path string) Source {
	return func() (*raster.Image, error) {
		return raster.Load(path)
	}
}

// ImageSource serves an in-memory image.
func ImageSource(img *raster.Image) Source {
	return func() (*raster.Image, error) {
		return img, nil
	}
}

// Sink persists the final output image.
type Sink func(*raster.Image) error

func FileSink(path string) Sink {
	return func(img *raster.Image) error {
		return raster.Save(path, img)
	}
}

// Config controls a benchmark run.
type Config struct {
	Filter stencil.Filter
	// Verify compares every strategy's output with the first one.
	Verify bool
	// Tolerance is the largest per-channel difference Verify accepts. A
	// negative value selects the filter default.
	Tolerance int
}

func DefaultConfig() Config {
	return Config{
		Filter:    stencil.Blur,
		Verify:    true,
		Tolerance: -1,
	}
}

func (c Config) tolerance() int {
	if c.Tolerance >= 0 {
		return c.Tolerance
	}
	if c.Filter == stencil.EdgeDetection {
		// Square roots may round differently across execution environments.
		return 1
	}
	return 0
}

// ParseStrategies splits a comma-separated list of strategy names,
// dropping blanks and duplicates while keeping order.
func ParseStrategies(list string) ([]string, error) {
	names := lo.Uniq(lo.Compact(lo.Map(strings.Split(list, ","), func(s string, _ int) string {
		return strings.ToLower(strings.TrimSpace(s))
	})))
	if len(names) == 0 {
		return nil, ErrNoStrategies
	}
	for _, name := range names {
		if !lo.Contains(strategy.Names, name) {
			return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownStrategy, name, strings.Join(strategy.Names, ", "))
		}
	}
	return names, nil
}

// Outcome is the result of a benchmark run.
type Outcome struct {
	Results []stats.TimingResult
	// Output is the image produced by the last strategy.
	Output *raster.Image
	// MaxDiff is the largest per-channel difference seen during verification.
	MaxDiff int
}

// Harness runs a fixed list of strategies.
type Harness struct {
	cfg        Config
	kernel     stencil.Kernel
	strategies []strategy.Strategy
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger, strategies ...strategy.Strategy) (*Harness, error) {
	if len(strategies) == 0 {
		return nil, ErrNoStrategies
	}
	k, err := stencil.New(cfg.Filter)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Harness{cfg: cfg, kernel: k, strategies: strategies, logger: logger}, nil
}

// Run loads a fresh input for every strategy, times only the strategy
// itself, checks the outputs agree and hands the final output to sink
// (which may be nil).
func (h *Harness) Run(src Source, sink Sink) (*Outcome, error) {
	outcome := &Outcome{}
	var reference *raster.Image

	for _, s := range h.strategies {
		input, err := src()
		if err != nil {
			return nil, fmt.Errorf("load input for %s: %w", s.Name(), err)
		}
		if err := input.Validate(); err != nil {
			return nil, fmt.Errorf("load input for %s: %w", s.Name(), err)
		}
		// Each run gets a private copy so the source's pixels are never written.
		input = input.Clone()

		h.logger.Debug("running strategy", "strategy", s.Name(), "width", input.Width, "height", input.Height)
		start := time.Now()
		output, usage, err := s.Apply(h.kernel, input)
		elapsed := time.Since(start).Seconds()
		if err != nil {
			return nil, fmt.Errorf("%s strategy: %w", s.Name(), err)
		}

		result := stats.TimingResult{
			StrategyName:   s.Name(),
			ElapsedSeconds: elapsed,
			WorkerCount:    usage.Workers,
			Tasks:          usage.Tasks,
		}
		outcome.Results = append(outcome.Results, result)
		h.logger.Info("strategy finished",
			"strategy", s.Name(), "seconds", elapsed, "workers", usage.Workers, "tasks", usage.Tasks)

		if h.cfg.Verify {
			if reference == nil {
				reference = output
			} else {
				diff, err := MaxDiff(reference, output)
				if err != nil {
					return nil, err
				}
				outcome.MaxDiff = max(outcome.MaxDiff, diff)
				if diff > h.cfg.tolerance() {
					return nil, fmt.Errorf("%w: %s vs %s max channel difference %d exceeds %d",
						ErrMismatch, h.strategies[0].Name(), s.Name(), diff, h.cfg.tolerance())
				}
			}
		}
		outcome.Output = output
	}

	if sink != nil {
		if err := sink(outcome.Output); err != nil {
			return nil, fmt.Errorf("write output: %w", err)
		}
	}
	return outcome, nil
}

// MaxDiff returns the largest absolute per-channel difference between a and b.
func MaxDiff(a, b *raster.Image) (int, error) {
	if !a.SameSize(b) || len(a.Pix) != len(b.Pix) {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrMismatch, a.Width, a.Height, b.Width, b.Height)
	}
	worst := 0
	for i := range a.Pix {
		d := int(a.Pix[i]) - int(b.Pix[i])
		if d < 0 {
			d = -d
		}
		worst = max(worst, d)
	}
	return worst, nil
}
