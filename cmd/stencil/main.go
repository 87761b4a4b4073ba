package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go-stencil/pkg/bench"
	"go-stencil/pkg/device"
	"go-stencil/pkg/stats"
	"go-stencil/pkg/stencil"
	"go-stencil/pkg/strategy"
)

type options struct {
	strategies   string
	workers      int
	schedule     string
	batchSize    int
	tileSize     int
	blockSize    int
	computeUnits int
	deviceName   string
	verify       bool
	resultsDir   string
	logLevel     string
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := options{
		strategies: "sequential,parallel,device",
		schedule:   string(strategy.ScheduleDynamic),
		batchSize:  strategy.DefaultBatchSize,
		tileSize:   strategy.DefaultTileSize,
		blockSize:  strategy.DefaultBlock.X,
		verify:     true,
		logLevel:   "info",
	}

	cmd := &cobra.Command{
		Use:   "stencil <input.ppm> <output.ppm> <filter>",
		Short: "Benchmark 3x3 stencil filters across execution strategies",
		Long: `Apply a 3x3 stencil filter to a binary PPM (P6) image with each selected
execution strategy, report timings and speedups, and write the last
strategy's output.

Filter types:
  1 - Blur
  2 - Edge Detection`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	addFlags(cmd.Flags(), &opts)
	return cmd
}

func addFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVar(&opts.strategies, "strategies", opts.strategies, "comma-separated strategies to run: sequential, parallel, device")
	flags.IntVar(&opts.workers, "workers", opts.workers, "worker goroutines for the parallel strategy (0 = GOMAXPROCS)")
	flags.StringVar(&opts.schedule, "schedule", opts.schedule, "parallel work distribution: dynamic, static or tiled")
	flags.IntVar(&opts.batchSize, "batch", opts.batchSize, "pixels per batch for the dynamic schedule")
	flags.IntVar(&opts.tileSize, "tile", opts.tileSize, "tile edge in pixels for the tiled schedule")
	flags.IntVar(&opts.blockSize, "block", opts.blockSize, "device thread-block edge (block is NxN)")
	flags.IntVar(&opts.computeUnits, "compute-units", opts.computeUnits, "device compute units (0 = number of CPUs)")
	flags.StringVar(&opts.deviceName, "device-name", opts.deviceName, "name reported for the device (default describes the emulated device)")
	flags.BoolVar(&opts.verify, "verify", opts.verify, "check that all strategies produce the same image")
	flags.StringVar(&opts.resultsDir, "results-dir", opts.resultsDir, "also write the report to a timestamped file in this directory")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level: debug, info, warn, error")
}

func run(cmd *cobra.Command, args []string, opts options) error {
	inputPath, outputPath := args[0], args[1]

	filter, err := stencil.ParseFilter(args[2])
	if err != nil {
		return err
	}
	names, err := bench.ParseStrategies(opts.strategies)
	if err != nil {
		return err
	}
	schedule, err := strategy.ParseSchedule(opts.schedule)
	if err != nil {
		return err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	// Arguments are valid from here on; failures are no longer usage errors.
	cmd.SilenceUsage = true

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	startTime := time.Now()
	logger.Info("=== Starting Stencil Benchmark ===",
		"filter", filter, "strategies", names, "input", inputPath, "output", outputPath)

	strategies := make([]strategy.Strategy, 0, len(names))
	for _, name := range names {
		switch name {
		case strategy.NameSequential:
			strategies = append(strategies, strategy.NewSequential())
		case strategy.NameParallel:
			p, err := strategy.NewParallel(strategy.ParallelConfig{
				Workers:   opts.workers,
				Schedule:  schedule,
				BatchSize: opts.batchSize,
				TileSize:  opts.tileSize,
			})
			if err != nil {
				return err
			}
			defer p.Close()
			logger.Debug("worker pool ready", "workers", p.Workers(), "schedule", schedule)
			strategies = append(strategies, p)
		case strategy.NameDevice:
			devOpts := []device.Option{device.WithComputeUnits(opts.computeUnits)}
			if opts.deviceName != "" {
				devOpts = append(devOpts, device.WithName(opts.deviceName))
			}
			dev := device.Open(devOpts...)
			d, err := strategy.NewDevice(dev, device.Dim2(opts.blockSize, opts.blockSize))
			if err != nil {
				return err
			}
			logger.Info("device ready", "device", dev.Properties().Name, "block", opts.blockSize)
			strategies = append(strategies, d)
		}
	}

	cfg := bench.DefaultConfig()
	cfg.Filter = filter
	cfg.Verify = opts.verify
	h, err := bench.New(cfg, logger, strategies...)
	if err != nil {
		return err
	}

	outcome, err := h.Run(bench.FileSource(inputPath), bench.FileSink(outputPath))
	if err != nil {
		logger.Error("benchmark failed", "err", err)
		return err
	}

	report := stats.Report{
		Filter:     filter.String(),
		InputPath:  inputPath,
		OutputPath: outputPath,
		Width:      outcome.Output.Width,
		Height:     outcome.Output.Height,
		Host:       stats.DetectHost(),
		Timestamp:  startTime,
		Results:    outcome.Results,
	}
	if err := report.Write(cmd.OutOrStdout()); err != nil {
		return err
	}
	if opts.resultsDir != "" {
		path, err := stats.WriteResultsFile(opts.resultsDir, "stencil_", report)
		if err != nil {
			return err
		}
		logger.Info("results written", "path", path)
	}

	logger.Info("=== Benchmark Complete ===", "total_seconds", time.Since(startTime).Seconds())
	return nil
}
