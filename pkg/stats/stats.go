package stats

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// TimingResult holds the measurement of one strategy run.
type TimingResult struct {
	StrategyName   string
	ElapsedSeconds float64
	WorkerCount    int
	Tasks          int
}

// Speedup returns baseline time divided by r's time. It is not clamped and
// may be below 1.
func Speedup(baseline, r TimingResult) float64 {
	return baseline.ElapsedSeconds / r.ElapsedSeconds
}

// Report is everything printed at the end of a benchmark.
type Report struct {
	Filter     string
	InputPath  string
	OutputPath string
	Width      int
	Height     int
	Host       HostInfo
	Timestamp  time.Time
	Results    []TimingResult
}

// Baseline returns the first result, which speedups are measured against.
func (r Report) Baseline() (TimingResult, bool) {
	if len(r.Results) == 0 {
		return TimingResult{}, false
	}
	return r.Results[0], true
}

// Write prints the report in human-readable form.
func (r Report) Write(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("=== Stencil Benchmark Results ===\n")
	ew.printf("Timestamp: %s\n", r.Timestamp.Format("2006-01-02 15:04:05"))
	ew.printf("Filter: %s\n", r.Filter)
	ew.printf("Image: %dx%d\n", r.Width, r.Height)
	if r.InputPath != "" {
		ew.printf("Input: %s\n", r.InputPath)
	}
	if r.OutputPath != "" {
		ew.printf("Output: %s\n", r.OutputPath)
	}
	ew.printf("Host: %s\n\n", r.Host)

	baseline, _ := r.Baseline()
	for _, res := range r.Results {
		ew.printf("=== %s ===\n", res.StrategyName)
		ew.printf("Execution time: %f seconds\n", res.ElapsedSeconds)
		ew.printf("Speedup vs %s: %.2fx\n", baseline.StrategyName, Speedup(baseline, res))
		ew.printf("Workers used: %d\n", res.WorkerCount)
		ew.printf("Tasks: %d\n\n", res.Tasks)
	}
	return ew.err
}

// WriteResultsFile writes the report to dir/<prefix><timestamp>.txt and
// returns the file path.
func WriteResultsFile(dir, prefix string, r Report) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	name := fmt.Sprintf("%s%s.txt", prefix, r.Timestamp.Format("2006-01-02_15-04-05"))
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create results file: %w", err)
	}
	if err := r.Write(file); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write results file: %w", err)
	}
	return path, file.Close()
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
