package main

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stencil/pkg/bench"
	"go-stencil/pkg/raster"
	"go-stencil/pkg/stencil"
	"go-stencil/pkg/strategy"
)

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	img, err := raster.New(40, 30)
	require.NoError(t, err)
	rand.New(rand.NewSource(1)).Read(img.Pix)
	path := filepath.Join(dir, "in.ppm")
	require.NoError(t, raster.Save(path, img))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunAllStrategies(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	out := filepath.Join(dir, "out.ppm")

	stdout, stderr, err := execute(t, in, out, "2", "--workers", "3", "--block", "8")
	require.NoError(t, err, stderr)

	assert.Contains(t, stdout, "Filter: edge-detection")
	assert.Contains(t, stdout, "Image: 40x30")
	assert.Contains(t, stdout, "=== sequential ===")
	assert.Contains(t, stdout, "=== parallel ===")
	assert.Contains(t, stdout, "=== device ===")
	assert.Contains(t, stdout, "Speedup vs sequential: 1.00x")
	assert.Contains(t, stderr, "Benchmark Complete")

	// The written image matches a plain sequential run.
	src, err := raster.Load(in)
	require.NoError(t, err)
	k, err := stencil.New(stencil.EdgeDetection)
	require.NoError(t, err)
	want, _, err := strategy.NewSequential().Apply(k, src)
	require.NoError(t, err)
	got, err := raster.Load(out)
	require.NoError(t, err)
	d, err := bench.MaxDiff(want, got)
	require.NoError(t, err)
	assert.LessOrEqual(t, d, 1)
}

func TestRunSelectedStrategiesWithResultsFile(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	logs := filepath.Join(dir, "logs")

	stdout, _, err := execute(t, in, filepath.Join(dir, "out.ppm"), "1",
		"--strategies", "parallel,device", "--schedule", "tiled", "--results-dir", logs, "--log-level", "warn")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "=== sequential ===")
	assert.Contains(t, stdout, "Speedup vs parallel: 1.00x")

	entries, err := os.ReadDir(logs)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^stencil_.*\.txt$`, entries[0].Name())
}

func TestRunNamesDevice(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)

	_, stderr, err := execute(t, in, filepath.Join(dir, "out.ppm"), "1",
		"--strategies", "device", "--device-name", "bench-device", "--compute-units", "2")
	require.NoError(t, err)
	assert.Contains(t, stderr, "device=bench-device")
}

func TestUsageErrors(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	out := filepath.Join(dir, "out.ppm")

	_, _, err := execute(t, in, out)
	assert.Error(t, err)

	stdout, _, err := execute(t, in, out, "3")
	assert.ErrorIs(t, err, stencil.ErrUnknownFilter)
	assert.Contains(t, stdout, "Usage:")

	_, _, err = execute(t, in, out, "1", "--strategies", "gpu")
	assert.ErrorIs(t, err, bench.ErrUnknownStrategy)

	_, _, err = execute(t, in, out, "1", "--schedule", "guided")
	assert.ErrorIs(t, err, strategy.ErrUnknownSchedule)

	_, _, err = execute(t, in, out, "1", "--log-level", "loud")
	assert.Error(t, err)

	_, err = os.Stat(out)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInputErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.ppm")
	require.NoError(t, os.WriteFile(bad, []byte("P3\n1 1\n255\n0 0 0\n"), 0644))

	_, _, err := execute(t, bad, filepath.Join(dir, "out.ppm"), "1")
	assert.ErrorIs(t, err, raster.ErrUnsupportedFormat)

	_, _, err = execute(t, filepath.Join(dir, "missing.ppm"), filepath.Join(dir, "out.ppm"), "1")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = execute(t, bad, filepath.Join(dir, "out.ppm"), "1", "--block", "64")
	assert.Error(t, err)
}
