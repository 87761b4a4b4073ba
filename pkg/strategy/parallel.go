package strategy

import (
	"errors"
	"fmt"
	"strings"

	"go-stencil/pkg/raster"
	"go-stencil/pkg/stencil"
	"go-stencil/pkg/workerpool"
)

// Schedule selects how interior pixels are divided among workers.
type Schedule string

const (
	// ScheduleDynamic flattens the interior into batches claimed through an
	// atomic counter.
	ScheduleDynamic Schedule = "dynamic"
	// ScheduleStatic gives each worker one contiguous block of rows.
	ScheduleStatic Schedule = "static"
	// ScheduleTiled feeds square tiles to the workers through a queue.
	ScheduleTiled Schedule = "tiled"
)

const (
	DefaultBatchSize = 256
	DefaultTileSize  = 64
	tileQueueSize    = 100
)

var ErrUnknownSchedule = errors.New("strategy: unknown schedule")

func ParseSchedule(s string) (Schedule, error) {
	switch sc := Schedule(strings.ToLower(strings.TrimSpace(s))); sc {
	case ScheduleDynamic, ScheduleStatic, ScheduleTiled:
		return sc, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSchedule, s)
}

// ParallelConfig tunes the CPU-parallel strategy.
type ParallelConfig struct {
	// Workers is the pool size; 0 means runtime.GOMAXPROCS(0).
	Workers   int
	Schedule  Schedule
	BatchSize int
	TileSize  int
}

func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		Schedule:  ScheduleDynamic,
		BatchSize: DefaultBatchSize,
		TileSize:  DefaultTileSize,
	}
}

// Parallel spreads the stencil over a pool of goroutines. Workers read the
// shared source and write disjoint pixels of the output, so only the work
// distribution is synchronized.
type Parallel struct {
	cfg  ParallelConfig
	pool *workerpool.Pool
}

// NewParallel starts the worker pool. Call Close when done.
func NewParallel(cfg ParallelConfig) (*Parallel, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = ScheduleDynamic
	}
	if _, err := ParseSchedule(string(cfg.Schedule)); err != nil {
		return nil, err
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.TileSize <= 0 {
		cfg.TileSize = DefaultTileSize
	}
	return &Parallel{cfg: cfg, pool: workerpool.New(cfg.Workers)}, nil
}

func (p *Parallel) Name() string {
	return NameParallel
}

// Workers returns the pool size.
func (p *Parallel) Workers() int {
	return p.pool.NumWorkers()
}

func (p *Parallel) Close() {
	p.pool.Close()
}

func (p *Parallel) Apply(k stencil.Kernel, src *raster.Image) (*raster.Image, Usage, error) {
	dst, err := raster.New(src.Width, src.Height)
	if err != nil {
		return nil, Usage{}, err
	}
	if stencil.InteriorCount(src.Width, src.Height) == 0 {
		return dst, Usage{Workers: 1}, nil
	}

	var usage Usage
	switch p.cfg.Schedule {
	case ScheduleStatic:
		usage = p.applyStatic(k, src, dst)
	case ScheduleTiled:
		usage = p.applyTiled(k, src, dst)
	default:
		usage = p.applyDynamic(k, src, dst)
	}
	return dst, usage, nil
}

func (p *Parallel) applyDynamic(k stencil.Kernel, src, dst *raster.Image) Usage {
	w, h := src.Width, src.Height
	iw := w - 2
	n := stencil.InteriorCount(w, h)

	workers := p.pool.ParallelForAtomicBatched(n, p.cfg.BatchSize, func(start, end int) {
		for i := start; i < end; i++ {
			k.Compute(dst.Pix, src.Pix, w, h, 1+i%iw, 1+i/iw)
		}
	})
	return Usage{Workers: workers, Tasks: (n + p.cfg.BatchSize - 1) / p.cfg.BatchSize}
}

func (p *Parallel) applyStatic(k stencil.Kernel, src, dst *raster.Image) Usage {
	w, h := src.Width, src.Height

	workers := p.pool.ParallelFor(h-2, func(start, end int) {
		for y := start + 1; y < end+1; y++ {
			for x := 1; x < w-1; x++ {
				k.Compute(dst.Pix, src.Pix, w, h, x, y)
			}
		}
	})
	return Usage{Workers: workers, Tasks: workers}
}

// tile is a half-open rectangle of interior pixels.
type tile struct {
	x0, y0, x1, y1 int
}

func interiorTiles(width, height, size int) []tile {
	var tiles []tile
	for y := 1; y < height-1; y += size {
		for x := 1; x < width-1; x += size {
			tiles = append(tiles, tile{
				x0: x, y0: y,
				x1: min(x+size, width-1),
				y1: min(y+size, height-1),
			})
		}
	}
	return tiles
}

func (p *Parallel) applyTiled(k stencil.Kernel, src, dst *raster.Image) Usage {
	w, h := src.Width, src.Height
	tiles := interiorTiles(w, h, p.cfg.TileSize)

	tileQueue := make(chan tile, tileQueueSize)
	go func() {
		for _, t := range tiles {
			tileQueue <- t
		}
		close(tileQueue)
	}()

	workers := p.pool.Go(len(tiles), func(int) {
		for t := range tileQueue {
			for y := t.y0; y < t.y1; y++ {
				for x := t.x0; x < t.x1; x++ {
					k.Compute(dst.Pix, src.Pix, w, h, x, y)
				}
			}
		}
	})
	return Usage{Workers: workers, Tasks: len(tiles)}
}
