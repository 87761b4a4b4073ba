package device

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Dim3 is a grid or block extent.
type Dim3 struct {
	X, Y, Z int
}

// Dim2 returns a two-dimensional extent (Z = 1).
func Dim2(x, y int) Dim3 {
	return Dim3{X: x, Y: y, Z: 1}
}

// Size returns the number of elements covered by d.
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

func (d Dim3) valid() bool {
	return d.X > 0 && d.Y > 0 && d.Z > 0
}

// GridFor returns the smallest 2-D grid of block-sized tiles covering a
// width x height domain.
func GridFor(width, height int, block Dim3) Dim3 {
	return Dim2((width+block.X-1)/block.X, (height+block.Y-1)/block.Y)
}

// ThreadID identifies one thread within a launch.
type ThreadID struct {
	BlockIdx  Dim3
	ThreadIdx Dim3
	BlockDim  Dim3
	GridDim   Dim3
}

func (t ThreadID) GlobalX() int {
	return t.BlockIdx.X*t.BlockDim.X + t.ThreadIdx.X
}

func (t ThreadID) GlobalY() int {
	return t.BlockIdx.Y*t.BlockDim.Y + t.ThreadIdx.Y
}

// KernelFunc is the body executed by every thread of a launch.
type KernelFunc func(t ThreadID)

// Launch queues fn over grid x block threads and returns without waiting.
// Blocks run independently on at most ComputeUnits goroutines; threads
// inside a block run in order. Call Synchronize before reading results.
func (d *Device) Launch(grid, block Dim3, fn KernelFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: nil kernel", ErrInvalidLaunch)
	}
	if !grid.valid() || !block.valid() {
		return fmt.Errorf("%w: grid %v block %v", ErrInvalidLaunch, grid, block)
	}
	if block.Size() > d.props.MaxThreadsPerBlock {
		return fmt.Errorf("%w: %d threads per block exceeds %d",
			ErrInvalidLaunch, block.Size(), d.props.MaxThreadsPerBlock)
	}

	done := make(chan error, 1)
	d.mu.Lock()
	d.pending = append(d.pending, done)
	d.stats.Launches++
	d.stats.Blocks += grid.Size()
	d.stats.Threads += grid.Size() * block.Size()
	d.mu.Unlock()

	go func() {
		var g errgroup.Group
		g.SetLimit(d.props.ComputeUnits)
		for bz := 0; bz < grid.Z; bz++ {
			for by := 0; by < grid.Y; by++ {
				for bx := 0; bx < grid.X; bx++ {
					tid := ThreadID{BlockIdx: Dim3{bx, by, bz}, BlockDim: block, GridDim: grid}
					g.Go(func() error { return runBlock(fn, tid) })
				}
			}
		}
		done <- g.Wait()
	}()
	return nil
}

func runBlock(fn KernelFunc, tid ThreadID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: block %v thread %v: %v", ErrKernelPanic, tid.BlockIdx, tid.ThreadIdx, r)
		}
	}()
	for tz := 0; tz < tid.BlockDim.Z; tz++ {
		for ty := 0; ty < tid.BlockDim.Y; ty++ {
			for tx := 0; tx < tid.BlockDim.X; tx++ {
				tid.ThreadIdx = Dim3{tx, ty, tz}
				fn(tid)
			}
		}
	}
	return nil
}

// Synchronize blocks until every queued launch has finished and returns the
// errors they produced.
func (d *Device) Synchronize() error {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	var errs []error
	for _, done := range pending {
		if err := <-done; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
