// Package device emulates a data-parallel compute device on the host CPU.
//
// The API follows the usual accelerator host protocol: allocate device
// buffers, copy host data in, launch a grid of thread blocks, synchronize,
// copy results out, release the buffers. Kernels only see device buffers,
// so code written against this package keeps the same shape it would have on
// a real GPU backend.
package device

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

const (
	DefaultMaxThreadsPerBlock = 1024
	DefaultTotalMemory        = 4 << 30
)

var (
	ErrInvalidLaunch = errors.New("device: invalid launch configuration")
	ErrKernelPanic   = errors.New("device: kernel panicked")
	ErrOutOfMemory   = errors.New("device: out of memory")
	ErrInvalidSize   = errors.New("device: invalid allocation size")
	ErrSizeMismatch  = errors.New("device: copy size mismatch")
	ErrFreed         = errors.New("device: buffer already freed")
)

// Properties describes a device.
type Properties struct {
	Name string
	// ComputeUnits bounds how many thread blocks run at the same time.
	ComputeUnits       int
	MaxThreadsPerBlock int
	// TotalMemory is the allocation budget in bytes; 0 means unlimited.
	TotalMemory int64
}

type Option func(*Properties)

func WithName(name string) Option {
	return func(p *Properties) { p.Name = name }
}

// WithComputeUnits sets the number of concurrently executing blocks.
// n <= 0 keeps the default of runtime.NumCPU().
func WithComputeUnits(n int) Option {
	return func(p *Properties) {
		if n > 0 {
			p.ComputeUnits = n
		}
	}
}

func WithMaxThreadsPerBlock(n int) Option {
	return func(p *Properties) {
		if n > 0 {
			p.MaxThreadsPerBlock = n
		}
	}
}

func WithTotalMemory(bytes int64) Option {
	return func(p *Properties) { p.TotalMemory = bytes }
}

// LaunchStats accumulates what the device has executed since Open.
type LaunchStats struct {
	Launches int
	Blocks   int
	Threads  int
}

// Device is an emulated accelerator. It is safe for use by one host thread
// at a time, the way a device context usually is.
type Device struct {
	props Properties

	mu        sync.Mutex
	allocated int64
	live      int
	pending   []chan error
	stats     LaunchStats
}

// Open returns a device configured by opts.
func Open(opts ...Option) *Device {
	props := Properties{
		ComputeUnits:       runtime.NumCPU(),
		MaxThreadsPerBlock: DefaultMaxThreadsPerBlock,
		TotalMemory:        DefaultTotalMemory,
	}
	for _, opt := range opts {
		opt(&props)
	}
	if props.Name == "" {
		props.Name = fmt.Sprintf("emulated (%d compute units)", props.ComputeUnits)
	}
	return &Device{props: props}
}

func (d *Device) Properties() Properties {
	return d.props
}

// Allocated returns the number of bytes currently held by live buffers.
func (d *Device) Allocated() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocated
}

// LiveBuffers returns the number of buffers not yet freed.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

func (d *Device) Stats() LaunchStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}
