package strategy

import (
	"fmt"

	"go-stencil/pkg/device"
	"go-stencil/pkg/raster"
	"go-stencil/pkg/stencil"
)

// DefaultBlock is the thread-block shape used when none is configured.
var DefaultBlock = device.Dim2(16, 16)

// Device runs the stencil as a 2-D grid with one device thread per pixel.
type Device struct {
	dev   *device.Device
	block device.Dim3
}

func NewDevice(dev *device.Device, block device.Dim3) (*Device, error) {
	if block.Z == 0 {
		block.Z = 1
	}
	if block.X <= 0 || block.Y <= 0 || block.Z != 1 {
		return nil, fmt.Errorf("%w: block %v must be two-dimensional", device.ErrInvalidLaunch, block)
	}
	if limit := dev.Properties().MaxThreadsPerBlock; block.Size() > limit {
		return nil, fmt.Errorf("%w: block %v exceeds %d threads", device.ErrInvalidLaunch, block, limit)
	}
	return &Device{dev: dev, block: block}, nil
}

func (s *Device) Name() string {
	return NameDevice
}

// Apply performs the full host round trip: allocate, copy in, launch,
// synchronize, copy out, free.
func (s *Device) Apply(k stencil.Kernel, src *raster.Image) (out *raster.Image, usage Usage, err error) {
	width, height := src.Width, src.Height
	size := len(src.Pix)

	in, err := s.dev.Malloc(size)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("allocate input buffer: %w", err)
	}
	defer s.free(in, &err)

	result, err := s.dev.Malloc(size)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("allocate output buffer: %w", err)
	}
	defer s.free(result, &err)

	if err := s.dev.CopyToDevice(in, src.Pix); err != nil {
		return nil, Usage{}, fmt.Errorf("copy to device: %w", err)
	}

	srcDev, dstDev := in.Bytes(), result.Bytes()
	grid := device.GridFor(width, height, s.block)
	err = s.dev.Launch(grid, s.block, func(t device.ThreadID) {
		// Border and out-of-range threads return without writing.
		k.Compute(dstDev, srcDev, width, height, t.GlobalX(), t.GlobalY())
	})
	if err != nil {
		return nil, Usage{}, err
	}
	if err := s.dev.Synchronize(); err != nil {
		return nil, Usage{}, err
	}

	out, err = raster.New(width, height)
	if err != nil {
		return nil, Usage{}, err
	}
	if err := s.dev.CopyToHost(out.Pix, result); err != nil {
		return nil, Usage{}, fmt.Errorf("copy to host: %w", err)
	}

	usage = Usage{
		Workers: s.dev.Properties().ComputeUnits,
		Tasks:   grid.Size() * s.block.Size(),
	}
	return out, usage, nil
}

func (s *Device) free(b *device.Buffer, err *error) {
	if ferr := s.dev.Free(b); ferr != nil && *err == nil {
		*err = fmt.Errorf("free device buffer: %w", ferr)
	}
}
