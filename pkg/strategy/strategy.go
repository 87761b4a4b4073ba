// Package strategy holds the interchangeable drivers that run a stencil
// kernel over every interior pixel of an image.
package strategy

import (
	"go-stencil/pkg/raster"
	"go-stencil/pkg/stencil"
)

const (
	NameSequential = "sequential"
	NameParallel   = "parallel"
	NameDevice     = "device"
)

// Names lists the strategies in their default benchmark order.
var Names = []string{NameSequential, NameParallel, NameDevice}

// Usage reports the resources a strategy run used.
type Usage struct {
	// Workers is the number of threads or compute units that ran.
	Workers int
	// Tasks is the number of scheduled work units (pixels, batches,
	// tiles or device threads).
	Tasks int
}

// Strategy applies a kernel to src and returns a new image. src is never
// modified.
type Strategy interface {
	Name() string
	Apply(k stencil.Kernel, src *raster.Image) (*raster.Image, Usage, error)
}
