package strategy

import (
	"go-stencil/pkg/raster"
	"go-stencil/pkg/stencil"
)

// Sequential is the single-threaded baseline.
type Sequential struct{}

func NewSequential() *Sequential {
	return &Sequential{}
}

func (s *Sequential) Name() string {
	return NameSequential
}

func (s *Sequential) Apply(k stencil.Kernel, src *raster.Image) (*raster.Image, Usage, error) {
	dst, err := raster.New(src.Width, src.Height)
	if err != nil {
		return nil, Usage{}, err
	}
	for y := 1; y < src.Height-1; y++ {
		for x := 1; x < src.Width-1; x++ {
			k.Apply(dst, src, x, y)
		}
	}
	return dst, Usage{Workers: 1, Tasks: stencil.InteriorCount(src.Width, src.Height)}, nil
}
