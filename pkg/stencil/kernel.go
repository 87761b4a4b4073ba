// Package stencil defines the 3x3 filters and the per-pixel reduction shared
// by every execution strategy.
package stencil

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go-stencil/pkg/raster"
)

// Filter selects which stencil a Kernel applies.
type Filter int

const (
	Blur Filter = iota + 1
	EdgeDetection
)

var ErrUnknownFilter = errors.New("stencil: unknown filter")

func (f Filter) String() string {
	switch f {
	case Blur:
		return "blur"
	case EdgeDetection:
		return "edge-detection"
	default:
		return fmt.Sprintf("filter(%d)", int(f))
	}
}

// ParseFilter maps a CLI selector ("1", "2", "blur", "edge") to a Filter.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "blur":
		return Blur, nil
	case "2", "edge", "edge-detection":
		return EdgeDetection, nil
	}
	return 0, fmt.Errorf("%w: %q (use 1 for blur, 2 for edge detection)", ErrUnknownFilter, s)
}

// Weights is a 3x3 integer weight matrix indexed [dy+1][dx+1].
type Weights [3][3]int

// Kernel is an immutable stencil definition. For EdgeDetection it carries
// the horizontal and vertical Sobel operators.
type Kernel struct {
	Filter Filter
	Gx     Weights
	Gy     Weights
}

// New builds the kernel for f.
func New(f Filter) (Kernel, error) {
	switch f {
	case Blur:
		return Kernel{Filter: Blur}, nil
	case EdgeDetection:
		return Kernel{
			Filter: EdgeDetection,
			Gx:     Weights{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}},
			Gy:     Weights{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}},
		}, nil
	}
	return Kernel{}, fmt.Errorf("%w: %d", ErrUnknownFilter, int(f))
}

// Interior reports whether (x, y) has a full 3x3 neighborhood.
func Interior(width, height, x, y int) bool {
	return x >= 1 && y >= 1 && x < width-1 && y < height-1
}

// InteriorCount returns the number of interior pixels of a width x height image.
func InteriorCount(width, height int) int {
	if width < 3 || height < 3 {
		return 0
	}
	return (width - 2) * (height - 2)
}

// Compute writes the filtered RGB sample for pixel (x, y) of the interleaved
// src buffer into the same position of dst. Border pixels are left untouched
// and false is returned.
func (k Kernel) Compute(dst, src []uint8, width, height, x, y int) bool {
	if !Interior(width, height, x, y) {
		return false
	}
	i := raster.Channels * (y*width + x)
	switch k.Filter {
	case Blur:
		k.blur(dst[i:i+raster.Channels], src, width, x, y)
	case EdgeDetection:
		k.gradient(dst[i:i+raster.Channels], src, width, x, y)
	default:
		panic(fmt.Sprintf("stencil: unknown filter %d", int(k.Filter)))
	}
	return true
}

// Apply computes pixel (x, y) of dst from src.
func (k Kernel) Apply(dst, src *raster.Image, x, y int) bool {
	return k.Compute(dst.Pix, src.Pix, src.Width, src.Height, x, y)
}

func (k Kernel) blur(out, src []uint8, width, x, y int) {
	var sum [raster.Channels]int
	for dy := -1; dy <= 1; dy++ {
		row := raster.Channels * ((y+dy)*width + x - 1)
		for dx := 0; dx < 3; dx++ {
			j := row + raster.Channels*dx
			sum[0] += int(src[j])
			sum[1] += int(src[j+1])
			sum[2] += int(src[j+2])
		}
	}
	for c := range sum {
		out[c] = uint8(sum[c] / 9)
	}
}

func (k Kernel) gradient(out, src []uint8, width, x, y int) {
	var gx, gy [raster.Channels]int
	for dy := -1; dy <= 1; dy++ {
		row := raster.Channels * ((y+dy)*width + x - 1)
		for dx := 0; dx < 3; dx++ {
			j := row + raster.Channels*dx
			wx, wy := k.Gx[dy+1][dx], k.Gy[dy+1][dx]
			for c := 0; c < raster.Channels; c++ {
				v := int(src[j+c])
				gx[c] += v * wx
				gy[c] += v * wy
			}
		}
	}
	for c := range gx {
		mag := math.Sqrt(float64(gx[c]*gx[c] + gy[c]*gy[c]))
		// Truncating conversion after saturation.
		out[c] = uint8(math.Min(mag, 255))
	}
}
