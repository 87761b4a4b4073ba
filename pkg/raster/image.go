// Package raster holds interleaved 8-bit RGB images and reads and writes
// them as binary PPM (P6).
package raster

import (
	"errors"
	"fmt"
)

// Channels is the number of interleaved samples per pixel (R, G, B).
const Channels = 3

// MaxPixels caps width*height so a bogus header cannot trigger a huge allocation.
const MaxPixels = 1 << 28

var ErrInvalidDimensions = errors.New("raster: invalid dimensions")

// Pixel holds one RGB sample.
type Pixel [Channels]uint8

// Image is a row-major, interleaved RGB buffer.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed width x height image.
func New(width, height int) (*Image, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, Channels*width*height),
	}, nil
}

func checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if width > MaxPixels/height {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidDimensions, width, height, MaxPixels)
	}
	return nil
}

// Validate reports whether the buffer length matches the dimensions.
func (img *Image) Validate() error {
	if err := checkDimensions(img.Width, img.Height); err != nil {
		return err
	}
	if want := Channels * img.Width * img.Height; len(img.Pix) != want {
		return fmt.Errorf("%w: %dx%d needs %d samples, have %d",
			ErrInvalidDimensions, img.Width, img.Height, want, len(img.Pix))
	}
	return nil
}

// InBounds reports whether (x, y) lies inside the image.
func (img *Image) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < img.Width && y < img.Height
}

// Offset returns the index of the first channel of pixel (x, y) in Pix.
func (img *Image) Offset(x, y int) int {
	if !img.InBounds(x, y) {
		panic(fmt.Sprintf("raster: pixel (%d,%d) out of range %dx%d", x, y, img.Width, img.Height))
	}
	return Channels * (y*img.Width + x)
}

func (img *Image) At(x, y int) Pixel {
	i := img.Offset(x, y)
	return Pixel{img.Pix[i], img.Pix[i+1], img.Pix[i+2]}
}

func (img *Image) Set(x, y int, p Pixel) {
	i := img.Offset(x, y)
	copy(img.Pix[i:i+Channels], p[:])
}

// Clone returns a deep copy that shares no memory with img.
func (img *Image) Clone() *Image {
	pix := make([]uint8, len(img.Pix))
	copy(pix, img.Pix)
	return &Image{Width: img.Width, Height: img.Height, Pix: pix}
}

// SameSize reports whether both images have identical dimensions.
func (img *Image) SameSize(other *Image) bool {
	return img.Width == other.Width && img.Height == other.Height
}
