package stencil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stencil/pkg/raster"
)

func newImage(t *testing.T, w, h int) *raster.Image {
	t.Helper()
	img, err := raster.New(w, h)
	require.NoError(t, err)
	return img
}

func uniformImage(t *testing.T, w, h int, p raster.Pixel) *raster.Image {
	t.Helper()
	img := newImage(t, w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, p)
		}
	}
	return img
}

func mustKernel(t *testing.T, f Filter) Kernel {
	t.Helper()
	k, err := New(f)
	require.NoError(t, err)
	return k
}

// applyAll runs k over every pixel of src into a fresh image.
func applyAll(t *testing.T, k Kernel, src *raster.Image) *raster.Image {
	t.Helper()
	dst := newImage(t, src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			k.Apply(dst, src, x, y)
		}
	}
	return dst
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{"1": Blur, "blur": Blur, " 2 ": EdgeDetection, "EDGE": EdgeDetection} {
		got, err := ParseFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "0", "3", "sharpen"} {
		_, err := ParseFilter(in)
		assert.ErrorIs(t, err, ErrUnknownFilter, in)
	}
}

func TestNewUnknownFilter(t *testing.T) {
	_, err := New(Filter(7))
	assert.ErrorIs(t, err, ErrUnknownFilter)
	assert.Equal(t, "filter(7)", Filter(7).String())
}

func TestSobelWeights(t *testing.T) {
	k := mustKernel(t, EdgeDetection)
	assert.Equal(t, Weights{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}, k.Gx)
	assert.Equal(t, Weights{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}, k.Gy)
}

func TestInterior(t *testing.T) {
	assert.False(t, Interior(5, 5, 0, 2))
	assert.False(t, Interior(5, 5, 4, 2))
	assert.False(t, Interior(5, 5, 2, 0))
	assert.False(t, Interior(5, 5, 2, 4))
	assert.True(t, Interior(5, 5, 1, 3))
	assert.Equal(t, 9, InteriorCount(5, 5))
	assert.Equal(t, 0, InteriorCount(2, 10))
}

func TestEdgeDetectionWhite3x3(t *testing.T) {
	src := uniformImage(t, 3, 3, raster.Pixel{255, 255, 255})

	dst := applyAll(t, mustKernel(t, EdgeDetection), src)
	assert.Equal(t, raster.Pixel{0, 0, 0}, dst.At(1, 1))
}

func TestBlurAlternatingRows(t *testing.T) {
	src := newImage(t, 5, 5)
	for y := 1; y < 5; y += 2 {
		for x := 0; x < 5; x++ {
			src.Set(x, y, raster.Pixel{255, 255, 255})
		}
	}

	dst := applyAll(t, mustKernel(t, Blur), src)
	// Rows 1..3 around the center hold 255, 0, 255.
	want := uint8((6 * 255) / 9)
	assert.Equal(t, raster.Pixel{want, want, want}, dst.At(2, 2))
}

func TestUniformImage(t *testing.T) {
	src := uniformImage(t, 6, 5, raster.Pixel{12, 200, 77})

	blurred := applyAll(t, mustKernel(t, Blur), src)
	edges := applyAll(t, mustKernel(t, EdgeDetection), src)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			if !Interior(src.Width, src.Height, x, y) {
				assert.Equal(t, raster.Pixel{}, blurred.At(x, y), "border (%d,%d)", x, y)
				assert.Equal(t, raster.Pixel{}, edges.At(x, y), "border (%d,%d)", x, y)
				continue
			}
			assert.Equal(t, src.At(x, y), blurred.At(x, y), "interior (%d,%d)", x, y)
			assert.Equal(t, raster.Pixel{}, edges.At(x, y), "interior (%d,%d)", x, y)
		}
	}
}

func TestEdgeDetectionSaturates(t *testing.T) {
	src := newImage(t, 3, 3)
	for y := 0; y < 3; y++ {
		src.Set(1, y, raster.Pixel{255, 255, 255})
		src.Set(2, y, raster.Pixel{255, 255, 255})
	}

	dst := applyAll(t, mustKernel(t, EdgeDetection), src)
	assert.Equal(t, raster.Pixel{255, 255, 255}, dst.At(1, 1))
}

func TestEdgeDetectionTruncates(t *testing.T) {
	src := newImage(t, 3, 3)
	// Top-right sample only: gx = 11, gy = -11, magnitude 15.56.
	src.Set(2, 0, raster.Pixel{11, 0, 3})

	dst := applyAll(t, mustKernel(t, EdgeDetection), src)
	assert.Equal(t, raster.Pixel{15, 0, 4}, dst.At(1, 1))
}

func TestComputeSkipsBorder(t *testing.T) {
	k := mustKernel(t, Blur)
	src := uniformImage(t, 3, 3, raster.Pixel{90, 90, 90})
	dst := newImage(t, 3, 3)

	assert.False(t, k.Compute(dst.Pix, src.Pix, 3, 3, 0, 1))
	assert.True(t, k.Compute(dst.Pix, src.Pix, 3, 3, 1, 1))
	assert.Equal(t, raster.Pixel{}, dst.At(0, 1))
	assert.Equal(t, raster.Pixel{90, 90, 90}, dst.At(1, 1))
}

func TestComputeUnknownFilterPanics(t *testing.T) {
	src := newImage(t, 3, 3)
	assert.Panics(t, func() {
		Kernel{}.Compute(src.Pix, src.Pix, 3, 3, 1, 1)
	})
}
