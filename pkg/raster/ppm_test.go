package raster

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomImage(t *testing.T, w, h int, seed int64) *Image {
	t.Helper()
	img, err := New(w, h)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(seed))
	rng.Read(img.Pix)
	return img
}

func TestEncodeHeader(t *testing.T) {
	img, err := New(2, 1)
	require.NoError(t, err)
	img.Set(1, 0, Pixel{255, 0, 7})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img))
	assert.Equal(t, "P6\n2 1\n255\n\x00\x00\x00\xff\x00\x07", buf.String())
}

func TestRoundTrip(t *testing.T) {
	img := randomImage(t, 17, 9, 1)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img))
	got, err := Decode(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(img, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripFile(t *testing.T) {
	img := randomImage(t, 8, 8, 2)
	path := filepath.Join(t.TempDir(), "img.ppm")

	require.NoError(t, Save(path, img))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, got.Pix)
}

func TestDecodeFlexibleHeader(t *testing.T) {
	// Whitespace-tolerant header with a comment; pixel data starts right
	// after the single byte following the max value, even if it is a space.
	data := "P6 # made by hand\n1   1\r\n255\n \n\t"
	img, err := Decode(bytes.NewBufferString(data))
	require.NoError(t, err)
	assert.Equal(t, Pixel{' ', '\n', '\t'}, img.At(0, 0))
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want error
	}{
		{"ascii ppm", "P3\n1 1\n255\n0 0 0\n", ErrUnsupportedFormat},
		{"max value", "P6\n1 1\n65535\n\x00\x00\x00\x00\x00\x00", ErrUnsupportedMaxValue},
		{"zero max value", "P6\n1 1\n0\n\x00\x00\x00", ErrUnsupportedMaxValue},
		{"negative max value", "P6\n1 1\n-1\n\x00\x00\x00", ErrUnsupportedMaxValue},
		{"bad max value", "P6\n1 1\nff\n\x00\x00\x00", ErrMalformedHeader},
		{"bad width", "P6\nx 1\n255\n", ErrMalformedHeader},
		{"zero height", "P6\n1 0\n255\n", ErrMalformedHeader},
		{"empty", "", ErrMalformedHeader},
		{"missing maxval", "P6\n1 1", ErrMalformedHeader},
		{"short data", "P6\n2 2\n255\n\x01\x02\x03", ErrTruncated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(bytes.NewBufferString(tc.data))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ppm"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
