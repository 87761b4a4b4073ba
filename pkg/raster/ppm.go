package raster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

const (
	ppmMagic    = "P6"
	ppmMaxValue = 255
	maxTokenLen = 32
)

var (
	ErrUnsupportedFormat   = errors.New("raster: unsupported format, want binary P6")
	ErrUnsupportedMaxValue = errors.New("raster: unsupported max color value, want 255")
	ErrMalformedHeader     = errors.New("raster: malformed header")
	ErrTruncated           = errors.New("raster: truncated pixel data")
)

// Decode reads a binary PPM (P6, maxval 255) image from r.
func Decode(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)

	magic, err := readToken(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if magic != ppmMagic {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedFormat, magic)
	}

	var dims [2]int
	for i, name := range []string{"width", "height"} {
		tok, err := readToken(br)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrMalformedHeader, name, err)
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: bad %s %q", ErrMalformedHeader, name, tok)
		}
		dims[i] = n
	}
	width, height := dims[0], dims[1]

	// Any well-formed number other than 255 is an unsupported max value.
	tok, err := readToken(br)
	if err != nil {
		return nil, fmt.Errorf("%w: reading max value: %v", ErrMalformedHeader, err)
	}
	maxValue, err := strconv.Atoi(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: bad max value %q", ErrMalformedHeader, tok)
	}
	if maxValue != ppmMaxValue {
		return nil, fmt.Errorf("%w: got %d", ErrUnsupportedMaxValue, maxValue)
	}

	img, err := New(width, height)
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(br, img.Pix); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return img, nil
}

// readToken skips leading whitespace and comments, then returns the next
// token. Exactly one trailing whitespace byte is consumed.
func readToken(br *bufio.Reader) (string, error) {
	var tok []byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && len(tok) > 0 {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		switch {
		case isSpace(c):
			if len(tok) > 0 {
				return string(tok), nil
			}
		case c == '#' && len(tok) == 0:
			if _, err := br.ReadBytes('\n'); err != nil {
				return "", err
			}
		default:
			if len(tok) == maxTokenLen {
				return "", fmt.Errorf("token longer than %d bytes", maxTokenLen)
			}
			tok = append(tok, c)
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// Encode writes img as a binary PPM.
func Encode(w io.Writer, img *Image) error {
	if err := img.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n%d\n", ppmMagic, img.Width, img.Height, ppmMaxValue); err != nil {
		return err
	}
	if _, err := bw.Write(img.Pix); err != nil {
		return err
	}
	return bw.Flush()
}

// Load reads a PPM image from path.
func Load(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// Save writes img to path, replacing any existing file.
func Save(path string, img *Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Close()
}
