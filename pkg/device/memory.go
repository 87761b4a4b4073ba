package device

import "fmt"

// Buffer is a region of device memory.
type Buffer struct {
	dev  *Device
	data []uint8
}

// Len returns the buffer size in bytes, or 0 once freed.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Bytes exposes the device-side storage. It is meant to be captured by
// kernels; host code moves data with CopyToDevice and CopyToHost.
func (b *Buffer) Bytes() []uint8 {
	return b.data
}

// Malloc reserves size bytes of zeroed device memory.
func (d *Device) Malloc(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.props.TotalMemory > 0 && d.allocated+int64(size) > d.props.TotalMemory {
		return nil, fmt.Errorf("%w: %d bytes requested, %d of %d in use",
			ErrOutOfMemory, size, d.allocated, d.props.TotalMemory)
	}
	d.allocated += int64(size)
	d.live++
	return &Buffer{dev: d, data: make([]uint8, size)}, nil
}

// Free releases b. Freeing twice returns ErrFreed.
func (d *Device) Free(b *Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b.data == nil {
		return ErrFreed
	}
	if b.dev != d {
		return fmt.Errorf("device: buffer belongs to %s", b.dev.props.Name)
	}
	d.allocated -= int64(b.Len())
	d.live--
	b.data = nil
	return nil
}

// CopyToDevice copies the whole of src into dst.
func (d *Device) CopyToDevice(dst *Buffer, src []uint8) error {
	if err := d.checkCopy(dst, len(src)); err != nil {
		return err
	}
	copy(dst.data, src)
	return nil
}

// CopyToHost copies the whole of src into dst.
func (d *Device) CopyToHost(dst []uint8, src *Buffer) error {
	if err := d.checkCopy(src, len(dst)); err != nil {
		return err
	}
	copy(dst, src.data)
	return nil
}

func (d *Device) checkCopy(b *Buffer, n int) error {
	if b.data == nil {
		return ErrFreed
	}
	if b.Len() != n {
		return fmt.Errorf("%w: device buffer %d bytes, host %d bytes", ErrSizeMismatch, b.Len(), n)
	}
	return nil
}
