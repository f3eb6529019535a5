package rimage

import (
	"github.com/pkg/errors"

	"go.viam.com/imagefilter/utils"
)

// Buffer is a dense width x height x channels array of float64 samples. Samples are stored
// row-major with channels interleaved. Filters never mutate their input Buffer; each returns a
// freshly allocated one.
type Buffer struct {
	data                    []float64
	width, height, channels int
}

// NewBuffer returns a zero filled buffer.
func NewBuffer(width, height, channels int) (*Buffer, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%dx%d", width, height, channels)
	}
	return newBuffer(width, height, channels), nil
}

// NewBufferFromData wraps data, which must hold exactly width*height*channels samples. The
// buffer takes ownership of data.
func NewBufferFromData(width, height, channels int, data []float64) (*Buffer, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%dx%d", width, height, channels)
	}
	if len(data) != width*height*channels {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%dx%d needs %d samples but got %d",
			width, height, channels, width*height*channels, len(data))
	}
	return &Buffer{data: data, width: width, height: height, channels: channels}, nil
}

// newBuffer skips validation for callers that copy the shape of an existing buffer.
func newBuffer(width, height, channels int) *Buffer {
	return &Buffer{
		data:     make([]float64, width*height*channels),
		width:    width,
		height:   height,
		channels: channels,
	}
}

// NewBufferLike returns a zero filled buffer with the same shape as b.
func NewBufferLike(b *Buffer) *Buffer {
	return newBuffer(b.width, b.height, b.channels)
}

// Width is the number of columns.
func (b *Buffer) Width() int {
	return b.width
}

// Height is the number of rows.
func (b *Buffer) Height() int {
	return b.height
}

// Channels is the number of samples per pixel.
func (b *Buffer) Channels() int {
	return b.channels
}

// Data exposes the underlying row-major store.
func (b *Buffer) Data() []float64 {
	return b.data
}

// In reports whether (x, y, c) addresses a sample of b.
func (b *Buffer) In(x, y, c int) bool {
	return x >= 0 && y >= 0 && c >= 0 && x < b.width && y < b.height && c < b.channels
}

func (b *Buffer) kxyc(x, y, c int) int {
	return (y*b.width+x)*b.channels + c
}

// At returns the sample at column x, row y, channel c. It panics with an error wrapping
// ErrIndexOutOfBounds when the index is outside the buffer.
func (b *Buffer) At(x, y, c int) float64 {
	if !b.In(x, y, c) {
		panic(newIndexError(b, x, y, c))
	}
	return b.data[b.kxyc(x, y, c)]
}

// Get is the non-panicking form of At.
func (b *Buffer) Get(x, y, c int) (float64, error) {
	if !b.In(x, y, c) {
		return 0, newIndexError(b, x, y, c)
	}
	return b.data[b.kxyc(x, y, c)], nil
}

// Set writes the sample at column x, row y, channel c. It panics like At.
func (b *Buffer) Set(x, y, c int, v float64) {
	if !b.In(x, y, c) {
		panic(newIndexError(b, x, y, c))
	}
	b.data[b.kxyc(x, y, c)] = v
}

// SameShape reports whether b and other have identical dimensions.
func (b *Buffer) SameShape(other *Buffer) bool {
	return b.width == other.width && b.height == other.height && b.channels == other.channels
}

// Clone returns a deep copy of b.
func (b *Buffer) Clone() *Buffer {
	ret := NewBufferLike(b)
	copy(ret.data, b.data)
	return ret
}

// Equal reports whether b and other have the same shape and bit-identical samples.
func (b *Buffer) Equal(other *Buffer) bool {
	return b.EqualWithin(other, 0)
}

// EqualWithin reports whether b and other have the same shape and every sample differs by at
// most epsilon.
func (b *Buffer) EqualWithin(other *Buffer, epsilon float64) bool {
	if !b.SameShape(other) {
		return false
	}
	for i, v := range b.data {
		if !utils.NearlyEqual(v, other.data[i], epsilon) {
			return false
		}
	}
	return true
}

// Rows copies rows [y0, y1) into a new buffer of height y1-y0.
func (b *Buffer) Rows(y0, y1 int) (*Buffer, error) {
	if y0 < 0 || y1 > b.height || y0 >= y1 {
		return nil, errors.Wrapf(ErrIndexOutOfBounds, "row range [%d, %d) not in buffer of height %d", y0, y1, b.height)
	}
	ret := newBuffer(b.width, y1-y0, b.channels)
	copy(ret.data, b.data[b.kxyc(0, y0, 0):b.kxyc(0, y1, 0)])
	return ret, nil
}

// SetRows copies all of src into b starting at row y0. src must have b's width and channel count.
func (b *Buffer) SetRows(y0 int, src *Buffer) error {
	if src.width != b.width || src.channels != b.channels {
		return NewShapeMismatchError(b, src)
	}
	if y0 < 0 || y0+src.height > b.height {
		return errors.Wrapf(ErrIndexOutOfBounds, "rows [%d, %d) not in buffer of height %d", y0, y0+src.height, b.height)
	}
	copy(b.data[b.kxyc(0, y0, 0):], src.data)
	return nil
}

// Map returns a new buffer holding fn applied to every sample of b.
func (b *Buffer) Map(fn func(v float64) float64) *Buffer {
	ret := NewBufferLike(b)
	for i, v := range b.data {
		ret.data[i] = fn(v)
	}
	return ret
}
