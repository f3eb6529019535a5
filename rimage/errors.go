package rimage

import "github.com/pkg/errors"

// Error kinds returned by buffer and filter operations. Compare with errors.Is; the returned
// errors wrap these with details about the offending operands.
var (
	// ErrShapeMismatch is returned when two operand buffers differ in dimensions.
	ErrShapeMismatch = errors.New("buffer shapes do not match")
	// ErrInvalidKernel is returned for empty, ragged, non-square, or even-sized kernels.
	ErrInvalidKernel = errors.New("invalid kernel")
	// ErrInvalidDimensions is returned when a buffer is requested with a non-positive dimension.
	ErrInvalidDimensions = errors.New("invalid buffer dimensions")
	// ErrIndexOutOfBounds signals an internal bug: a sample outside the buffer was addressed.
	ErrIndexOutOfBounds = errors.New("index out of bounds")
)

// NewShapeMismatchError is used when two buffers that must match do not.
func NewShapeMismatchError(a, b *Buffer) error {
	return errors.Wrapf(ErrShapeMismatch, "(%d %d %d) != (%d %d %d)",
		a.width, a.height, a.channels, b.width, b.height, b.channels)
}

// newIndexError is used when a read or write lands outside the buffer.
func newIndexError(b *Buffer, x, y, c int) error {
	return errors.Wrapf(ErrIndexOutOfBounds, "(%d, %d, %d) not in %dx%dx%d buffer",
		x, y, c, b.width, b.height, b.channels)
}

// recoverIndexError turns an out-of-bounds panic raised by At/Set into a returned error. Any
// other panic is re-raised.
func recoverIndexError(errp *error) {
	thePanic := recover()
	if thePanic == nil {
		return
	}
	if err, ok := thePanic.(error); ok && errors.Is(err, ErrIndexOutOfBounds) {
		*errp = err
		return
	}
	panic(thePanic)
}
