package rimage

import (
	"errors"
	"testing"

	"go.viam.com/test"
)

// rampBuffer fills every sample with a distinct value so misplaced rows or channels show up.
func rampBuffer(t *testing.T, width, height, channels int) *Buffer {
	t.Helper()
	b, err := NewBuffer(width, height, channels)
	test.That(t, err, test.ShouldBeNil)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for c := 0; c < channels; c++ {
				b.Set(x, y, c, float64(y*100+x)+float64(c)/10)
			}
		}
	}
	return b
}

func TestNewBuffer(t *testing.T) {
	b, err := NewBuffer(4, 3, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.Width(), test.ShouldEqual, 4)
	test.That(t, b.Height(), test.ShouldEqual, 3)
	test.That(t, b.Channels(), test.ShouldEqual, 2)
	test.That(t, b.Data(), test.ShouldHaveLength, 24)
	for _, v := range b.Data() {
		test.That(t, v, test.ShouldEqual, 0.)
	}

	for _, dims := range [][3]int{{0, 1, 1}, {1, -1, 1}, {1, 1, 0}} {
		_, err := NewBuffer(dims[0], dims[1], dims[2])
		test.That(t, errors.Is(err, ErrInvalidDimensions), test.ShouldBeTrue)
	}

	_, err = NewBufferFromData(2, 2, 1, []float64{1, 2, 3})
	test.That(t, errors.Is(err, ErrInvalidDimensions), test.ShouldBeTrue)
	b, err = NewBufferFromData(2, 1, 1, []float64{1, 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.At(1, 0, 0), test.ShouldEqual, 2.)
}

func TestBufferIndexing(t *testing.T) {
	b := rampBuffer(t, 3, 2, 2)
	test.That(t, b.At(2, 1, 1), test.ShouldEqual, 102.1)
	v, err := b.Get(0, 1, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 100.)

	for _, idx := range [][3]int{{3, 0, 0}, {0, 2, 0}, {0, 0, 2}, {-1, 0, 0}} {
		_, err := b.Get(idx[0], idx[1], idx[2])
		test.That(t, errors.Is(err, ErrIndexOutOfBounds), test.ShouldBeTrue)
		test.That(t, func() { b.At(idx[0], idx[1], idx[2]) }, test.ShouldPanic)
		test.That(t, func() { b.Set(idx[0], idx[1], idx[2], 1) }, test.ShouldPanic)
	}
}

func TestBufferRows(t *testing.T) {
	b := rampBuffer(t, 3, 5, 2)
	rows, err := b.Rows(1, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rows.Height(), test.ShouldEqual, 2)
	test.That(t, rows.At(2, 0, 1), test.ShouldEqual, b.At(2, 1, 1))
	test.That(t, rows.At(0, 1, 0), test.ShouldEqual, b.At(0, 2, 0))

	// rows are a copy
	rows.Set(0, 0, 0, -1)
	test.That(t, b.At(0, 1, 0), test.ShouldEqual, 100.)

	_, err = b.Rows(3, 6)
	test.That(t, errors.Is(err, ErrIndexOutOfBounds), test.ShouldBeTrue)
	_, err = b.Rows(2, 2)
	test.That(t, errors.Is(err, ErrIndexOutOfBounds), test.ShouldBeTrue)

	dst := NewBufferLike(b)
	test.That(t, dst.SetRows(4, rows), test.ShouldNotBeNil)
	test.That(t, dst.SetRows(3, rows), test.ShouldBeNil)
	test.That(t, dst.At(0, 3, 0), test.ShouldEqual, -1.)
	test.That(t, dst.At(2, 4, 1), test.ShouldEqual, b.At(2, 2, 1))
	test.That(t, dst.At(2, 2, 1), test.ShouldEqual, 0.)

	narrow := rampBuffer(t, 2, 1, 2)
	test.That(t, errors.Is(dst.SetRows(0, narrow), ErrShapeMismatch), test.ShouldBeTrue)
}

func TestBufferCloneEqualMap(t *testing.T) {
	b := rampBuffer(t, 2, 2, 1)
	clone := b.Clone()
	test.That(t, clone.Equal(b), test.ShouldBeTrue)
	clone.Set(1, 1, 0, 1e-9+clone.At(1, 1, 0))
	test.That(t, clone.Equal(b), test.ShouldBeFalse)
	test.That(t, clone.EqualWithin(b, 1e-6), test.ShouldBeTrue)
	test.That(t, b.Equal(rampBuffer(t, 2, 2, 2)), test.ShouldBeFalse)

	doubled := b.Map(func(v float64) float64 { return 2 * v })
	test.That(t, doubled.At(1, 1, 0), test.ShouldEqual, 202.)
	test.That(t, b.At(1, 1, 0), test.ShouldEqual, 101.)
}
