package rimage

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.viam.com/test"
)

func constantBuffer(t *testing.T, width, height, channels int, v float64) *Buffer {
	t.Helper()
	b, err := NewBuffer(width, height, channels)
	test.That(t, err, test.ShouldBeNil)
	for i := range b.Data() {
		b.Data()[i] = v
	}
	return b
}

func TestBlurNominalArea(t *testing.T) {
	img := constantBuffer(t, 3, 3, 1, 10)
	blurred, err := Blur(img, 3)
	test.That(t, err, test.ShouldBeNil)

	// The center sees the full 3x3 window.
	test.That(t, blurred.At(1, 1, 0), test.ShouldAlmostEqual, 10.)
	// Corners only see 4 in-bounds pixels but still divide by 9.
	for _, corner := range [][2]int{{0, 0}, {2, 0}, {0, 2}, {2, 2}} {
		test.That(t, blurred.At(corner[0], corner[1], 0), test.ShouldAlmostEqual, 40./9)
	}
	// Edges see 6.
	test.That(t, blurred.At(1, 0, 0), test.ShouldAlmostEqual, 60./9)
	test.That(t, blurred.At(0, 1, 0), test.ShouldAlmostEqual, 60./9)
	// input untouched
	test.That(t, img.At(0, 0, 0), test.ShouldEqual, 10.)
}

func TestBlurIdentity(t *testing.T) {
	img := rampBuffer(t, 5, 4, 3)
	blurred, err := Blur(img, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, blurred.Equal(img), test.ShouldBeTrue)
	test.That(t, blurred == img, test.ShouldBeFalse)
}

func TestBlurInvalidSize(t *testing.T) {
	img := rampBuffer(t, 3, 3, 1)
	for _, size := range []int{0, -3, 2, 4} {
		out, err := Blur(img, size)
		test.That(t, errors.Is(err, ErrInvalidKernel), test.ShouldBeTrue)
		test.That(t, out, test.ShouldBeNil)
	}
}

func TestBlurLargerThanImage(t *testing.T) {
	img := constantBuffer(t, 2, 2, 1, 9)
	blurred, err := Blur(img, 5)
	test.That(t, err, test.ShouldBeNil)
	for _, v := range blurred.Data() {
		test.That(t, v, test.ShouldAlmostEqual, 36./25)
	}
}

func TestBlurMatchesBoxKernel(t *testing.T) {
	img := rampBuffer(t, 6, 5, 2)
	blurred, err := Blur(img, 3)
	test.That(t, err, test.ShouldBeNil)
	box, err := BoxKernel(3)
	test.That(t, err, test.ShouldBeNil)
	convolved, err := EdgeDetect(img, box)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, cmp.Equal(blurred.Data(), convolved.Data(), cmpopts.EquateApprox(0, 1e-9)), test.ShouldBeTrue)
}

func TestEdgeDetectZeroKernel(t *testing.T) {
	img := rampBuffer(t, 4, 4, 3)
	zero, err := NewKernel([][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}})
	test.That(t, err, test.ShouldBeNil)
	out, err := EdgeDetect(img, zero)
	test.That(t, err, test.ShouldBeNil)
	for _, v := range out.Data() {
		test.That(t, v, test.ShouldEqual, 0.)
	}

	_, err = EdgeDetect(img, nil)
	test.That(t, errors.Is(err, ErrInvalidKernel), test.ShouldBeTrue)
}

func TestEdgeDetectSobel(t *testing.T) {
	// left half 0, right half 1: a vertical edge between columns 1 and 2
	img := constantBuffer(t, 4, 3, 1, 0)
	for y := 0; y < 3; y++ {
		img.Set(2, y, 0, 1)
		img.Set(3, y, 0, 1)
	}

	gx, err := EdgeDetect(img, SobelX())
	test.That(t, err, test.ShouldBeNil)
	// interior pixel next to the edge sees the full kernel: 1 + 2 + 1
	test.That(t, gx.At(1, 1, 0), test.ShouldEqual, 4.)
	test.That(t, gx.At(2, 1, 0), test.ShouldEqual, 4.)
	// top row loses the kernel's first row to clamping
	test.That(t, gx.At(1, 0, 0), test.ShouldEqual, 3.)
	// flat regions far from the edge only respond because of the clamped right border
	test.That(t, gx.At(3, 1, 0), test.ShouldEqual, -4.)

	gy, err := EdgeDetect(img, SobelY())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gy.At(1, 1, 0), test.ShouldEqual, 0.)
}

func TestEdgeDetectChannelsIndependent(t *testing.T) {
	img := constantBuffer(t, 3, 3, 2, 0)
	img.Set(2, 1, 0, 1)
	img.Set(0, 1, 1, 1)

	out, err := EdgeDetect(img, SobelX())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.At(1, 1, 0), test.ShouldEqual, 2.)
	test.That(t, out.At(1, 1, 1), test.ShouldEqual, -2.)
}

func TestGaussianBlur(t *testing.T) {
	img := constantBuffer(t, 20, 20, 1, 1)
	out, err := GaussianBlur(img, 1)
	test.That(t, err, test.ShouldBeNil)
	// away from the borders a normalized kernel keeps a flat image flat
	test.That(t, out.At(10, 10, 0), test.ShouldAlmostEqual, 1.)
	test.That(t, out.At(0, 0, 0), test.ShouldBeLessThan, 1.)

	_, err = GaussianBlur(img, -1)
	test.That(t, errors.Is(err, ErrInvalidKernel), test.ShouldBeTrue)
}

func TestSobelMagnitude(t *testing.T) {
	img := constantBuffer(t, 4, 3, 1, 0)
	for y := 0; y < 3; y++ {
		img.Set(2, y, 0, 1)
		img.Set(3, y, 0, 1)
	}
	mag, err := SobelMagnitude(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mag.At(1, 1, 0), test.ShouldAlmostEqual, 4.)
	for _, v := range mag.Data() {
		test.That(t, v, test.ShouldBeGreaterThanOrEqualTo, 0.)
	}
}

func TestApplyWindowRows(t *testing.T) {
	img := rampBuffer(t, 5, 6, 2)
	full, err := ApplyWindow(img, NewMeanReducer(1), nil)
	test.That(t, err, test.ShouldBeNil)

	var updates [][2]int
	progress := ProgressFunc(func(current, total int) {
		updates = append(updates, [2]int{current, total})
	})
	dst := NewBufferLike(img)
	test.That(t, ApplyWindowRows(img, dst, NewMeanReducer(1), 2, 4, progress), test.ShouldBeNil)
	test.That(t, updates, test.ShouldResemble, [][2]int{{1, 2}, {2, 2}})
	for y := 0; y < 6; y++ {
		for x := 0; x < 5; x++ {
			for c := 0; c < 2; c++ {
				if y >= 2 && y < 4 {
					test.That(t, dst.At(x, y, c), test.ShouldEqual, full.At(x, y, c))
				} else {
					test.That(t, dst.At(x, y, c), test.ShouldEqual, 0.)
				}
			}
		}
	}

	err = ApplyWindowRows(img, dst, NewMeanReducer(1), 4, 7, nil)
	test.That(t, errors.Is(err, ErrIndexOutOfBounds), test.ShouldBeTrue)
	err = ApplyWindowRows(img, rampBuffer(t, 5, 5, 2), NewMeanReducer(1), 0, 1, nil)
	test.That(t, errors.Is(err, ErrShapeMismatch), test.ShouldBeTrue)
}

// strayReducer reads outside its window to exercise the out-of-bounds guard.
type strayReducer struct{}

func (strayReducer) Radius() int {
	return 0
}

func (strayReducer) Reduce(src *Buffer, w Window, c int) float64 {
	return src.At(w.X+src.Width(), w.Y, c)
}

func TestApplyWindowIndexOutOfBounds(t *testing.T) {
	img := rampBuffer(t, 2, 2, 1)
	out, err := ApplyWindow(img, strayReducer{}, nil)
	test.That(t, out, test.ShouldBeNil)
	test.That(t, errors.Is(err, ErrIndexOutOfBounds), test.ShouldBeTrue)
}

func TestWindowSamples(t *testing.T) {
	test.That(t, Window{X0: 0, X1: 1, Y0: 0, Y1: 1}.Samples(), test.ShouldEqual, 4)
	test.That(t, Window{X0: 2, X1: 2, Y0: 5, Y1: 7}.Samples(), test.ShouldEqual, 3)
}
