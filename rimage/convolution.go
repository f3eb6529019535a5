package rimage

import (
	"github.com/pkg/errors"

	"go.viam.com/imagefilter/utils"
)

// Progress receives (current, total) updates during long loops. It must not affect the result.
type Progress interface {
	Update(current, total int)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(current, total int)

// Update implements Progress.
func (f ProgressFunc) Update(current, total int) {
	f(current, total)
}

// ApplyWindow reduces the clamped neighborhood of every pixel and channel of src with reducer
// and returns the result as a new buffer. progress may be nil.
func ApplyWindow(src *Buffer, reducer Reducer, progress Progress) (*Buffer, error) {
	dst := NewBufferLike(src)
	if err := ApplyWindowRows(src, dst, reducer, 0, src.height, progress); err != nil {
		return nil, err
	}
	return dst, nil
}

// ApplyWindowRows is like ApplyWindow but only computes output rows [y0, y1), writing them into
// dst, which must have src's shape. Neighborhoods still see every row of src, so the rows come
// out exactly as they would from a whole-image pass. On error dst may be partially written.
func ApplyWindowRows(src, dst *Buffer, reducer Reducer, y0, y1 int, progress Progress) (err error) {
	if !src.SameShape(dst) {
		return NewShapeMismatchError(src, dst)
	}
	if y0 < 0 || y1 > src.height || y0 > y1 {
		return errors.Wrapf(ErrIndexOutOfBounds, "row range [%d, %d) not in buffer of height %d", y0, y1, src.height)
	}
	r := reducer.Radius()
	if r < 0 {
		return errors.Wrapf(ErrInvalidKernel, "negative neighbor range %d", r)
	}
	defer recoverIndexError(&err)

	total := y1 - y0
	for y := y0; y < y1; y++ {
		for x := 0; x < src.width; x++ {
			w := Window{
				X:  x,
				Y:  y,
				X0: utils.MaxInt(0, x-r),
				X1: utils.MinInt(src.width-1, x+r),
				Y0: utils.MaxInt(0, y-r),
				Y1: utils.MinInt(src.height-1, y+r),
			}
			for c := 0; c < src.channels; c++ {
				dst.Set(x, y, c, reducer.Reduce(src, w, c))
			}
		}
		if progress != nil {
			progress.Update(y-y0+1, total)
		}
	}
	return nil
}

// BlurRadius validates a blur kernel size and returns its neighbor range.
func BlurRadius(kernelSize int) (int, error) {
	if kernelSize <= 0 || !utils.IsOdd(kernelSize) {
		return 0, errors.Wrapf(ErrInvalidKernel, "blur kernel size %d must be odd and positive", kernelSize)
	}
	return kernelSize / 2, nil
}

// Blur averages each pixel over a kernelSize x kernelSize window clamped at the image edges,
// dividing by the nominal window area. A kernelSize of 1 is the identity.
func Blur(img *Buffer, kernelSize int) (*Buffer, error) {
	r, err := BlurRadius(kernelSize)
	if err != nil {
		return nil, err
	}
	return ApplyWindow(img, NewMeanReducer(r), nil)
}

// EdgeDetect convolves every channel of img with kernel. Each channel keeps its own signed
// response.
func EdgeDetect(img *Buffer, kernel *Kernel) (*Buffer, error) {
	if kernel == nil {
		return nil, errors.Wrap(ErrInvalidKernel, "nil kernel")
	}
	return ApplyWindow(img, NewKernelReducer(kernel), nil)
}

// GaussianBlur convolves img with a normalized gaussian kernel of the given sigma.
func GaussianBlur(img *Buffer, sigma float64) (*Buffer, error) {
	kernel, err := GaussianKernel(sigma)
	if err != nil {
		return nil, err
	}
	return ApplyWindow(img, NewKernelReducer(kernel), nil)
}

// SobelMagnitude combines the x and y Sobel responses of img into a gradient magnitude.
func SobelMagnitude(img *Buffer) (*Buffer, error) {
	gx, err := EdgeDetect(img, SobelX())
	if err != nil {
		return nil, err
	}
	gy, err := EdgeDetect(img, SobelY())
	if err != nil {
		return nil, err
	}
	return CombineImages(gx, gy)
}
