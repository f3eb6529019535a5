package rimage

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/imagefilter/utils"
)

// Kernel is a square matrix of weights with an odd side length 2r+1. The center weight lines up
// with the pixel being computed.
type Kernel struct {
	weights *mat.Dense
	size    int
}

// NewKernel builds a Kernel from rows of weights. rows[ky][kx] is the weight applied to the
// neighbor ky-r rows and kx-r columns away from the center.
func NewKernel(rows [][]float64) (*Kernel, error) {
	size := len(rows)
	if size == 0 {
		return nil, errors.Wrap(ErrInvalidKernel, "kernel has no rows")
	}
	if !utils.IsOdd(size) {
		return nil, errors.Wrapf(ErrInvalidKernel, "kernel side length %d is even", size)
	}
	flat := make([]float64, 0, size*size)
	for i, row := range rows {
		if len(row) != size {
			return nil, errors.Wrapf(ErrInvalidKernel, "kernel is not square: row %d has %d weights, want %d", i, len(row), size)
		}
		flat = append(flat, row...)
	}
	return &Kernel{weights: mat.NewDense(size, size, flat), size: size}, nil
}

// NewKernelFromDense wraps an existing square matrix, which must have an odd side length.
func NewKernelFromDense(m *mat.Dense) (*Kernel, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.Wrapf(ErrInvalidKernel, "kernel is not square: %dx%d", r, c)
	}
	if !utils.IsOdd(r) {
		return nil, errors.Wrapf(ErrInvalidKernel, "kernel side length %d is even", r)
	}
	return &Kernel{weights: mat.DenseCopyOf(m), size: r}, nil
}

// Size is the side length of the kernel.
func (k *Kernel) Size() int {
	return k.size
}

// Radius is the neighbor range r of a 2r+1 kernel.
func (k *Kernel) Radius() int {
	return k.size / 2
}

// At returns the weight at column kx, row ky.
func (k *Kernel) At(kx, ky int) float64 {
	return k.weights.At(ky, kx)
}

// Sum returns the total of all weights.
func (k *Kernel) Sum() float64 {
	return mat.Sum(k.weights)
}

// Dense returns a copy of the weights.
func (k *Kernel) Dense() *mat.Dense {
	return mat.DenseCopyOf(k.weights)
}

func mustKernel(rows [][]float64) *Kernel {
	k, err := NewKernel(rows)
	if err != nil {
		panic(err)
	}
	return k
}

// SobelX returns the Sobel kernel in the x direction. It responds to changes along a row,
// i.e. vertical edges.
func SobelX() *Kernel {
	return mustKernel([][]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	})
}

// SobelY returns the Sobel kernel in the y direction. It responds to changes along a column,
// i.e. horizontal edges.
func SobelY() *Kernel {
	return mustKernel([][]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	})
}

// BoxKernel returns a size x size kernel whose weights are all 1/size^2.
func BoxKernel(size int) (*Kernel, error) {
	if size <= 0 || !utils.IsOdd(size) {
		return nil, errors.Wrapf(ErrInvalidKernel, "box kernel size %d must be odd and positive", size)
	}
	flat := make([]float64, size*size)
	for i := range flat {
		flat[i] = 1 / float64(size*size)
	}
	return &Kernel{weights: mat.NewDense(size, size, flat), size: size}, nil
}

// Helper function for building kernels, When used with i, dx := range makeRangeArray(n)
// i is the position within the kernel and dx gives the offset from the center.
// Only odd lengths are used here, e.g. 5 -> {-2, -1, 0, 1, 2}.
func makeRangeArray(length int) []int {
	if length <= 0 {
		return make([]int, 0)
	}
	rangeArray := make([]int, length)
	span := (length - 1) / 2
	for i := 0; i < length; i++ {
		rangeArray[i] = i - span
	}
	return rangeArray
}

// GaussianFunction2D takes in a sigma and returns an isotropic 2D gaussian.
func GaussianFunction2D(sigma float64) func(p1, p2 float64) float64 {
	return func(p1, p2 float64) float64 {
		return math.Exp(-0.5*(p1*p1+p2*p2)/(sigma*sigma)) / (sigma * sigma * 2. * math.Pi)
	}
}

// GaussianKernel returns a normalized gaussian kernel. The size of the kernel is determined by
// sigma so that it covers 4 sigma worth of the gaussian function, with a minimum of 3.
func GaussianKernel(sigma float64) (*Kernel, error) {
	if sigma <= 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return nil, errors.Wrapf(ErrInvalidKernel, "gaussian sigma must be positive, got %v", sigma)
	}
	gaus2D := GaussianFunction2D(sigma)
	k := utils.MaxInt(3, 1+2*int(math.Ceil(4.*sigma)))
	xRange := makeRangeArray(k)
	weights := mat.NewDense(k, k, nil)
	for j, y := range xRange {
		for i, x := range xRange {
			weights.Set(j, i, gaus2D(float64(x), float64(y)))
		}
	}
	weights.Scale(1/mat.Sum(weights), weights)
	return &Kernel{weights: weights, size: k}, nil
}
