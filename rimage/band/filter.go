package band

import (
	"go.viam.com/imagefilter/rimage"
)

// Filter is a buffer-in/buffer-out operation whose output pixel depends on input rows at most
// Radius rows away. PartitionedApply uses Radius to pad each band with context rows.
type Filter interface {
	Name() string
	Radius() int
	Apply(img *rimage.Buffer) (*rimage.Buffer, error)
}

type funcFilter struct {
	name   string
	radius int
	apply  func(img *rimage.Buffer) (*rimage.Buffer, error)
}

func (f *funcFilter) Name() string {
	return f.name
}

func (f *funcFilter) Radius() int {
	return f.radius
}

func (f *funcFilter) Apply(img *rimage.Buffer) (*rimage.Buffer, error) {
	return f.apply(img)
}

// NewFilter wraps apply as a Filter reading at most radius rows away from each output row.
func NewFilter(name string, radius int, apply func(img *rimage.Buffer) (*rimage.Buffer, error)) Filter {
	return &funcFilter{name: name, radius: radius, apply: apply}
}

// PointFilter wraps a per sample operation, which needs no context rows.
func PointFilter(name string, apply func(img *rimage.Buffer) *rimage.Buffer) Filter {
	return NewFilter(name, 0, func(img *rimage.Buffer) (*rimage.Buffer, error) {
		return apply(img), nil
	})
}

// BlurFilter is rimage.Blur as a Filter. An invalid kernelSize is reported by Apply.
func BlurFilter(kernelSize int) Filter {
	radius := 0
	if kernelSize > 0 {
		radius = kernelSize / 2
	}
	return NewFilter("blur", radius, func(img *rimage.Buffer) (*rimage.Buffer, error) {
		return rimage.Blur(img, kernelSize)
	})
}

// EdgeFilter is rimage.EdgeDetect as a Filter. A nil kernel is reported by Apply.
func EdgeFilter(kernel *rimage.Kernel) Filter {
	radius := 0
	if kernel != nil {
		radius = kernel.Radius()
	}
	return NewFilter("edge_detect", radius, func(img *rimage.Buffer) (*rimage.Buffer, error) {
		return rimage.EdgeDetect(img, kernel)
	})
}

// GaussianFilter is rimage.GaussianBlur as a Filter. An invalid sigma is reported by Apply.
func GaussianFilter(sigma float64) Filter {
	radius := 0
	if kernel, err := rimage.GaussianKernel(sigma); err == nil {
		radius = kernel.Radius()
	}
	return NewFilter("gaussian_blur", radius, func(img *rimage.Buffer) (*rimage.Buffer, error) {
		return rimage.GaussianBlur(img, sigma)
	})
}

// SobelMagnitudeFilter is rimage.SobelMagnitude as a Filter.
func SobelMagnitudeFilter() Filter {
	return NewFilter("sobel_magnitude", rimage.SobelX().Radius(), rimage.SobelMagnitude)
}
