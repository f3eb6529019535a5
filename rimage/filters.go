package rimage

// Window is a neighborhood around the pixel (X, Y) clamped to the buffer. The bounds are
// inclusive: columns X0..X1 and rows Y0..Y1. Clamping truncates the window at the image edges;
// nothing is padded or wrapped.
type Window struct {
	X, Y   int
	X0, X1 int
	Y0, Y1 int
}

// Samples is the number of in-bounds pixels covered by the window.
func (w Window) Samples() int {
	return (w.X1 - w.X0 + 1) * (w.Y1 - w.Y0 + 1)
}

// Reducer turns a clamped neighborhood of one channel into a single output sample.
type Reducer interface {
	// Radius is the neighbor range r; the nominal window is (2r+1) x (2r+1).
	Radius() int
	Reduce(src *Buffer, w Window, c int) float64
}

// MeanReducer averages a window by dividing its sum by the nominal window area (2r+1)^2, not by
// the number of in-bounds samples. Windows clipped by the image edges therefore come out darker
// than interior ones.
type MeanReducer struct {
	radius int
	area   float64
}

// NewMeanReducer returns a MeanReducer over a (2r+1) x (2r+1) window.
func NewMeanReducer(radius int) *MeanReducer {
	side := float64(2*radius + 1)
	return &MeanReducer{radius: radius, area: side * side}
}

// Radius implements Reducer.
func (mr *MeanReducer) Radius() int {
	return mr.radius
}

// Reduce implements Reducer.
func (mr *MeanReducer) Reduce(src *Buffer, w Window, c int) float64 {
	total := 0.0
	for yi := w.Y0; yi <= w.Y1; yi++ {
		for xi := w.X0; xi <= w.X1; xi++ {
			total += src.At(xi, yi, c)
		}
	}
	return total / mr.area
}

// KernelReducer computes the kernel weighted sum of a window. The kernel center is aligned with
// the window's pixel and weights falling outside the image are skipped. No normalization is
// applied, so the result is signed and scaled by the kernel's own weights.
type KernelReducer struct {
	kernel *Kernel
}

// NewKernelReducer returns a KernelReducer for k.
func NewKernelReducer(k *Kernel) *KernelReducer {
	return &KernelReducer{kernel: k}
}

// Radius implements Reducer.
func (kr *KernelReducer) Radius() int {
	return kr.kernel.Radius()
}

// Reduce implements Reducer.
func (kr *KernelReducer) Reduce(src *Buffer, w Window, c int) float64 {
	r := kr.kernel.Radius()
	total := 0.0
	for yi := w.Y0; yi <= w.Y1; yi++ {
		for xi := w.X0; xi <= w.X1; xi++ {
			total += src.At(xi, yi, c) * kr.kernel.At(xi-w.X+r, yi-w.Y+r)
		}
	}
	return total
}
