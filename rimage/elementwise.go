package rimage

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"go.viam.com/imagefilter/utils"
)

// DefaultContrastMid is the midpoint AdjustContrast pivots around when the caller has no
// better value; it is the middle of the normalized [0, 1] sample range.
const DefaultContrastMid = 0.5

// Brighten scales every sample by factor. A factor above 1 brightens and one between 0 and 1
// darkens. Factors at or below zero are allowed and produce black or negative samples.
func Brighten(img *Buffer, factor float64) *Buffer {
	ret := img.Clone()
	floats.Scale(factor, ret.data)
	return ret
}

// AdjustContrast moves every sample away from (or toward) mid by factor:
// out = (in - mid) * factor + mid. Results are not clamped; keeping samples in a displayable
// range is left to whoever renders the buffer.
func AdjustContrast(img *Buffer, factor, mid float64) *Buffer {
	ret := img.Clone()
	// Expanded to in*factor + mid*(1-factor) so that a factor of 1 is exactly the identity.
	floats.Scale(factor, ret.data)
	floats.AddConst(mid*(1-factor), ret.data)
	return ret
}

// CombineImages returns the per sample euclidean combination sqrt(a^2 + b^2), e.g. the
// gradient magnitude of horizontal and vertical edge responses. Both buffers must have the
// same shape.
func CombineImages(img1, img2 *Buffer) (*Buffer, error) {
	if !img1.SameShape(img2) {
		return nil, NewShapeMismatchError(img1, img2)
	}
	ret := NewBufferLike(img1)
	for i, v := range img1.data {
		ret.data[i] = math.Sqrt(utils.Square(v) + utils.Square(img2.data[i]))
	}
	return ret, nil
}
