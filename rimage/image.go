package rimage

import (
	"image"
	"image/color"

	"go.viam.com/imagefilter/utils"
)

// NewBufferFromImage converts img into a buffer with samples normalized to [0, 1]. Gray images
// get 1 channel, opaque color images 3 (R, G, B), and images that can carry alpha 4
// (R, G, B, A), with color channels non-premultiplied.
func NewBufferFromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	channels := channelsFor(img)
	ret := newBuffer(width, height, channels)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := img.At(x+bounds.Min.X, y+bounds.Min.Y)
			switch channels {
			case 1:
				g := color.Gray16Model.Convert(c).(color.Gray16)
				ret.Set(x, y, 0, float64(g.Y)/0xffff)
			default:
				n := nrgba64At(img, x+bounds.Min.X, y+bounds.Min.Y, c)
				ret.Set(x, y, 0, float64(n.R)/0xffff)
				ret.Set(x, y, 1, float64(n.G)/0xffff)
				ret.Set(x, y, 2, float64(n.B)/0xffff)
				if channels == 4 {
					ret.Set(x, y, 3, float64(n.A)/0xffff)
				}
			}
		}
	}
	return ret
}

// nrgba64At reads non-premultiplied images directly so fully transparent pixels keep their color.
func nrgba64At(img image.Image, x, y int, c color.Color) color.NRGBA64 {
	switch im := img.(type) {
	case *image.NRGBA:
		n := im.NRGBAAt(x, y)
		return color.NRGBA64{R: uint16(n.R) * 0x101, G: uint16(n.G) * 0x101, B: uint16(n.B) * 0x101, A: uint16(n.A) * 0x101}
	case *image.NRGBA64:
		return im.NRGBA64At(x, y)
	}
	return color.NRGBA64Model.Convert(c).(color.NRGBA64)
}

func channelsFor(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case *image.YCbCr, *image.CMYK:
		return 3
	}
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return 3
	}
	return 4
}

// ToImage renders b as an image. Samples are clamped to [0, 1] for display only; b itself is
// left untouched. 1 channel renders as *image.Gray16, 2 as gray plus alpha, 3 and 4 as
// *image.NRGBA64; any further channels are ignored.
func (b *Buffer) ToImage() image.Image {
	rect := image.Rect(0, 0, b.width, b.height)
	if b.channels == 1 {
		ret := image.NewGray16(rect)
		for y := 0; y < b.height; y++ {
			for x := 0; x < b.width; x++ {
				ret.SetGray16(x, y, color.Gray16{Y: toUint16(b.At(x, y, 0))})
			}
		}
		return ret
	}

	ret := image.NewNRGBA64(rect)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			var c color.NRGBA64
			if b.channels == 2 {
				g := toUint16(b.At(x, y, 0))
				c = color.NRGBA64{R: g, G: g, B: g, A: toUint16(b.At(x, y, 1))}
			} else {
				c = color.NRGBA64{
					R: toUint16(b.At(x, y, 0)),
					G: toUint16(b.At(x, y, 1)),
					B: toUint16(b.At(x, y, 2)),
					A: 0xffff,
				}
				if b.channels > 3 {
					c.A = toUint16(b.At(x, y, 3))
				}
			}
			ret.SetNRGBA64(x, y, c)
		}
	}
	return ret
}

func toUint16(v float64) uint16 {
	return uint16(utils.ClampF64(v, 0, 1)*0xffff + .5)
}
