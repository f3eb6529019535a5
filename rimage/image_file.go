package rimage

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	_ "golang.org/x/image/webp" // register webp
)

// Load reads an image file and converts it to a buffer. PNG, JPEG, GIF, TIFF, and BMP are
// handled by imaging (which also applies EXIF orientation); PPM, QOI and WebP are decoded
// through their registered codecs.
func Load(path string) (*Buffer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ppm", ".qoi", ".webp":
		img, err := decodeFile(path)
		if err != nil {
			return nil, err
		}
		return NewBufferFromImage(img), nil
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load %q", path)
	}
	return NewBufferFromImage(img), nil
}

func decodeFile(path string) (image.Image, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode %q", path)
	}
	return img, nil
}

// Save writes b to path, picking the format from the extension. Samples are clamped to [0, 1]
// on the way out; see ToImage.
func Save(b *Buffer, path string) (err error) {
	img := b.ToImage()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ppm", ".qoi":
	default:
		return errors.Wrapf(imaging.Save(img, path), "cannot save %q", path)
	}

	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if strings.EqualFold(filepath.Ext(path), ".ppm") {
		return ppm.Encode(f, img)
	}
	return qoi.Encode(f, img)
}
