package pipeline

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"go.viam.com/imagefilter/config"
	"go.viam.com/imagefilter/rimage"
	"go.viam.com/imagefilter/rimage/band"
)

// StepConstructor builds a filter from a step's attributes.
type StepConstructor func(am config.AttributeMap) (band.Filter, error)

// the step types that are supported.
const (
	StepBrighten       = "brighten"
	StepContrast       = "contrast"
	StepBlur           = "blur"
	StepGaussianBlur   = "gaussian_blur"
	StepEdgeDetect     = "edge_detect"
	StepSobelMagnitude = "sobel_magnitude"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]StepConstructor{
		StepBrighten:       newBrightenStep,
		StepContrast:       newContrastStep,
		StepBlur:           newBlurStep,
		StepGaussianBlur:   newGaussianBlurStep,
		StepEdgeDetect:     newEdgeDetectStep,
		StepSobelMagnitude: newSobelMagnitudeStep,
	}
)

// RegisterStep makes a step type available to New. Registering an existing type replaces it.
func RegisterStep(stepType string, constructor StepConstructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[stepType] = constructor
}

// StepTypes lists the registered step types in sorted order.
func StepTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := lo.Keys(registry)
	sort.Strings(types)
	return types
}

func lookupStep(stepType string) (StepConstructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	constructor, ok := registry[stepType]
	return constructor, ok
}

// brightenConfig are the attributes for a brighten step.
type brightenConfig struct {
	Factor float64 `json:"factor"`
}

func newBrightenStep(am config.AttributeMap) (band.Filter, error) {
	conf, err := config.DecodeAttributes[brightenConfig](am)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse brighten attribute map")
	}
	if !am.Has("factor") {
		return nil, utils.NewConfigValidationFieldRequiredError(StepBrighten, "factor")
	}
	return band.PointFilter(StepBrighten, func(img *rimage.Buffer) *rimage.Buffer {
		return rimage.Brighten(img, conf.Factor)
	}), nil
}

// contrastConfig are the attributes for a contrast step.
type contrastConfig struct {
	Factor float64 `json:"factor"`
	Mid    float64 `json:"mid"`
}

func newContrastStep(am config.AttributeMap) (band.Filter, error) {
	conf, err := config.DecodeAttributes[contrastConfig](am)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse contrast attribute map")
	}
	if !am.Has("factor") {
		return nil, utils.NewConfigValidationFieldRequiredError(StepContrast, "factor")
	}
	if !am.Has("mid") {
		conf.Mid = rimage.DefaultContrastMid
	}
	return band.PointFilter(StepContrast, func(img *rimage.Buffer) *rimage.Buffer {
		return rimage.AdjustContrast(img, conf.Factor, conf.Mid)
	}), nil
}

// blurConfig are the attributes for a blur step.
type blurConfig struct {
	KernelSize int `json:"kernel_size"`
}

func newBlurStep(am config.AttributeMap) (band.Filter, error) {
	conf, err := config.DecodeAttributes[blurConfig](am)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse blur attribute map")
	}
	if !am.Has("kernel_size") {
		return nil, utils.NewConfigValidationFieldRequiredError(StepBlur, "kernel_size")
	}
	if _, err := rimage.BlurRadius(conf.KernelSize); err != nil {
		return nil, err
	}
	return band.BlurFilter(conf.KernelSize), nil
}

// gaussianBlurConfig are the attributes for a gaussian_blur step.
type gaussianBlurConfig struct {
	Sigma float64 `json:"sigma"`
}

func newGaussianBlurStep(am config.AttributeMap) (band.Filter, error) {
	conf, err := config.DecodeAttributes[gaussianBlurConfig](am)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse gaussian_blur attribute map")
	}
	if !am.Has("sigma") {
		return nil, utils.NewConfigValidationFieldRequiredError(StepGaussianBlur, "sigma")
	}
	if _, err := rimage.GaussianKernel(conf.Sigma); err != nil {
		return nil, err
	}
	return band.GaussianFilter(conf.Sigma), nil
}

// edgeDetectConfig are the attributes for an edge_detect step. Exactly one of Kernel or Preset
// is given; BoxSize only applies to the box preset.
type edgeDetectConfig struct {
	Kernel  [][]float64 `json:"kernel"`
	Preset  string      `json:"preset"`
	BoxSize int         `json:"box_size"`
}

// kernel presets for edge_detect.
const (
	PresetSobelX = "sobel_x"
	PresetSobelY = "sobel_y"
	PresetBox    = "box"
)

func newEdgeDetectStep(am config.AttributeMap) (band.Filter, error) {
	conf, err := config.DecodeAttributes[edgeDetectConfig](am)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse edge_detect attribute map")
	}
	kernel, err := conf.kernel()
	if err != nil {
		return nil, err
	}
	return band.EdgeFilter(kernel), nil
}

func (conf *edgeDetectConfig) kernel() (*rimage.Kernel, error) {
	switch {
	case conf.Kernel != nil && conf.Preset != "":
		return nil, errors.New("edge_detect takes either kernel or preset, not both")
	case conf.Kernel != nil:
		return rimage.NewKernel(conf.Kernel)
	}
	switch conf.Preset {
	case PresetSobelX:
		return rimage.SobelX(), nil
	case PresetSobelY:
		return rimage.SobelY(), nil
	case PresetBox:
		size := conf.BoxSize
		if size == 0 {
			size = 3
		}
		return rimage.BoxKernel(size)
	case "":
		return nil, utils.NewConfigValidationFieldRequiredError(StepEdgeDetect, "kernel")
	default:
		return nil, errors.Errorf("unknown edge_detect preset %q", conf.Preset)
	}
}

func newSobelMagnitudeStep(am config.AttributeMap) (band.Filter, error) {
	if _, err := config.DecodeAttributes[struct{}](am); err != nil {
		return nil, errors.Wrap(err, "cannot parse sobel_magnitude attribute map")
	}
	return band.SobelMagnitudeFilter(), nil
}
