package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.viam.com/test"

	"go.viam.com/imagefilter/config"
	"go.viam.com/imagefilter/logging"
	"go.viam.com/imagefilter/rimage"
	"go.viam.com/imagefilter/rimage/band"
)

func gradientBuffer(t *testing.T, width, height int) *rimage.Buffer {
	t.Helper()
	b, err := rimage.NewBuffer(width, height, 3)
	test.That(t, err, test.ShouldBeNil)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for c := 0; c < 3; c++ {
				b.Set(x, y, c, float64(x+y+c)/float64(width+height))
			}
		}
	}
	return b
}

func TestRunMatchesDirectCalls(t *testing.T) {
	img := gradientBuffer(t, 10, 12)
	cfg := &config.Config{
		Bands:   3,
		Workers: 2,
		Pipeline: []config.Step{
			{Type: StepBrighten, Attributes: config.AttributeMap{"factor": 1.5}},
			{Type: StepContrast, Attributes: config.AttributeMap{"factor": 2.0}},
			{Type: StepBlur, Attributes: config.AttributeMap{"kernel_size": 3.0}},
			{Type: StepEdgeDetect, Attributes: config.AttributeMap{"preset": PresetSobelX}},
		},
	}
	logger, logs := logging.NewObservedTestLogger(t)
	p, err := New(cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Len(), test.ShouldEqual, 4)

	out, err := p.Run(context.Background(), img)
	test.That(t, err, test.ShouldBeNil)

	expected := rimage.AdjustContrast(rimage.Brighten(img, 1.5), 2, rimage.DefaultContrastMid)
	expected, err = rimage.Blur(expected, 3)
	test.That(t, err, test.ShouldBeNil)
	expected, err = rimage.EdgeDetect(expected, rimage.SobelX())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Equal(expected), test.ShouldBeTrue)

	test.That(t, logs.FilterMessage("ran pipeline step").Len(), test.ShouldEqual, 4)
	test.That(t, logs.FilterMessage("filtered band").Len(), test.ShouldEqual, 12)
}

func TestRunProgress(t *testing.T) {
	img := gradientBuffer(t, 4, 6)
	cfg := &config.Config{
		Bands:   2,
		Workers: 1,
		Pipeline: []config.Step{
			{Type: StepGaussianBlur, Attributes: config.AttributeMap{"sigma": 0.5}},
			{Type: StepSobelMagnitude},
		},
	}
	var mu sync.Mutex
	var updates [][2]int
	p, err := New(cfg, nil, WithProgress(rimage.ProgressFunc(func(current, total int) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, [2]int{current, total})
	})))
	test.That(t, err, test.ShouldBeNil)
	_, err = p.Run(context.Background(), img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, updates, test.ShouldResemble, [][2]int{{1, 4}, {2, 4}, {3, 4}, {4, 4}})
}

func TestNewErrors(t *testing.T) {
	for _, tc := range []struct {
		name        string
		step        config.Step
		errContains string
	}{
		{"unknown type", config.Step{Type: "sharpen"}, `unknown type "sharpen"`},
		{"missing factor", config.Step{Type: StepBrighten}, `"factor" is required`},
		{"missing contrast factor", config.Step{Type: StepContrast, Attributes: config.AttributeMap{"mid": 0.2}}, `"factor" is required`},
		{"unknown attribute", config.Step{Type: StepBrighten, Attributes: config.AttributeMap{"factr": 2.0}}, "factr"},
		{"missing kernel size", config.Step{Type: StepBlur}, `"kernel_size" is required`},
		{"even kernel size", config.Step{Type: StepBlur, Attributes: config.AttributeMap{"kernel_size": 4.0}}, "kernel"},
		{"bad sigma", config.Step{Type: StepGaussianBlur, Attributes: config.AttributeMap{"sigma": -1.0}}, "sigma"},
		{"no kernel", config.Step{Type: StepEdgeDetect}, `"kernel" is required`},
		{
			"kernel and preset",
			config.Step{Type: StepEdgeDetect, Attributes: config.AttributeMap{
				"preset": PresetSobelY,
				"kernel": []interface{}{[]interface{}{1.0}},
			}},
			"not both",
		},
		{"unknown preset", config.Step{Type: StepEdgeDetect, Attributes: config.AttributeMap{"preset": "laplace"}}, "laplace"},
		{
			"ragged kernel",
			config.Step{Type: StepEdgeDetect, Attributes: config.AttributeMap{
				"kernel": []interface{}{[]interface{}{1.0, 0.0, 1.0}, []interface{}{1.0}, []interface{}{1.0, 0.0, 1.0}},
			}},
			"kernel",
		},
		{"sobel magnitude attribute", config.Step{Type: StepSobelMagnitude, Attributes: config.AttributeMap{"x": 1}}, "sobel_magnitude"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := New(&config.Config{Pipeline: []config.Step{tc.step}}, logging.NewTestLogger(t))
			test.That(t, p, test.ShouldBeNil)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errContains)
		})
	}

	_, err := New(&config.Config{}, nil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"pipeline" is required`)
}

func TestEdgeDetectCustomKernel(t *testing.T) {
	img := gradientBuffer(t, 5, 5)
	cfg := &config.Config{Pipeline: []config.Step{{
		Type: StepEdgeDetect,
		Attributes: config.AttributeMap{
			"kernel": []interface{}{
				[]interface{}{0.0, 0.0, 0.0},
				[]interface{}{0.0, 1.0, 0.0},
				[]interface{}{0.0, 0.0, 0.0},
			},
		},
	}}}
	p, err := New(cfg, nil)
	test.That(t, err, test.ShouldBeNil)
	out, err := p.Run(context.Background(), img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Equal(img), test.ShouldBeTrue)

	box := &config.Config{Pipeline: []config.Step{{
		Type:       StepEdgeDetect,
		Attributes: config.AttributeMap{"preset": PresetBox, "box_size": 3.0},
	}}}
	p, err = New(box, nil)
	test.That(t, err, test.ShouldBeNil)
	out, err = p.Run(context.Background(), img)
	test.That(t, err, test.ShouldBeNil)
	blurred, err := rimage.Blur(img, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.EqualWithin(blurred, 1e-12), test.ShouldBeTrue)
}

func TestRunTooManyBands(t *testing.T) {
	img := gradientBuffer(t, 4, 2)
	cfg := &config.Config{
		Bands:    3,
		Pipeline: []config.Step{{Type: StepSobelMagnitude}},
	}
	p, err := New(cfg, nil)
	test.That(t, err, test.ShouldBeNil)
	out, err := p.Run(context.Background(), img)
	test.That(t, out, test.ShouldBeNil)
	test.That(t, errors.Is(err, band.ErrPartition), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "pipeline step 0 (sobel_magnitude) failed")
}

func TestRegisterStep(t *testing.T) {
	RegisterStep("invert", func(am config.AttributeMap) (band.Filter, error) {
		return band.PointFilter("invert", func(img *rimage.Buffer) *rimage.Buffer {
			return img.Map(func(v float64) float64 { return 1 - v })
		}), nil
	})
	test.That(t, StepTypes(), test.ShouldContain, "invert")

	img := gradientBuffer(t, 3, 3)
	p, err := New(&config.Config{Pipeline: []config.Step{{Type: "invert"}, {Type: "invert"}}}, nil)
	test.That(t, err, test.ShouldBeNil)
	out, err := p.Run(context.Background(), img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.EqualWithin(img, 1e-12), test.ShouldBeTrue)
}
