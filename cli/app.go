// Package cli contains the imagefilter command line application.
package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/imagefilter/config"
	"go.viam.com/imagefilter/logging"
	"go.viam.com/imagefilter/pipeline"
	"go.viam.com/imagefilter/rimage"
	"go.viam.com/imagefilter/utils"
)

const (
	// Global flags.
	flagBands    = "bands"
	flagWorkers  = "workers"
	flagDebug    = "debug"
	flagProgress = "progress"
	flagLogFile  = "log-file"

	// Command flags.
	flagInput      = "input"
	flagInput2     = "input2"
	flagOutput     = "output"
	flagFactor     = "factor"
	flagMid        = "mid"
	flagKernelSize = "kernel-size"
	flagSigma      = "sigma"
	flagKernel     = "kernel"
	flagConfig     = "config"

	edgesMagnitude = "magnitude"
)

// runner carries what every command needs once the global flags are parsed.
type runner struct {
	out     io.Writer
	errOut  io.Writer
	logger  logging.Logger
	logFile *logging.FileAppender
}

func inputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagInput,
		Aliases:  []string{"i"},
		Usage:    "image to read `FILE`",
		Required: true,
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagOutput,
		Aliases:  []string{"o"},
		Usage:    "image to write `FILE`; the format follows the extension",
		Required: true,
	}
}

// NewApp returns a new app with Writer set to out and ErrWriter set to errOut. Logs go to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	r := &runner{out: out, errOut: errOut}
	return &cli.App{
		Name:      "imagefilter",
		Usage:     "apply filters to images, optionally split across parallel bands",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  flagBands,
				Value: 1,
				Usage: "number of horizontal bands to filter in parallel",
			},
			&cli.IntFlag{
				Name:  flagWorkers,
				Usage: "max bands filtered at once (0 means one per available core)",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  flagProgress,
				Usage: "show a progress bar",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotated by size",
			},
		},
		Before: r.before,
		After:  r.after,
		Commands: []*cli.Command{
			{
				Name:  "brighten",
				Usage: "scale every sample by a factor",
				Flags: []cli.Flag{
					inputFlag(),
					outputFlag(),
					&cli.Float64Flag{Name: flagFactor, Usage: "above 1 brightens, below darkens", Required: true},
				},
				Action: func(c *cli.Context) error {
					return r.runStep(c, pipeline.StepBrighten, config.AttributeMap{"factor": c.Float64(flagFactor)})
				},
			},
			{
				Name:  "contrast",
				Usage: "stretch or compress samples around a midpoint",
				Flags: []cli.Flag{
					inputFlag(),
					outputFlag(),
					&cli.Float64Flag{Name: flagFactor, Usage: "above 1 increases contrast", Required: true},
					&cli.Float64Flag{Name: flagMid, Usage: "midpoint samples pivot around", Value: rimage.DefaultContrastMid},
				},
				Action: func(c *cli.Context) error {
					return r.runStep(c, pipeline.StepContrast, config.AttributeMap{
						"factor": c.Float64(flagFactor),
						"mid":    c.Float64(flagMid),
					})
				},
			},
			{
				Name:  "blur",
				Usage: "average every pixel over a square window",
				Flags: []cli.Flag{
					inputFlag(),
					outputFlag(),
					&cli.IntFlag{Name: flagKernelSize, Usage: "odd window side length", Value: 3},
				},
				Action: func(c *cli.Context) error {
					return r.runStep(c, pipeline.StepBlur, config.AttributeMap{"kernel_size": c.Int(flagKernelSize)})
				},
			},
			{
				Name:  "gaussian",
				Usage: "gaussian blur",
				Flags: []cli.Flag{
					inputFlag(),
					outputFlag(),
					&cli.Float64Flag{Name: flagSigma, Usage: "standard deviation in pixels", Value: 1},
				},
				Action: func(c *cli.Context) error {
					return r.runStep(c, pipeline.StepGaussianBlur, config.AttributeMap{"sigma": c.Float64(flagSigma)})
				},
			},
			{
				Name:  "edges",
				Usage: "convolve with an edge kernel",
				Flags: []cli.Flag{
					inputFlag(),
					outputFlag(),
					&cli.StringFlag{
						Name:  flagKernel,
						Usage: fmt.Sprintf("one of %s, %s, %s", pipeline.PresetSobelX, pipeline.PresetSobelY, edgesMagnitude),
						Value: edgesMagnitude,
					},
				},
				Action: r.edgesAction,
			},
			{
				Name:  "combine",
				Usage: "combine two images of the same size as sqrt(a^2 + b^2)",
				Flags: []cli.Flag{
					inputFlag(),
					&cli.StringFlag{Name: flagInput2, Usage: "second image `FILE`", Required: true},
					outputFlag(),
				},
				Action: r.combineAction,
			},
			{
				Name:  "run",
				Usage: "run the pipeline described by a config file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagConfig,
						Aliases:  []string{"c"},
						Usage:    "load configuration from `FILE`",
						Required: true,
					},
				},
				Action: r.runAction,
			},
			{
				Name:   "stats",
				Usage:  "print sample statistics of an image",
				Flags:  []cli.Flag{inputFlag()},
				Action: r.statsAction,
			},
		},
	}
}

func (r *runner) before(c *cli.Context) error {
	r.logger = logging.NewBlankLogger("imagefilter")
	r.logger.AddAppender(logging.NewWriterAppender(r.errOut))
	if path := c.String(flagLogFile); path != "" {
		r.logFile = logging.NewFileAppender(path)
		r.logger.AddAppender(r.logFile)
	}
	if c.Bool(flagDebug) {
		r.logger.SetLevel(logging.DEBUG)
	} else {
		r.logger.SetLevel(logging.INFO)
	}
	r.logHost()
	return nil
}

func (r *runner) after(c *cli.Context) error {
	if r.logFile == nil {
		return nil
	}
	err := multierr.Combine(r.logger.Sync(), r.logFile.Close())
	r.logFile = nil
	return err
}

// logHost records the machine's cores and memory at debug level.
func (r *runner) logHost() {
	if r.logger.GetLevel() > logging.DEBUG {
		return
	}
	keysAndValues := []interface{}{"parallel_factor", utils.ParallelFactor}
	if physical, err := cpu.Counts(false); err == nil {
		keysAndValues = append(keysAndValues, "physical_cores", physical)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		keysAndValues = append(keysAndValues,
			"memory_total", units.BytesSize(float64(vm.Total)),
			"memory_available", units.BytesSize(float64(vm.Available)))
	}
	r.logger.Debugw("host", keysAndValues...)
}

func (r *runner) baseConfig(c *cli.Context, steps ...config.Step) *config.Config {
	return &config.Config{
		Input:    c.String(flagInput),
		Output:   c.String(flagOutput),
		Bands:    c.Int(flagBands),
		Workers:  c.Int(flagWorkers),
		Pipeline: steps,
	}
}

func (r *runner) runStep(c *cli.Context, stepType string, attrs config.AttributeMap) error {
	return r.run(c, r.baseConfig(c, config.Step{Type: stepType, Attributes: attrs}))
}

func (r *runner) edgesAction(c *cli.Context) error {
	kernel := c.String(flagKernel)
	if kernel == edgesMagnitude {
		return r.run(c, r.baseConfig(c, config.Step{Type: pipeline.StepSobelMagnitude}))
	}
	return r.runStep(c, pipeline.StepEdgeDetect, config.AttributeMap{"preset": kernel})
}

func (r *runner) combineAction(c *cli.Context) error {
	img1, err := rimage.Load(c.String(flagInput))
	if err != nil {
		return err
	}
	img2, err := rimage.Load(c.String(flagInput2))
	if err != nil {
		return err
	}
	combined, err := rimage.CombineImages(img1, img2)
	if err != nil {
		return err
	}
	return r.save(combined, c.String(flagOutput))
}

func (r *runner) runAction(c *cli.Context) error {
	cfg, err := config.Read(c.String(flagConfig))
	if err != nil {
		return err
	}
	if c.IsSet(flagBands) {
		cfg.Bands = c.Int(flagBands)
	}
	if c.IsSet(flagWorkers) {
		cfg.Workers = c.Int(flagWorkers)
	}
	if !c.Bool(flagDebug) {
		level, err := cfg.Level()
		if err != nil {
			return err
		}
		r.logger.SetLevel(level)
	}
	if cfg.Input == "" {
		return goutils.NewConfigValidationFieldRequiredError(cfg.ConfigFilePath, "input")
	}
	if cfg.Output == "" {
		return goutils.NewConfigValidationFieldRequiredError(cfg.ConfigFilePath, "output")
	}
	return r.run(c, cfg)
}

func (r *runner) statsAction(c *cli.Context) error {
	img, err := rimage.Load(c.String(flagInput))
	if err != nil {
		return err
	}
	summary, err := rimage.Summarize(img)
	if err != nil {
		return err
	}
	return pterm.DefaultTable.
		WithHasHeader().
		WithWriter(r.out).
		WithData(pterm.TableData{
			{"width", "height", "channels", "min", "max", "mean", "stddev", "out of range"},
			{
				fmt.Sprint(img.Width()),
				fmt.Sprint(img.Height()),
				fmt.Sprint(img.Channels()),
				fmt.Sprintf("%.4f", summary.Min),
				fmt.Sprintf("%.4f", summary.Max),
				fmt.Sprintf("%.4f", summary.Mean),
				fmt.Sprintf("%.4f", summary.StdDev),
				fmt.Sprint(summary.OutOfRange),
			},
		}).
		Render()
}

func (r *runner) run(c *cli.Context, cfg *config.Config) (err error) {
	var opts []pipeline.Option
	if c.Bool(flagProgress) {
		bar := newProgressBar("filtering", r.errOut)
		defer func() {
			err = multierr.Combine(err, bar.Stop())
		}()
		opts = append(opts, pipeline.WithProgress(bar))
	}
	p, err := pipeline.New(cfg, r.logger.Sublogger("pipeline"), opts...)
	if err != nil {
		return err
	}

	img, err := rimage.Load(cfg.Input)
	if err != nil {
		return err
	}
	r.logger.Debugw("loaded image",
		"path", cfg.Input,
		"width", img.Width(),
		"height", img.Height(),
		"channels", img.Channels(),
		"buffer_size", units.BytesSize(float64(8*len(img.Data()))))

	start := time.Now()
	out, err := p.Run(c.Context, img)
	if err != nil {
		return err
	}
	r.logger.Infow("filtered image", "steps", p.Len(), "bands", cfg.BandCount(), "duration", time.Since(start).String())
	return r.save(out, cfg.Output)
}

func (r *runner) save(img *rimage.Buffer, path string) error {
	summary, err := rimage.Summarize(img)
	if err != nil {
		return err
	}
	if summary.OutOfRange > 0 {
		r.logger.Warnw("samples outside [0, 1] are clamped on save",
			"count", summary.OutOfRange,
			"min", summary.Min,
			"max", summary.Max)
	}
	if err := rimage.Save(img, path); err != nil {
		return errors.Wrapf(err, "cannot save %s", path)
	}
	pterm.Fprintln(r.out, pterm.Success.Sprint("wrote ", path))
	return nil
}
