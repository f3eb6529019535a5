// Package pipeline builds a chain of filters from a config and runs an image through it.
// Every step is run over horizontal bands, so a config's band count applies to all of them.
package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/imagefilter/config"
	"go.viam.com/imagefilter/logging"
	"go.viam.com/imagefilter/rimage"
	"go.viam.com/imagefilter/rimage/band"
)

type step struct {
	stepType string
	filter   band.Filter
}

// Pipeline is an ordered list of filters.
type Pipeline struct {
	steps    []step
	bands    int
	workers  int
	logger   logging.Logger
	progress rimage.Progress
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProgress reports band completions across the whole run: the total is the number of steps
// times the band count.
func WithProgress(progress rimage.Progress) Option {
	return func(p *Pipeline) {
		p.progress = progress
	}
}

// New builds a pipeline from cfg. Every step's attributes are checked up front so a bad config
// fails before any pixel is touched.
func New(cfg *config.Config, logger logging.Logger, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	p := &Pipeline{
		steps:   make([]step, 0, len(cfg.Pipeline)),
		bands:   cfg.BandCount(),
		workers: cfg.Workers,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	for idx, s := range cfg.Pipeline {
		constructor, ok := lookupStep(s.Type)
		if !ok {
			return nil, errors.Errorf("pipeline step %d has unknown type %q, expected one of %v", idx, s.Type, StepTypes())
		}
		filter, err := constructor(s.Attributes)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot build pipeline step %d (%s)", idx, s.Type)
		}
		p.steps = append(p.steps, step{stepType: s.Type, filter: filter})
	}
	return p, nil
}

// Len is the number of steps.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// Run feeds img through every step in order and returns the final buffer. img is not modified.
func (p *Pipeline) Run(ctx context.Context, img *rimage.Buffer) (*rimage.Buffer, error) {
	ctx, span := trace.StartSpan(ctx, "imagefilter::pipeline::Run")
	defer span.End()

	cur := img
	for idx, s := range p.steps {
		out, err := p.runStep(ctx, idx, s, cur)
		if err != nil {
			return nil, errors.Wrapf(err, "pipeline step %d (%s) failed", idx, s.stepType)
		}
		cur = out
	}
	return cur, nil
}

func (p *Pipeline) runStep(ctx context.Context, idx int, s step, img *rimage.Buffer) (*rimage.Buffer, error) {
	ctx, span := trace.StartSpan(ctx, "imagefilter::pipeline::"+s.stepType)
	defer span.End()

	opts := []band.Option{band.WithWorkers(p.workers)}
	if p.logger != nil {
		opts = append(opts, band.WithLogger(p.logger))
	}
	if p.progress != nil {
		offset := idx * p.bands
		total := len(p.steps) * p.bands
		opts = append(opts, band.WithProgress(rimage.ProgressFunc(func(current, _ int) {
			p.progress.Update(offset+current, total)
		})))
	}

	start := time.Now()
	out, err := band.PartitionedApply(ctx, img, s.filter, p.bands, opts...)
	if err != nil {
		return nil, err
	}
	if p.logger != nil {
		p.logger.Debugw("ran pipeline step",
			"step", idx,
			"type", s.stepType,
			"bands", p.bands,
			"duration", time.Since(start).String())
	}
	return out, nil
}
