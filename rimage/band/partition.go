// Package band splits an image into horizontal bands and filters them in parallel.
//
// Every band is copied together with up to r rows of context from its neighbors, where r is the
// filter's radius, filtered on its own, and cropped back to its core rows. Clamping inside a band
// therefore only ever happens at the real image edges and the stitched result equals a single
// whole-image pass.
package band

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"

	"go.viam.com/imagefilter/logging"
	"go.viam.com/imagefilter/rimage"
	"go.viam.com/imagefilter/utils"
)

// ErrPartition is returned when an image cannot be split into the requested number of bands.
var ErrPartition = errors.New("cannot partition image")

// Band is a horizontal slice of rows [Start, Start+Height) plus PadTop rows of context above and
// PadBottom rows below.
type Band struct {
	Index     int
	Start     int
	Height    int
	PadTop    int
	PadBottom int
}

// End is one past the last core row.
func (b Band) End() int {
	return b.Start + b.Height
}

// PaddedStart is the first row copied for the band, context included.
func (b Band) PaddedStart() int {
	return b.Start - b.PadTop
}

// PaddedEnd is one past the last row copied for the band, context included.
func (b Band) PaddedEnd() int {
	return b.End() + b.PadBottom
}

// Partition splits height rows into bandCount bands of height/bandCount rows each; the
// remaining height%bandCount rows go to the last band. Each band is padded with up to radius
// context rows on either side, clipped at the image edges.
func Partition(height, bandCount, radius int) ([]Band, error) {
	if bandCount <= 0 {
		return nil, errors.Wrapf(ErrPartition, "band count must be positive, got %d", bandCount)
	}
	if height < bandCount {
		return nil, errors.Wrapf(ErrPartition, "%d rows cannot form %d non-empty bands", height, bandCount)
	}
	if radius < 0 {
		return nil, errors.Wrapf(ErrPartition, "negative context radius %d", radius)
	}

	bandHeight := height / bandCount
	extra := height % bandCount
	bands := make([]Band, bandCount)
	for i := range bands {
		b := Band{Index: i, Start: i * bandHeight, Height: bandHeight}
		if i == bandCount-1 {
			b.Height += extra
		}
		b.PadTop = utils.MinInt(radius, b.Start)
		b.PadBottom = utils.MinInt(radius, height-b.End())
		bands[i] = b
	}
	return bands, nil
}

// BandError reports the failure of a single band.
type BandError struct {
	Band Band
	Err  error
}

func (e *BandError) Error() string {
	return fmt.Sprintf("band %d (rows %d-%d): %v", e.Band.Index, e.Band.Start, e.Band.End(), e.Err)
}

// Unwrap returns the band's underlying error.
func (e *BandError) Unwrap() error {
	return e.Err
}

type options struct {
	workers  int
	progress rimage.Progress
	logger   logging.Logger
}

// Option configures PartitionedApply.
type Option func(*options)

// WithWorkers bounds how many bands are filtered at once. It defaults to utils.ParallelFactor
// and is independent of the band count.
func WithWorkers(workers int) Option {
	return func(o *options) {
		o.workers = workers
	}
}

// WithProgress reports (bands done, band count) as bands finish.
func WithProgress(progress rimage.Progress) Option {
	return func(o *options) {
		o.progress = progress
	}
}

// WithLogger logs per band timings at debug level.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// PartitionedApply runs filter over bandCount horizontal bands of img in parallel and stitches
// the results into a new buffer. Band k's output always lands in band k's rows regardless of the
// order in which bands finish. If any band fails, bands that have not started are skipped and
// the failures are returned together as *BandError values; no partial image is returned.
func PartitionedApply(
	ctx context.Context,
	img *rimage.Buffer,
	filter Filter,
	bandCount int,
	opts ...Option,
) (*rimage.Buffer, error) {
	ctx, span := trace.StartSpan(ctx, "imagefilter::band::PartitionedApply")
	defer span.End()

	o := options{workers: utils.ParallelFactor}
	for _, opt := range opts {
		opt(&o)
	}

	bands, err := Partition(img.Height(), bandCount, filter.Radius())
	if err != nil {
		return nil, err
	}

	outputs := make([]*rimage.Buffer, len(bands))
	bandErrs := make([]error, len(bands))
	var progressMu sync.Mutex
	done := 0

	err = utils.ParallelForEach(ctx, len(bands), o.workers, func(ctx context.Context, workNum int) error {
		b := bands[workNum]
		out, err := applyBand(ctx, img, filter, b, o.logger)
		if err != nil {
			bandErrs[workNum] = &BandError{Band: b, Err: err}
			return bandErrs[workNum]
		}
		outputs[workNum] = out

		if o.progress != nil {
			progressMu.Lock()
			done++
			o.progress.Update(done, len(bands))
			progressMu.Unlock()
		}
		return nil
	})
	if err != nil {
		if combined := multierr.Combine(bandErrs...); combined != nil {
			return nil, combined
		}
		return nil, err
	}

	result := rimage.NewBufferLike(img)
	for i, b := range bands {
		if err := result.SetRows(b.Start, outputs[i]); err != nil {
			return nil, &BandError{Band: b, Err: err}
		}
	}
	return result, nil
}

// applyBand filters a padded copy of b's rows and crops the context rows back off.
func applyBand(
	ctx context.Context,
	img *rimage.Buffer,
	filter Filter,
	b Band,
	logger logging.Logger,
) (out *rimage.Buffer, err error) {
	_, span := trace.StartSpan(ctx, "imagefilter::band::applyBand")
	defer span.End()
	span.AddAttributes(trace.Int64Attribute("band", int64(b.Index)), trace.StringAttribute("filter", filter.Name()))

	defer func() {
		if thePanic := recover(); thePanic != nil {
			out = nil
			if panicErr, ok := thePanic.(error); ok {
				err = errors.Wrap(panicErr, "got panic filtering band")
			} else {
				err = errors.Errorf("got panic filtering band: %v", thePanic)
			}
		}
	}()

	start := time.Now()
	padded, err := img.Rows(b.PaddedStart(), b.PaddedEnd())
	if err != nil {
		return nil, err
	}
	filtered, err := filter.Apply(padded)
	if err != nil {
		return nil, err
	}
	if !filtered.SameShape(padded) {
		return nil, rimage.NewShapeMismatchError(padded, filtered)
	}
	core, err := filtered.Rows(b.PadTop, b.PadTop+b.Height)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debugw("filtered band",
			"filter", filter.Name(),
			"band", b.Index,
			"rows", fmt.Sprintf("%d-%d", b.Start, b.End()),
			"context_rows", b.PadTop+b.PadBottom,
			"duration", time.Since(start).String())
	}
	return core, nil
}
