package rimage

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// Summary describes the distribution of every sample in a buffer. Filters do not clamp, so Min
// and Max show how far a result strays outside the displayable [0, 1] range.
type Summary struct {
	Min, Max, Mean, StdDev float64
	// OutOfRange counts samples below 0 or above 1.
	OutOfRange int
}

// Summarize computes a Summary over all samples of b.
func Summarize(b *Buffer) (Summary, error) {
	data := stats.Float64Data(b.data)
	var s Summary
	var err error
	if s.Min, err = data.Min(); err != nil {
		return Summary{}, errors.Wrap(err, "cannot summarize buffer")
	}
	if s.Max, err = data.Max(); err != nil {
		return Summary{}, errors.Wrap(err, "cannot summarize buffer")
	}
	if s.Mean, err = data.Mean(); err != nil {
		return Summary{}, errors.Wrap(err, "cannot summarize buffer")
	}
	if s.StdDev, err = data.StandardDeviation(); err != nil {
		return Summary{}, errors.Wrap(err, "cannot summarize buffer")
	}
	for _, v := range b.data {
		if v < 0 || v > 1 {
			s.OutOfRange++
		}
	}
	return s, nil
}
