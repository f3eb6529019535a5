package utils

import (
	"context"
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ParallelFactor controls the default max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// WorkFunc runs for a single work item. The context is canceled once any other item fails.
type WorkFunc func(ctx context.Context, workNum int) error

// ParallelForEach runs f for every workNum in [0, totalSize) using at most workers goroutines
// at a time and blocks until all started work returns. Work that has not started yet is skipped
// once any item fails or ctx is done. A panic inside f is captured and returned as an error.
// The returned error is the first failure; callers wanting every failure should record them
// inside f.
func ParallelForEach(ctx context.Context, totalSize, workers int, f WorkFunc) error {
	if totalSize <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = ParallelFactor
	}
	if workers > totalSize {
		workers = totalSize
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for workNum := 0; workNum < totalSize; workNum++ {
		workNumCopy := workNum
		group.Go(func() (err error) {
			defer func() {
				if thePanic := recover(); thePanic != nil {
					err = panicToError(thePanic, workNumCopy)
				}
			}()
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}
			return f(groupCtx, workNumCopy)
		})
	}
	return group.Wait()
}

func panicToError(thePanic interface{}, workNum int) error {
	if err, ok := thePanic.(error); ok {
		return errors.Wrapf(err, "got panic running work item %d in parallel", workNum)
	}
	return fmt.Errorf("got panic running work item %d in parallel: %v", workNum, thePanic)
}
