// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/Zeeeepa/scalpel/pkg/parser"
	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x is optimal for mixed I/O and CGO workloads.
const DefaultWorkerMultiplier = 2

// Result pairs a per-file value with the error that produced it, keeping
// successes and failures index-aligned with the input slice.
type Result[T any] struct {
	Value T
	Err   error
}

// MapOrdered processes files in parallel, calling fn for each file with a
// dedicated parser. The returned slice is index-aligned with files, so
// callers consuming results in input order see a deterministic sequence no
// matter how the workers interleave. A cancelled or expired context marks
// the remaining files with the context error instead of processing them.
// If workers is <= 0, defaults to 2x NumCPU.
func MapOrdered[T any](ctx context.Context, files []string, workers int, fn func(*parser.Parser, string) (T, error)) []Result[T] {
	if len(files) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	results := make([]Result[T], len(files))

	p := pool.New().WithMaxGoroutines(workers)
	for i, path := range files {
		p.Go(func() {
			if err := ctx.Err(); err != nil {
				results[i] = Result[T]{Err: err}
				return
			}

			psr := parser.New()
			defer psr.Close()

			value, err := fn(psr, path)
			results[i] = Result[T]{Value: value, Err: err}
		})
	}
	p.Wait()

	return results
}

// ForEachOrdered processes files in parallel without a parser, for
// operations on raw file content. Results are index-aligned with files.
// If workers is <= 0, defaults to 2x NumCPU.
func ForEachOrdered[T any](ctx context.Context, files []string, workers int, fn func(string) (T, error)) []Result[T] {
	if len(files) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	results := make([]Result[T], len(files))

	p := pool.New().WithMaxGoroutines(workers)
	for i, path := range files {
		p.Go(func() {
			if err := ctx.Err(); err != nil {
				results[i] = Result[T]{Err: err}
				return
			}
			value, err := fn(path)
			results[i] = Result[T]{Value: value, Err: err}
		})
	}
	p.Wait()

	return results
}

// CollectErrors folds the failed entries of an ordered result slice into a
// ProcessingErrors, or nil when every file succeeded.
func CollectErrors[T any](files []string, results []Result[T]) *ProcessingErrors {
	errs := &ProcessingErrors{}
	for i, r := range results {
		if r.Err != nil {
			errs.Add(files[i], r.Err)
		}
	}
	if !errs.HasErrors() {
		return nil
	}
	return errs
}
