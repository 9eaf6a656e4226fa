package batch

import (
	"context"
	"runtime"
	"sync"
)

type fileJob struct {
	index int
	path  string
}

type fileResult struct {
	index  int
	result FileResult
}

// runPool applies fn to every path with a bounded worker pool. Results come
// back in input order. Cancelling ctx stops dispatch; the context error is
// returned together with whatever finished.
func runPool(
	ctx context.Context,
	paths []string,
	workers int,
	progress ProgressCallback,
	fn func(context.Context, string) FileResult,
) ([]FileResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, max(len(paths), 1))
	if progress == nil {
		progress = NoOpProgressCallback{}
	}

	progress.OnStart(len(paths))
	defer progress.OnComplete()

	jobs := make(chan fileJob)
	results := make(chan fileResult, len(paths))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go worker(ctx, jobs, results, &wg, fn)
	}

	go func() {
		defer close(jobs)
		for i, p := range paths {
			select {
			case jobs <- fileJob{index: i, path: p}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]FileResult, len(paths))
	done := make([]bool, len(paths))
	processed := 0
	for r := range results {
		ordered[r.index] = r.result
		done[r.index] = true
		processed++
		if r.result.err != nil {
			progress.OnError(r.result.Path, r.result.err)
		}
		progress.OnProgress(processed, len(paths))
	}

	if err := ctx.Err(); err != nil {
		out := ordered[:0]
		for i, ok := range done {
			if ok {
				out = append(out, ordered[i])
			}
		}
		return out, err
	}
	return ordered, nil
}

// worker processes files from the jobs channel.
func worker(
	ctx context.Context,
	jobs <-chan fileJob,
	results chan<- fileResult,
	wg *sync.WaitGroup,
	fn func(context.Context, string) FileResult,
) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			// results is buffered for every path, so this send never blocks
			results <- fileResult{index: job.index, result: fn(ctx, job.path)}
		case <-ctx.Done():
			return
		}
	}
}
