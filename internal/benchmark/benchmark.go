// Package benchmark times repeated decodes and reports per-file throughput
// and allocation.
package benchmark

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/pixcanon/internal/decoder"
	"github.com/MeKo-Tech/pixcanon/internal/raster"
)

// Timer provides simple timing utilities for benchmarking.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer creates a new timer with the given name.
func NewTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64 // Currently allocated bytes
	TotalAllocBytes uint64 // Total allocated bytes (cumulative)
	NumGC           uint32
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		NumGC:           m.NumGC,
	}
}

// Result holds the result of a benchmark run.
type Result struct {
	Name         string
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Iterations   int // completed iterations
	Error        error
}

// Average returns the mean duration of one iteration.
func (r Result) Average() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// AllocPerOp returns the bytes allocated per iteration.
func (r Result) AllocPerOp() uint64 {
	if r.Iterations == 0 {
		return 0
	}
	return (r.MemoryAfter.TotalAllocBytes - r.MemoryBefore.TotalAllocBytes) / uint64(r.Iterations)
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, alloc/op: %d KB",
		r.Name, r.Iterations, r.Average(), r.Duration, r.AllocPerOp()/1024)
}

// Benchmark is a named function run once per iteration.
type Benchmark struct {
	Name string
	Func func() error
}

// Suite manages multiple benchmarks.
type Suite struct {
	benchmarks []Benchmark
	results    []Result
	mu         sync.Mutex
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add adds a benchmark to the suite.
func (s *Suite) Add(name string, fn func() error) {
	s.benchmarks = append(s.benchmarks, Benchmark{Name: name, Func: fn})
}

// Run runs a single benchmark with the specified number of iterations.
func (s *Suite) Run(name string, iterations int) Result {
	for _, b := range s.benchmarks {
		if b.Name == name {
			return runBenchmark(b, iterations)
		}
	}
	return Result{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
}

// RunAll runs all benchmarks in the order they were added.
func (s *Suite) RunAll(iterations int) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]Result, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		s.results = append(s.results, runBenchmark(b, iterations))
	}
	return s.results
}

// Results returns the last RunAll results.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// PrintResults writes the last RunAll results to w.
func (s *Suite) PrintResults(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Benchmark Results:")
	_, _ = fmt.Fprintln(w, "==================")
	for _, r := range s.Results() {
		_, _ = fmt.Fprintln(w, r.String())
	}
}

func runBenchmark(b Benchmark, iterations int) Result {
	runtime.GC()
	res := Result{Name: b.Name, MemoryBefore: GetMemoryStats()}

	timer := NewTimer(b.Name)
	for range iterations {
		if err := b.Func(); err != nil {
			res.Error = err
			break
		}
		res.Iterations++
	}
	res.Duration = timer.Stop()
	res.MemoryAfter = GetMemoryStats()
	return res
}

// Decoder is the subset of the dispatcher a decode benchmark needs.
type Decoder interface {
	DecodeFit(ctx context.Context, path string, maxDimension int) (*raster.Raster, error)
	Class(path string) (decoder.Class, bool)
}

// NewDecodeSuite adds one benchmark per path, named "<class>/<file>".
// Unsupported paths are skipped and returned.
func NewDecodeSuite(ctx context.Context, d Decoder, paths []string, maxDimension int) (*Suite, []string) {
	s := NewSuite()
	var skipped []string
	for _, path := range paths {
		class, ok := d.Class(path)
		if !ok {
			skipped = append(skipped, path)
			continue
		}
		s.Add(class.String()+"/"+filepath.Base(path), func() error {
			_, err := d.DecodeFit(ctx, path, maxDimension)
			return err
		})
	}
	return s, skipped
}
