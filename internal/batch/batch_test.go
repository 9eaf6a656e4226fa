package batch

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pixcanon/internal/decoder"
	"github.com/MeKo-Tech/pixcanon/internal/raster"
	"github.com/MeKo-Tech/pixcanon/internal/testutil"
)

// fakeDecoder returns a 4x2 raster for every path not listed in fail.
type fakeDecoder struct {
	mu      sync.Mutex
	fail    map[string]error
	calls   []string
	maxDims []int
	delay   time.Duration
	active  atomic.Int32
	peak    atomic.Int32
}

func (f *fakeDecoder) DecodeFit(ctx context.Context, path string, maxDimension int) (*raster.Raster, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.maxDims = append(f.maxDims, maxDimension)
	err := f.fail[filepath.Base(path)]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return raster.New(4, 2), nil
}

func (f *fakeDecoder) Class(path string) (decoder.Class, bool) {
	return decoder.ClassOf(decoder.Ext(path))
}

func quietConfig() *Config {
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.DiscardHandler)
	return cfg
}

func makeFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = testutil.WriteFile(t, dir, n, []byte("x"))
	}
	return paths
}

func TestProcessBatch_SkipsFailuresAndKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	makeFiles(t, dir, "a.png", "b.jpg", "c.tif", "d.psd")
	dec := &fakeDecoder{fail: map[string]error{"b.jpg": raster.ErrDecodeFailure}}

	cfg := quietConfig()
	cfg.Workers = 3
	res, err := ProcessBatch(context.Background(), dec, []string{dir}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Files, 4)

	names := make([]string, len(res.Files))
	for i, f := range res.Files {
		names[i] = filepath.Base(f.Path)
	}
	assert.Equal(t, []string{"a.png", "b.jpg", "c.tif", "d.psd"}, names)

	assert.False(t, res.Files[1].OK())
	assert.ErrorIs(t, res.Files[1].Err(), raster.ErrDecodeFailure)
	assert.Equal(t, 0, res.Files[1].Width)
	assert.Equal(t, "generic-raster", res.Files[1].Class)

	assert.True(t, res.Files[2].OK())
	assert.Equal(t, 2, res.Files[2].Height)
	assert.Equal(t, 4, res.Files[2].Width)
	assert.Equal(t, 3, res.Files[2].Channels)
	assert.Equal(t, "multi-dimensional-raster", res.Files[2].Class)

	stats := res.Stats()
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Len(t, res.Failed(), 1)
}

func TestProcessBatch_BoundedWorkers(t *testing.T) {
	dir := t.TempDir()
	var names []string
	for i := range 12 {
		names = append(names, string(rune('a'+i))+".png")
	}
	makeFiles(t, dir, names...)
	dec := &fakeDecoder{delay: 20 * time.Millisecond}

	cfg := quietConfig()
	cfg.Workers = 2
	res, err := ProcessBatch(context.Background(), dec, []string{dir}, cfg)
	require.NoError(t, err)
	assert.Len(t, res.Files, 12)
	assert.LessOrEqual(t, dec.peak.Load(), int32(2))
	assert.Equal(t, 2, res.WorkerCount)
}

func TestProcessBatch_PassesMaxDimension(t *testing.T) {
	dir := t.TempDir()
	makeFiles(t, dir, "a.png")
	dec := &fakeDecoder{}

	cfg := quietConfig()
	cfg.MaxDimension = 256
	_, err := ProcessBatch(context.Background(), dec, []string{dir}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{256}, dec.maxDims)
}

func TestProcessBatch_NoFiles(t *testing.T) {
	dir := t.TempDir()
	makeFiles(t, dir, "notes.txt")

	_, err := ProcessBatch(context.Background(), &fakeDecoder{}, []string{dir}, quietConfig())
	require.ErrorIs(t, err, ErrNoFiles)
}

func TestProcessBatch_MissingPath(t *testing.T) {
	_, err := ProcessBatch(context.Background(), &fakeDecoder{}, []string{"/does/not/exist"}, quietConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestProcessBatch_Cancelled(t *testing.T) {
	dir := t.TempDir()
	makeFiles(t, dir, "a.png", "b.png", "c.png", "d.png")
	dec := &fakeDecoder{delay: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	cfg := quietConfig()
	cfg.Workers = 1
	start := time.Now()
	res, err := ProcessBatch(ctx, dec, []string{dir}, cfg)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, res)
	for _, f := range res.Files {
		assert.False(t, f.OK())
	}
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestProcessBatch_RealDispatcherWithThumbnails(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "wide.png", testutil.EncodePNG(t, testutil.Gradient(40, 20)))
	testutil.WriteFile(t, dir, "photo.JPG", testutil.EncodeJPEG(t, testutil.CreateTestImage(16, 16, color.White)))
	testutil.WriteFile(t, dir, "broken.bmp", []byte("BM not really"))

	d, err := decoder.New(decoder.Options{Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)

	thumbs := filepath.Join(t.TempDir(), "thumbs")
	cfg := quietConfig()
	cfg.MaxDimension = 10
	cfg.ThumbnailDir = thumbs

	res, err := ProcessBatch(context.Background(), d, []string{dir}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Files, 3)

	byName := map[string]FileResult{}
	for _, f := range res.Files {
		byName[filepath.Base(f.Path)] = f
	}
	assert.False(t, byName["broken.bmp"].OK())
	assert.ErrorIs(t, byName["broken.bmp"].Err(), raster.ErrDecodeFailure)

	wide := byName["wide.png"]
	require.True(t, wide.OK(), wide.Error)
	assert.Equal(t, 10, wide.Width)
	assert.Equal(t, 5, wide.Height)
	assert.Equal(t, filepath.Join(thumbs, "wide_png.png"), wide.Thumbnail)

	img := testutil.LoadImage(t, wide.Thumbnail)
	assert.Equal(t, 10, img.Bounds().Dx())

	assert.True(t, testutil.FileExists(filepath.Join(thumbs, "photo_jpg.png")))
}

func TestResult_SaveResults(t *testing.T) {
	res := &Result{Files: []FileResult{{Path: "a.png", Class: "alpha-raster", Height: 1, Width: 2, Channels: 3}}}

	var buf bytes.Buffer
	require.NoError(t, res.SaveResults(&buf, "text", "", false))
	assert.Contains(t, buf.String(), "a.png")

	out := filepath.Join(t.TempDir(), "results.json")
	buf.Reset()
	require.NoError(t, res.SaveResults(&buf, "json", out, false))
	assert.Contains(t, buf.String(), "Results written to")
	data, err := os.ReadFile(out) //nolint:gosec // G304: temp file
	require.NoError(t, err)
	assert.Contains(t, string(data), `"path": "a.png"`)

	buf.Reset()
	require.Error(t, res.SaveResults(&buf, "xml", "", true))
}

func TestResult_PrintStats(t *testing.T) {
	res := &Result{
		Files: []FileResult{
			{Path: "a.png"},
			{Path: "b.png", Error: "boom", err: errors.New("boom")},
		},
		Duration:    time.Second,
		WorkerCount: 2,
	}
	var buf bytes.Buffer
	res.PrintStats(&buf)
	assert.Contains(t, buf.String(), "Decoded: 1")
	assert.Contains(t, buf.String(), "Failed: 1")
	assert.Contains(t, buf.String(), "Throughput: 1.0 files/sec")
}
