package decoder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decodeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixcanon_decode_total",
			Help: "Total number of decode attempts",
		},
		[]string{"class", "status"}, // status: ok, error, panic
	)

	decodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixcanon_decode_duration_seconds",
			Help:    "Decode duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"class"},
	)

	decodeFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixcanon_decode_fallbacks_total",
			Help: "Decodes that fell back to the generic reader",
		},
		[]string{"class"},
	)

	unsupportedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixcanon_decode_unsupported_total",
			Help: "Paths rejected for an unrecognized extension",
		},
	)

	rasterPixels = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixcanon_raster_pixels",
			Help:    "Pixel count of decoded rasters",
			Buckets: prometheus.ExponentialBuckets(1<<12, 4, 9),
		},
		[]string{"class"},
	)
)
