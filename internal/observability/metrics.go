package observability

import (
	"errors"
	"net/http"
	"sync"

	"github.com/danmuck/ubxctl/internal/protocol/frame"
	"github.com/danmuck/ubxctl/internal/protocol/layout"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DirectionRX = "rx"
	DirectionTX = "tx"
)

// Frame results.
const (
	ResultOK        = "ok"
	ResultChecksum  = "checksum"
	ResultProtocol  = "protocol"
	ResultMalformed = "malformed"
	ResultIO        = "io"
	ResultError     = "error"
)

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ubxctl",
			Name:      "frames_total",
			Help:      "Frames received or transferred, by outcome.",
		},
		[]string{"direction", "class", "message", "result"},
	)
	frameBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ubxctl",
			Subsystem: "frame",
			Name:      "bytes",
			Help:      "Bytes consumed or written per frame, including resync garbage on receive.",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 14),
		},
		[]string{"direction"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesTotal, frameBytes)
	})
}

// MetricsHandler serves the default registry for a host process to mount at /metrics.
func MetricsHandler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

// RecordFrame counts one receive or transfer attempt.
func RecordFrame(direction, class, message string, err error, n int) {
	RegisterMetrics()
	framesTotal.WithLabelValues(direction, class, message, FrameResult(err)).Inc()
	if n > 0 {
		frameBytes.WithLabelValues(direction).Observe(float64(n))
	}
}

// FrameResult classifies a receive or transfer error into a metric label.
func FrameResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, frame.ErrChecksum):
		return ResultChecksum
	case frame.IsProtocol(err):
		return ResultProtocol
	case errors.Is(err, layout.ErrMalformedPayload):
		return ResultMalformed
	case errors.Is(err, frame.ErrShortRead):
		return ResultIO
	default:
		return ResultError
	}
}
