// Package hooks provides production-ready Hook, Logger, and MetricsCollector
// implementations.
package hooks

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Skryldev/image-server/core"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// ZerologLogger wraps a zerolog.Logger to satisfy core.Logger.  Fields are
// alternating key/value pairs.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a logger backed by zerolog.
func NewZerologLogger(l zerolog.Logger) *ZerologLogger { return &ZerologLogger{log: l} }

func (z *ZerologLogger) Debug(msg string, fields ...interface{}) {
	z.log.Debug().Fields(fields).Msg(msg)
}
func (z *ZerologLogger) Info(msg string, fields ...interface{}) {
	z.log.Info().Fields(fields).Msg(msg)
}
func (z *ZerologLogger) Warn(msg string, fields ...interface{}) {
	z.log.Warn().Fields(fields).Msg(msg)
}
func (z *ZerologLogger) Error(msg string, fields ...interface{}) {
	z.log.Error().Fields(fields).Msg(msg)
}

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each pipeline stage.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeStage(_ context.Context, stage string) {
	h.logger.Debug("pipeline.stage.start", "stage", stage)
}

func (h *LoggingHook) AfterStage(_ context.Context, stage string, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("pipeline.stage.error",
			"stage", stage,
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	h.logger.Debug("pipeline.stage.done",
		"stage", stage,
		"duration_ms", d.Milliseconds(),
	)
}

// ── Prometheus metrics collector ──────────────────────────────────────────────

// PromMetrics is a MetricsCollector backed by prometheus.
type PromMetrics struct {
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	stageDuration *prometheus.HistogramVec
	transforms    *prometheus.CounterVec
	stageErrors   *prometheus.CounterVec
}

// NewPromMetrics creates and registers the collectors on reg.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	m := &PromMetrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "image_server",
			Name:      "cache_hits_total",
			Help:      "Requests served from the result cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "image_server",
			Name:      "cache_misses_total",
			Help:      "Requests that ran the transform pipeline.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "image_server",
			Name:      "stage_duration_seconds",
			Help:      "Transform pipeline stage durations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		transforms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "image_server",
			Name:      "transforms_total",
			Help:      "Completed transforms by crop strategy and output format.",
		}, []string{"crop", "format"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "image_server",
			Name:      "stage_errors_total",
			Help:      "Transform pipeline stage failures.",
		}, []string{"stage"}),
	}
	reg.MustRegister(m.cacheHits, m.cacheMisses, m.stageDuration, m.transforms, m.stageErrors)
	return m
}

func (m *PromMetrics) RecordCacheHit()  { m.cacheHits.Inc() }
func (m *PromMetrics) RecordCacheMiss() { m.cacheMisses.Inc() }

func (m *PromMetrics) RecordStageDuration(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *PromMetrics) RecordTransform(strategy core.CropStrategy, format core.Format) {
	m.transforms.WithLabelValues(string(strategy), string(format)).Inc()
}

func (m *PromMetrics) RecordError(stage string) {
	m.stageErrors.WithLabelValues(stage).Inc()
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds pipeline stage events into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeStage(_ context.Context, _ string) {}

func (h *MetricsHook) AfterStage(_ context.Context, stage string, d time.Duration, err error) {
	h.collector.RecordStageDuration(stage, d)
	if err != nil {
		h.collector.RecordError(stage)
	}
}
