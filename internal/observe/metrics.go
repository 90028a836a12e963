// Package observe provides the OpenTelemetry metric instruments for the
// practice pipeline and a Prometheus exporter bridge.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is bound to
// the global meter provider; tests should use [NewMetrics] with their own
// provider to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics
const meterName = "github.com/0xlemi/riyaz"

// Metrics holds the metric instruments. All fields are safe for concurrent
// use.
type Metrics struct {
	// Frames counts analysed frames. Use with attribute:
	//   attribute.Bool("voiced", ...)
	Frames metric.Int64Counter

	// DroppedFrames counts frames discarded because analysis fell behind
	DroppedFrames metric.Int64Counter

	// Judgments counts pitch judgments by note name
	Judgments metric.Int64Counter

	// Accuracy records the accuracy score of each judgment
	Accuracy metric.Float64Histogram

	// EstimateDuration tracks the time spent estimating one frame
	EstimateDuration metric.Float64Histogram

	// TargetTicks counts exercise targets emitted. Use with attribute:
	//   attribute.String("pattern", ...)
	TargetTicks metric.Int64Counter

	// ActiveSessions tracks the number of running sessions
	ActiveSessions metric.Int64UpDownCounter
}

// estimateBuckets are histogram boundaries (in seconds) for per-frame work,
// which has to finish well inside one frame period
var estimateBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05,
}

// accuracyBuckets split the 0..100 score
var accuracyBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 99}

// NewMetrics creates the instruments on the given provider
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("riyaz.frames",
		metric.WithDescription("Audio frames analysed, by whether a pitch was found."),
	); err != nil {
		return nil, err
	}
	if met.DroppedFrames, err = m.Int64Counter("riyaz.frames.dropped",
		metric.WithDescription("Audio frames discarded because analysis fell behind capture."),
	); err != nil {
		return nil, err
	}
	if met.Judgments, err = m.Int64Counter("riyaz.judgments",
		metric.WithDescription("Pitch judgments by note name."),
	); err != nil {
		return nil, err
	}
	if met.Accuracy, err = m.Float64Histogram("riyaz.judgment.accuracy",
		metric.WithDescription("Accuracy score of each judgment."),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(accuracyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EstimateDuration, err = m.Float64Histogram("riyaz.estimate.duration",
		metric.WithDescription("Time spent estimating the pitch of one frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(estimateBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TargetTicks, err = m.Int64Counter("riyaz.exercise.targets",
		metric.WithDescription("Exercise targets emitted, by pattern."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("riyaz.active_sessions",
		metric.WithDescription("Number of running practice sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails, which does not happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFrame records one analysed frame and how long its estimate took
func (m *Metrics) RecordFrame(ctx context.Context, voiced bool, elapsed time.Duration) {
	m.Frames.Add(ctx, 1, metric.WithAttributes(attribute.Bool("voiced", voiced)))
	m.EstimateDuration.Record(ctx, elapsed.Seconds())
}

// RecordJudgment records a judgment's note and accuracy
func (m *Metrics) RecordJudgment(ctx context.Context, note string, accuracy float64) {
	m.Judgments.Add(ctx, 1, metric.WithAttributes(attribute.String("note", note)))
	m.Accuracy.Record(ctx, accuracy)
}

// RecordTarget records an emitted exercise target
func (m *Metrics) RecordTarget(ctx context.Context, pattern string) {
	m.TargetTicks.Add(ctx, 1, metric.WithAttributes(attribute.String("pattern", pattern)))
}
