package observe

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordFrame(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFrame(ctx, true, time.Millisecond)
	m.RecordFrame(ctx, true, 2*time.Millisecond)
	m.RecordFrame(ctx, false, time.Millisecond)

	rm := collect(t, reader)
	met := findMetric(rm, "riyaz.frames")
	if met == nil {
		t.Fatal("metric riyaz.frames not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("riyaz.frames is %T, want Sum[int64]", met.Data)
	}

	got := map[bool]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("voiced"))
		got[v.AsBool()] = dp.Value
	}
	if got[true] != 2 || got[false] != 1 {
		t.Errorf("frames = %v, want voiced 2, unvoiced 1", got)
	}

	hist := findMetric(rm, "riyaz.estimate.duration")
	if hist == nil {
		t.Fatal("metric riyaz.estimate.duration not found")
	}
	if h := hist.Data.(metricdata.Histogram[float64]); h.DataPoints[0].Count != 3 {
		t.Errorf("duration samples = %d, want 3", h.DataPoints[0].Count)
	}
}

func TestRecordJudgmentAndTarget(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordJudgment(ctx, "A", 99)
	m.RecordJudgment(ctx, "A", 80)
	m.RecordTarget(ctx, "taan")
	m.ActiveSessions.Add(ctx, 1)

	rm := collect(t, reader)

	acc := findMetric(rm, "riyaz.judgment.accuracy")
	if acc == nil {
		t.Fatal("accuracy histogram not found")
	}
	h := acc.Data.(metricdata.Histogram[float64])
	if h.DataPoints[0].Count != 2 || h.DataPoints[0].Sum != 179 {
		t.Errorf("accuracy count %d sum %v, want 2 and 179", h.DataPoints[0].Count, h.DataPoints[0].Sum)
	}

	for _, name := range []string{"riyaz.judgments", "riyaz.exercise.targets", "riyaz.active_sessions"} {
		if findMetric(rm, name) == nil {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestDefaultMetrics_Singleton(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different instances")
	}
}

func TestProvider_ServesPrometheus(t *testing.T) {
	p, err := InitProvider(ProviderConfig{ServiceVersion: "test"})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	m, err := NewMetrics(p.MeterProvider())
	if err != nil {
		t.Fatal(err)
	}
	m.RecordTarget(context.Background(), "meend")

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "riyaz_exercise_targets") {
		t.Errorf("exposition lacks riyaz_exercise_targets:\n%s", body)
	}
}
