package observe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// attrEncoder renders attribute sets as comma-joined key=value pairs.
var attrEncoder = attribute.DefaultEncoder()

// Recorder owns an SDK meter provider whose data is read on demand.
type Recorder struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
	Metrics  *Metrics
}

// NewRecorder builds a manual-read meter provider and its instruments. When
// global is true the provider is also installed as the otel global.
func NewRecorder(global bool) (*Recorder, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(provider)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	if global {
		otel.SetMeterProvider(provider)
	}
	return &Recorder{provider: provider, reader: reader, Metrics: metrics}, nil
}

// Sample is one aggregated metric value. Counters report their sum;
// histograms report count and sum.
type Sample struct {
	Name  string
	Attrs string
	Count uint64
	Sum   float64
}

// Snapshot collects the current value of every instrument, sorted by name
// then attributes.
func (r *Recorder) Snapshot(ctx context.Context) ([]Sample, error) {
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}
	var out []Sample
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out = append(out, Sample{Name: m.Name, Attrs: dp.Attributes.Encoded(attrEncoder), Count: 1, Sum: float64(dp.Value)})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out = append(out, Sample{Name: m.Name, Attrs: dp.Attributes.Encoded(attrEncoder), Count: dp.Count, Sum: dp.Sum})
				}
			case metricdata.Histogram[int64]:
				for _, dp := range data.DataPoints {
					out = append(out, Sample{Name: m.Name, Attrs: dp.Attributes.Encoded(attrEncoder), Count: dp.Count, Sum: float64(dp.Sum)})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Attrs < out[j].Attrs
	})
	return out, nil
}

// Find returns the first sample with the given name whose attributes contain
// every fragment.
func Find(samples []Sample, name string, fragments ...string) (Sample, bool) {
	for _, s := range samples {
		if s.Name != name {
			continue
		}
		matched := true
		for _, f := range fragments {
			if !strings.Contains(s.Attrs, f) {
				matched = false
				break
			}
		}
		if matched {
			return s, true
		}
	}
	return Sample{}, false
}

// Shutdown releases the provider.
func (r *Recorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}
