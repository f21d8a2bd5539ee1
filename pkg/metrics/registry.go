package metrics

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Registry holds registered metrics.
type Registry struct {
	mu       sync.RWMutex
	families []*family
	names    map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// NewCounter creates and registers a counter.
func (r *Registry) NewCounter(name, help string, labels ...string) *Counter {
	f := newFamily(name, help, MetricTypeCounter, labels)
	r.register(f)
	return &Counter{f: f}
}

// NewGauge creates and registers a gauge.
func (r *Registry) NewGauge(name, help string, labels ...string) *Gauge {
	f := newFamily(name, help, MetricTypeGauge, labels)
	r.register(f)
	return &Gauge{f: f}
}

// register panics on duplicate names; they would produce invalid exposition output.
func (r *Registry) register(f *family) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.names[f.name]; exists {
		panic(fmt.Sprintf("%s: %s", ErrDuplicateMetric, f.name))
	}
	r.names[f.name] = struct{}{}
	r.families = append(r.families, f)
}

// WriteText writes every metric with at least one sample in Prometheus text format.
func (r *Registry) WriteText(w io.Writer) error {
	r.mu.RLock()
	families := make([]*family, len(r.families))
	copy(families, r.families)
	r.mu.RUnlock()

	bw := bufio.NewWriter(w)
	for _, f := range families {
		samples := f.collect()
		if len(samples) == 0 {
			continue
		}
		fmt.Fprintf(bw, "# HELP %s %s\n", f.name, escapeHelp(f.help))
		fmt.Fprintf(bw, "# TYPE %s %s\n", f.name, f.typ)
		for _, s := range samples {
			if len(s.Labels) == 0 {
				fmt.Fprintf(bw, "%s %s\n", s.Name, formatFloat(s.Value))
				continue
			}
			fmt.Fprintf(bw, "%s{%s} %s\n", s.Name, formatLabels(s.Labels), formatFloat(s.Value))
		}
	}
	return bw.Flush()
}

// Handler serves the registry on a /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_ = r.WriteText(w)
	})
}

func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + `="` + escapeLabelValue(labels[k]) + `"`
	}
	return strings.Join(parts, ",")
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func escapeHelp(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

func escapeLabelValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return strings.ReplaceAll(s, "\n", `\n`)
}
