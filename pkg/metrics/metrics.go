package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrLabelCountMismatch is returned when the number of label values doesn't match the defined labels.
var ErrLabelCountMismatch = errors.New("label count mismatch")

// ErrNegativeCounterValue is returned when attempting to add a negative value to a counter.
var ErrNegativeCounterValue = errors.New("counter cannot be decreased")

// ErrDuplicateMetric is returned when registering a metric with a name that is already registered.
var ErrDuplicateMetric = errors.New("duplicate metric name")

// atomicFloat64 stores float64 bits in a uint64 for atomic access.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(a.bits.Load())
}

func (a *atomicFloat64) Store(v float64) {
	a.bits.Store(math.Float64bits(v))
}

func (a *atomicFloat64) Add(delta float64) {
	for {
		old := a.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if a.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// MetricType represents the type of a metric.
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

// Sample is one labelled value.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// family holds every labelled series of one metric.
type family struct {
	name       string
	help       string
	typ        MetricType
	labelNames []string

	mu     sync.RWMutex
	series map[string]*series
}

type series struct {
	labels map[string]string
	value  atomicFloat64
}

func newFamily(name, help string, typ MetricType, labelNames []string) *family {
	return &family{
		name:       name,
		help:       help,
		typ:        typ,
		labelNames: labelNames,
		series:     make(map[string]*series),
	}
}

// lookup returns the series for values, creating it on first use.
func (f *family) lookup(values []string) (*series, error) {
	if len(values) != len(f.labelNames) {
		return nil, fmt.Errorf("%w: %s %s expected %d labels, got %d",
			ErrLabelCountMismatch, f.typ, f.name, len(f.labelNames), len(values))
	}

	key := strings.Join(values, "\x00")
	f.mu.RLock()
	s, ok := f.series[key]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok = f.series[key]; ok {
		return s, nil
	}
	labels := make(map[string]string, len(values))
	for i, name := range f.labelNames {
		labels[name] = values[i]
	}
	s = &series{labels: labels}
	f.series[key] = s
	return s, nil
}

// value reads a series without creating it.
func (f *family) value(values []string) float64 {
	f.mu.RLock()
	s, ok := f.series[strings.Join(values, "\x00")]
	f.mu.RUnlock()
	if !ok {
		return 0
	}
	return s.value.Load()
}

// collect returns samples sorted by label values for stable output.
func (f *family) collect() []Sample {
	f.mu.RLock()
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	samples := make([]Sample, 0, len(keys))
	for _, k := range keys {
		s := f.series[k]
		samples = append(samples, Sample{Name: f.name, Labels: s.labels, Value: s.value.Load()})
	}
	f.mu.RUnlock()
	return samples
}

// Counter is a monotonically increasing metric.
type Counter struct {
	f *family
}

// Inc adds 1 to the series identified by labels.
func (c *Counter) Inc(labels ...string) error {
	return c.Add(1, labels...)
}

// Add adds delta to the series identified by labels.
func (c *Counter) Add(delta float64, labels ...string) error {
	if delta < 0 {
		return fmt.Errorf("%w: counter %s", ErrNegativeCounterValue, c.f.name)
	}
	s, err := c.f.lookup(labels)
	if err != nil {
		return err
	}
	s.value.Add(delta)
	return nil
}

// Value returns the current value of the series identified by labels.
func (c *Counter) Value(labels ...string) float64 {
	return c.f.value(labels)
}

// Gauge is a metric that can go up and down.
type Gauge struct {
	f *family
}

// Set sets the series identified by labels to v.
func (g *Gauge) Set(v float64, labels ...string) error {
	s, err := g.f.lookup(labels)
	if err != nil {
		return err
	}
	s.value.Store(v)
	return nil
}

// Add adds delta to the series identified by labels.
func (g *Gauge) Add(delta float64, labels ...string) error {
	s, err := g.f.lookup(labels)
	if err != nil {
		return err
	}
	s.value.Add(delta)
	return nil
}

// Value returns the current value of the series identified by labels.
func (g *Gauge) Value(labels ...string) float64 {
	return g.f.value(labels)
}
