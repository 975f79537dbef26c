// Package metrics records Prometheus metrics from bus events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanpama/contentgraph/internal/eventbus"
	"github.com/hanpama/contentgraph/internal/events"
)

const namespace = "contentgraph"

// Metrics holds the collectors fed by Subscribe.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	operations    *prometheus.CounterVec
	opDuration    *prometheus.HistogramVec
	mutations     *prometheus.CounterVec
	mutationTime  *prometheus.HistogramVec
	loaderBatches *prometheus.CounterVec
	loaderKeys    *prometheus.HistogramVec
	diagnostics   *prometheus.CounterVec
	schemaTypes   prometheus.Gauge
	schemaBuild   prometheus.Gauge
}

// New returns Metrics registered on a fresh registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by response status.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency.", Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "operations_total",
			Help: "GraphQL operations by type and outcome.",
		}, []string{"type", "outcome"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "operation_duration_seconds",
			Help: "GraphQL execution latency.", Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "mutations_total",
			Help: "Mutations by name and outcome.",
		}, []string{"name", "outcome"}),
		mutationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "mutation_duration_seconds",
			Help: "Mutation resolver latency.", Buckets: prometheus.DefBuckets,
		}, []string{"name"}),
		loaderBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "loader", Name: "batches_total",
			Help: "Batched node loads by store and outcome.",
		}, []string{"store", "outcome"}),
		loaderKeys: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "loader", Name: "batch_keys",
			Help: "Keys per batched node load.", Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"store"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "schema", Name: "diagnostics_total",
			Help: "Non-fatal schema build problems by code.",
		}, []string{"code"}),
		schemaTypes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "schema", Name: "types",
			Help: "Types in the last built schema.",
		}),
		schemaBuild: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "schema", Name: "build_duration_seconds",
			Help: "Duration of the last schema build.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.operations, m.opDuration,
		m.mutations, m.mutationTime,
		m.loaderBatches, m.loaderKeys,
		m.diagnostics, m.schemaTypes, m.schemaBuild,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Subscribe attaches m to b. A nil b uses the global bus.
func (m *Metrics) Subscribe(b *eventbus.Bus) (unsubscribe func()) {
	if b == nil {
		b = eventbus.Current()
	}
	unsubs := []func(){
		eventbus.On(b, func(_ context.Context, e events.HTTPFinish) {
			method := e.Request.Method
			m.httpRequests.WithLabelValues(method, strconv.Itoa(e.Status)).Inc()
			m.httpDuration.WithLabelValues(method).Observe(e.Duration.Seconds())
		}),
		eventbus.On(b, func(_ context.Context, e events.GraphQLFinish) {
			typ := e.OperationType
			if typ == "" {
				typ = "unknown"
			}
			m.operations.WithLabelValues(typ, outcome(len(e.Errors) == 0)).Inc()
			m.opDuration.WithLabelValues(typ).Observe(e.Duration.Seconds())
		}),
		eventbus.On(b, func(_ context.Context, e events.MutationPerformed) {
			m.mutations.WithLabelValues(e.Name, outcome(e.Err == nil)).Inc()
			m.mutationTime.WithLabelValues(e.Name).Observe(e.Duration.Seconds())
		}),
		eventbus.On(b, func(_ context.Context, e events.LoaderBatch) {
			m.loaderBatches.WithLabelValues(e.Store, outcome(e.Err == nil)).Inc()
			m.loaderKeys.WithLabelValues(e.Store).Observe(float64(e.Keys))
		}),
		eventbus.On(b, func(_ context.Context, e events.SchemaDiagnostic) {
			m.diagnostics.WithLabelValues(e.Code).Inc()
		}),
		eventbus.On(b, func(_ context.Context, e events.SchemaBuilt) {
			m.schemaTypes.Set(float64(e.Types))
			m.schemaBuild.Set(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
