package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ModuleLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tensorbridge_module_loads_total",
		Help: "Module load attempts by source and outcome",
	}, []string{"source", "outcome"})

	ForwardTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tensorbridge_forward_total",
		Help: "Forward calls by outcome",
	}, []string{"outcome"})

	ForwardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tensorbridge_forward_duration_seconds",
		Help:    "Wall time of forward calls including marshalling",
		Buckets: prometheus.DefBuckets,
	})

	MarshalledBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tensorbridge_marshalled_bytes_total",
		Help: "Tensor bytes crossing the engine boundary by direction",
	}, []string{"direction"})
)

// Label values used by the module package.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"

	SourceBytes = "bytes"
	SourceFile  = "file"

	DirectionIn  = "in"
	DirectionOut = "out"
)
