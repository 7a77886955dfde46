// Package metrics exposes Prometheus collectors for the module load and
// forward paths. Collectors register on the default registry; embedders that
// serve /metrics pick them up without extra wiring.
package metrics
