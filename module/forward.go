package module

import (
	"context"
	"time"

	"github.com/tensorbridge/tensorbridge/metrics"
	"github.com/tensorbridge/tensorbridge/status"
	"github.com/tensorbridge/tensorbridge/tensor"
	"github.com/tensorbridge/tensorbridge/transcoder"
)

// Forward runs one inference pass. Input tensors are fully copied into
// engine memory before execution, so the caller may release them as soon as
// Forward returns; outputs are freshly owned tensors with no ties to the
// engine or to each other.
//
// Concurrent Forward calls on the same Module block on an internal lock and
// execute one at a time. On any failure no partial outputs are returned.
func (m *Module) Forward(ctx context.Context, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if m == nil {
		return nil, status.InvalidStatef("module_forward", "module is nil")
	}
	for i, in := range inputs {
		if in == nil {
			return nil, status.InvalidArgumentf("module_forward", "input tensor %d is nil", i)
		}
	}

	start := time.Now()
	outputs, err := m.forward(ctx, inputs)
	if !m.noMetrics {
		metrics.ForwardDuration.Observe(time.Since(start).Seconds())
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeError
		}
		metrics.ForwardTotal.WithLabelValues(outcome).Inc()
	}
	return outputs, err
}

func (m *Module) forward(ctx context.Context, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		return nil, status.InvalidStatef("module_forward", "module not loaded")
	}

	blob, err := transcoder.Encode(inputs)
	if err != nil {
		return nil, status.Wrap(status.InvalidArgument, "module_forward", err)
	}

	out, err := m.inst.Call(ctx, blob)
	if err != nil {
		return nil, status.Inference("module_forward", err)
	}

	outputs, err := transcoder.Decode(out)
	if err != nil {
		// Unsupported dtype tags keep their code; everything else is an
		// inference failure.
		return nil, status.Wrap(status.InferenceFailed, "module_forward", err)
	}

	if !m.noMetrics {
		metrics.MarshalledBytes.WithLabelValues(metrics.DirectionIn).Add(float64(len(blob)))
		metrics.MarshalledBytes.WithLabelValues(metrics.DirectionOut).Add(float64(len(out)))
	}
	return outputs, nil
}
