package module

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/tensorbridge/tensorbridge"
	"github.com/tensorbridge/tensorbridge/engine"
	"github.com/tensorbridge/tensorbridge/metrics"
	"github.com/tensorbridge/tensorbridge/status"
)

// Module is a loaded inference program owned by the caller. A Module is
// created in a loaded state by Load or LoadFile; a handle is never observed
// mid-load. Forward calls on one Module are serialized internally; Close
// must not race a Forward still in flight.
type Module struct {
	eng  *engine.Engine
	log  *zap.Logger
	prog *engine.Program
	inst *engine.Instance

	// Retained backing memory for the program: a copy of the caller's
	// bytes, or the file mapping. Held for the Module's lifetime in case
	// the loader keeps a non-owning view.
	model   []byte
	release func() error

	inputCount  int32
	outputCount int32
	noMetrics   bool

	mu     sync.Mutex
	loaded bool
}

// Option adjusts load behavior.
type Option func(*loadOptions)

type loadOptions struct {
	noMetrics bool
}

// WithoutMetrics disables the Prometheus collectors for this Module.
func WithoutMetrics() Option {
	return func(o *loadOptions) { o.noMetrics = true }
}

// Load constructs a Module from in-memory program bytes. The bytes are
// copied, so the caller's buffer may be reused immediately.
//
// Nil or empty data fails with InvalidArgument before any engine call.
// Compile or entry-point resolution failures destroy the half-built handle
// and fail with ModelLoadFailed carrying the engine's error text.
func Load(ctx context.Context, eng *engine.Engine, data []byte, opts ...Option) (*Module, error) {
	o := applyOptions(opts)
	if eng == nil {
		err := status.InvalidArgumentf("module_load", "engine is nil")
		observeLoad(o, metrics.SourceBytes, err)
		return nil, err
	}
	if len(data) == 0 {
		err := status.InvalidArgumentf("module_load", "model data is nil or empty")
		observeLoad(o, metrics.SourceBytes, err)
		return nil, err
	}

	m, err := load(ctx, eng, bytes.Clone(data), nil, "module_load", o)
	observeLoad(o, metrics.SourceBytes, err)
	return m, err
}

// LoadFile constructs a Module from a program file. The file is memory
// mapped where the platform supports it and the mapping is retained until
// Close.
func LoadFile(ctx context.Context, eng *engine.Engine, path string, opts ...Option) (*Module, error) {
	o := applyOptions(opts)
	if eng == nil {
		err := status.InvalidArgumentf("module_load_file", "engine is nil")
		observeLoad(o, metrics.SourceFile, err)
		return nil, err
	}
	if path == "" {
		err := status.InvalidArgumentf("module_load_file", "path is empty")
		observeLoad(o, metrics.SourceFile, err)
		return nil, err
	}

	data, release, err := mapFile(path)
	if err != nil {
		observeLoad(o, metrics.SourceFile, err)
		return nil, status.IOErrorf("module_load_file", "open %s: %v", path, err)
	}
	if len(data) == 0 {
		_ = releaseIfSet(release)
		err := status.Errorf(status.ModelLoadFailed, "module_load_file", "empty program file: %s", path)
		observeLoad(o, metrics.SourceFile, err)
		return nil, err
	}

	m, err := load(ctx, eng, data, release, "module_load_file", o)
	if err != nil {
		_ = releaseIfSet(release)
		observeLoad(o, metrics.SourceFile, err)
		return nil, status.Errorf(status.CodeOf(err), "module_load_file",
			"load %s: %s", path, errText(err))
	}
	observeLoad(o, metrics.SourceFile, nil)
	return m, nil
}

func load(ctx context.Context, eng *engine.Engine, model []byte, release func() error, origin string, o loadOptions) (*Module, error) {
	prog, err := eng.Load(ctx, model)
	if err != nil {
		return nil, status.LoadFailed(origin, err)
	}

	inst, err := prog.Instantiate(ctx)
	if err != nil {
		// A failed handle is destroyed, never retried.
		_ = prog.Close(ctx)
		return nil, status.LoadFailed(origin, err)
	}

	m := &Module{
		eng:         eng,
		log:         eng.Logger(),
		prog:        prog,
		inst:        inst,
		model:       model,
		release:     release,
		inputCount:  1,
		outputCount: 1,
		noMetrics:   o.noMetrics,
		loaded:      true,
	}

	if n, ok := inst.Arity(ctx, tensorbridge.ExportInputCount); ok {
		m.inputCount = n
	} else {
		m.log.Warn("program reports no input arity, assuming 1")
	}
	if n, ok := inst.Arity(ctx, tensorbridge.ExportOutputCount); ok {
		m.outputCount = n
	} else {
		m.log.Warn("program reports no output arity, assuming 1")
	}

	return m, nil
}

// InputCount returns the model's input arity, or 0 for a nil or closed
// Module.
func (m *Module) InputCount() int32 {
	if m == nil || !m.isLoaded() {
		return 0
	}
	return m.inputCount
}

// OutputCount returns the model's output arity, or 0 for a nil or closed
// Module.
func (m *Module) OutputCount() int32 {
	if m == nil || !m.isLoaded() {
		return 0
	}
	return m.outputCount
}

// ModelSize returns the size of the retained program image in bytes.
func (m *Module) ModelSize() int64 {
	if m == nil {
		return 0
	}
	return int64(len(m.model))
}

func (m *Module) isLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Close releases the program instance, the compiled program, and the
// retained model memory. Safe on nil and idempotent.
func (m *Module) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil
	}
	m.loaded = false

	ctx := context.Background()
	var firstErr error
	if err := m.inst.Close(ctx); err != nil {
		firstErr = err
	}
	if err := m.prog.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := releaseIfSet(m.release); err != nil && firstErr == nil {
		firstErr = err
	}
	m.model = nil
	return firstErr
}

func applyOptions(opts []Option) loadOptions {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func observeLoad(o loadOptions, source string, err error) {
	if o.noMetrics {
		return
	}
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ModuleLoadsTotal.WithLabelValues(source, outcome).Inc()
}

func releaseIfSet(release func() error) error {
	if release == nil {
		return nil
	}
	return release()
}

func errText(err error) string {
	var st *status.Status
	if errors.As(err, &st) {
		return st.Message
	}
	return err.Error()
}
