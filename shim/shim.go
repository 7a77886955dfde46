package shim

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tensorbridge/tensorbridge"
	"github.com/tensorbridge/tensorbridge/backend"
	"github.com/tensorbridge/tensorbridge/engine"
	"github.com/tensorbridge/tensorbridge/module"
	"github.com/tensorbridge/tensorbridge/status"
	"github.com/tensorbridge/tensorbridge/tensor"
)

// Shim is the flat, handle-based boundary over the library, shaped for
// embedding behind an FFI layer: every resource is an integer handle owned
// by the Shim, every fallible call returns a *status.Status, and no panic
// escapes a boundary function.
//
// Accessors called with invalid handles return safe zero values; free
// operations are no-ops on zero or unknown handles.
type Shim struct {
	eng      *engine.Engine
	tensors  *table[*tensor.Tensor]
	modules  *table[*module.Module]
	logLevel zap.AtomicLevel
	ownsLog  bool
}

// Option adjusts shim construction.
type Option func(*config)

type config struct {
	logger           *zap.Logger
	memoryLimitPages uint32
}

// WithLogger supplies an external logger. SetDebugLogging becomes a no-op,
// since the caller controls its own sink and level.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMemoryLimitPages caps engine memory per loaded module.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *config) { c.memoryLimitPages = pages }
}

// New creates the boundary together with its owned engine.
func New(ctx context.Context, opts ...Option) (*Shim, error) {
	var c config
	for _, opt := range opts {
		opt(&c)
	}

	s := &Shim{
		tensors:  newTable[*tensor.Tensor](),
		modules:  newTable[*module.Module](),
		logLevel: zap.NewAtomicLevelAt(zapcore.WarnLevel),
	}

	logger := c.logger
	if logger == nil {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = s.logLevel
		built, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		logger = built
		s.ownsLog = true
	}

	eng, err := engine.New(ctx, engine.Config{
		MemoryLimitPages: c.memoryLimitPages,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	s.eng = eng
	return s, nil
}

// Close frees every outstanding resource and the engine. Handles become
// invalid; subsequent accessor calls return zero values.
func (s *Shim) Close(ctx context.Context) error {
	s.tensors.drain()
	var firstErr error
	for _, m := range s.modules.drain() {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.eng.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// guard converts a panic in a boundary function into an Internal status.
// Engine and library code report failures as values; a panic reaching here
// is a bug, but it must not cross the boundary.
func guard(origin string, st **status.Status) {
	if r := recover(); r != nil {
		*st = status.Internalf(origin, "panic: %v", r)
	}
}

// --- Tensor boundary ---

// TensorCreate validates and copies the caller's data into a new owned
// tensor, returning its handle.
func (s *Shim) TensorCreate(data []byte, shape []int64, dtype tensor.DType) (h Handle, st *status.Status) {
	defer guard("tensor_create", &st)

	t, err := tensor.New(data, shape, dtype)
	if err != nil {
		return 0, status.Wrap(status.InvalidArgument, "tensor_create", err)
	}
	return s.tensors.insert(t), status.New()
}

// TensorDType returns the element type, or Float32 for an invalid handle.
func (s *Shim) TensorDType(h Handle) tensor.DType {
	t, _ := s.tensors.get(h)
	return t.DType()
}

// TensorRank returns the rank, or 0 for an invalid handle.
func (s *Shim) TensorRank(h Handle) int32 {
	t, _ := s.tensors.get(h)
	return t.Rank()
}

// TensorShape returns a view of the shape. The slice is owned by the tensor
// and valid until TensorFree.
func (s *Shim) TensorShape(h Handle) []int64 {
	t, _ := s.tensors.get(h)
	return t.Shape()
}

// TensorDataSize returns the byte length of the tensor's data.
func (s *Shim) TensorDataSize(h Handle) int64 {
	t, _ := s.tensors.get(h)
	return t.NumBytes()
}

// TensorData returns a view of the raw bytes, owned by the tensor and valid
// until TensorFree.
func (s *Shim) TensorData(h Handle) []byte {
	t, _ := s.tensors.get(h)
	return t.Data()
}

// TensorFree releases a tensor handle. Safe on zero or unknown handles.
func (s *Shim) TensorFree(h Handle) {
	s.tensors.remove(h)
}

// TensorArrayFree releases every handle in hs. Safe on nil.
func (s *Shim) TensorArrayFree(hs []Handle) {
	for _, h := range hs {
		s.tensors.remove(h)
	}
}

// --- Module boundary ---

// ModuleLoad loads a model from caller memory and returns its handle.
func (s *Shim) ModuleLoad(ctx context.Context, data []byte) (h Handle, st *status.Status) {
	defer guard("module_load", &st)

	m, err := module.Load(ctx, s.eng, data)
	if err != nil {
		return 0, status.Wrap(status.ModelLoadFailed, "module_load", err)
	}
	return s.modules.insert(m), status.New()
}

// ModuleLoadFile loads a model from a file path and returns its handle.
func (s *Shim) ModuleLoadFile(ctx context.Context, path string) (h Handle, st *status.Status) {
	defer guard("module_load_file", &st)

	m, err := module.LoadFile(ctx, s.eng, path)
	if err != nil {
		return 0, status.Wrap(status.ModelLoadFailed, "module_load_file", err)
	}
	return s.modules.insert(m), status.New()
}

// ModuleInputCount returns the input arity, or 0 for an invalid handle.
func (s *Shim) ModuleInputCount(h Handle) int32 {
	m, _ := s.modules.get(h)
	return m.InputCount()
}

// ModuleOutputCount returns the output arity, or 0 for an invalid handle.
func (s *Shim) ModuleOutputCount(h Handle) int32 {
	m, _ := s.modules.get(h)
	return m.OutputCount()
}

// ModuleForward runs one inference pass. Input handles stay owned by the
// caller and may be freed as soon as the call returns; output handles are
// freshly allocated and must be released with TensorFree or
// TensorArrayFree. On failure no output handles are produced.
func (s *Shim) ModuleForward(ctx context.Context, mh Handle, inputs []Handle) (outs []Handle, st *status.Status) {
	defer guard("module_forward", &st)

	m, ok := s.modules.get(mh)
	if !ok {
		return nil, status.InvalidStatef("module_forward", "module not loaded")
	}

	ins := make([]*tensor.Tensor, len(inputs))
	for i, h := range inputs {
		t, ok := s.tensors.get(h)
		if !ok {
			return nil, status.InvalidArgumentf("module_forward", "input tensor %d is not a valid handle", i)
		}
		ins[i] = t
	}

	results, err := m.Forward(ctx, ins)
	if err != nil {
		return nil, status.Wrap(status.InferenceFailed, "module_forward", err)
	}

	outs = make([]Handle, len(results))
	for i, t := range results {
		outs[i] = s.tensors.insert(t)
	}
	return outs, status.New()
}

// ModuleFree releases a module handle. Safe on zero or unknown handles.
func (s *Shim) ModuleFree(h Handle) {
	if m, ok := s.modules.remove(h); ok {
		_ = m.Close()
	}
}

// --- Backend and utility boundary ---

// BackendAvailable reports whether a backend is compiled into this build.
func (s *Shim) BackendAvailable(id backend.ID) bool {
	return backend.Available(id)
}

// BackendList fills dst with the compiled-in backends, bounded by len(dst),
// and returns the count written.
func (s *Shim) BackendList(dst []backend.ID) int {
	return backend.List(dst)
}

// Version returns the boundary version string.
func (s *Shim) Version() string {
	return tensorbridge.Version
}

// EngineVersion returns the linked engine's version string.
func (s *Shim) EngineVersion() string {
	return tensorbridge.EngineVersion()
}

// SetDebugLogging switches the shim's own logger between warn and debug
// level. When the embedder supplied a logger via WithLogger, level control
// belongs to them and this is a no-op.
func (s *Shim) SetDebugLogging(enabled bool) {
	if !s.ownsLog {
		return
	}
	if enabled {
		s.logLevel.SetLevel(zapcore.DebugLevel)
	} else {
		s.logLevel.SetLevel(zapcore.WarnLevel)
	}
}
