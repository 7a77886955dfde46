package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

// Engine owns the underlying inference runtime. One Engine can serve many
// programs and is safe for concurrent use; per-instance execution is
// serialized by the callers that own the instances.
type Engine struct {
	runtime wazero.Runtime
	log     *zap.Logger
}

// Config controls engine creation. The logger is an explicit capability;
// leave it nil for no logging.
type Config struct {
	// MemoryLimitPages caps linear memory per program instance in 64KiB
	// pages. 0 keeps the runtime default.
	MemoryLimitPages uint32

	Logger *zap.Logger
}

// New creates an engine backed by a fresh runtime.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		log:     log,
	}, nil
}

// Load compiles a serialized program. The blob is not retained; callers that
// need the raw bytes afterwards keep their own copy.
func (e *Engine) Load(ctx context.Context, blob []byte) (*Program, error) {
	compiled, err := e.runtime.CompileModule(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("compile program: %w", err)
	}

	e.log.Debug("program compiled", zap.Int("bytes", len(blob)))

	return &Program{
		engine:   e,
		compiled: compiled,
	}, nil
}

// Logger returns the engine's logger capability.
func (e *Engine) Logger() *zap.Logger {
	return e.log
}

// Close releases the runtime and every compiled program derived from it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
