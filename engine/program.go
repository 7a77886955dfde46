package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/tensorbridge/tensorbridge"
)

// Program is a compiled, not yet executable, inference program.
type Program struct {
	engine   *Engine
	compiled wazero.CompiledModule
}

// Instantiate creates an executable instance and resolves the program's
// entry points. A missing memory, allocator, or forward export is reported
// here, as is any failure inside the program's start function; both count
// as load failures to callers.
func (p *Program) Instantiate(ctx context.Context) (*Instance, error) {
	// Anonymous instances so distinct modules can instantiate in parallel.
	mod, err := p.engine.runtime.InstantiateModule(ctx, p.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, fmt.Errorf("instantiate program: %w", err)
	}

	inst := &Instance{
		engine: p.engine,
		mod:    mod,
		mem:    mod.Memory(),
	}
	if inst.mem == nil {
		_ = mod.Close(ctx)
		return nil, fmt.Errorf("program exports no %q", tensorbridge.ExportMemory)
	}

	inst.alloc = mod.ExportedFunction(tensorbridge.ExportAlloc)
	if inst.alloc == nil {
		_ = mod.Close(ctx)
		return nil, fmt.Errorf("program exports no %q", tensorbridge.ExportAlloc)
	}

	inst.forward = mod.ExportedFunction(tensorbridge.ExportForward)
	if inst.forward == nil {
		_ = mod.Close(ctx)
		return nil, fmt.Errorf("program exports no %q entry point", tensorbridge.ExportForward)
	}

	p.engine.log.Debug("program instantiated")
	return inst, nil
}

// Close releases the compiled program. Instances created from it must be
// closed first.
func (p *Program) Close(ctx context.Context) error {
	return p.compiled.Close(ctx)
}

// Instance is an executable program instance. It is not safe for concurrent
// use; the owning module serializes access.
type Instance struct {
	engine  *Engine
	mod     api.Module
	mem     api.Memory
	alloc   api.Function
	forward api.Function
}

// Arity queries an optional metadata export. ok is false when the program
// does not provide it or the query itself fails.
func (i *Instance) Arity(ctx context.Context, export string) (n int32, ok bool) {
	fn := i.mod.ExportedFunction(export)
	if fn == nil {
		return 0, false
	}
	res, err := fn.Call(ctx)
	if err != nil || len(res) == 0 {
		i.engine.log.Warn("metadata query failed", zap.String("export", export), zap.Error(err))
		return 0, false
	}
	return int32(res[0]), true
}

// Call writes blob into program memory, runs forward over it, and returns a
// copy of the result blob. The input blob is fully copied into engine memory
// before execution, so the caller may reuse it immediately.
func (i *Instance) Call(ctx context.Context, blob []byte) ([]byte, error) {
	res, err := i.alloc.Call(ctx, uint64(len(blob)))
	if err != nil {
		return nil, fmt.Errorf("program alloc: %w", err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("program alloc returned nothing")
	}
	ptr := uint32(res[0])

	if !i.mem.Write(ptr, blob) {
		return nil, fmt.Errorf("write %d input bytes at %d: out of bounds", len(blob), ptr)
	}

	res, err = i.forward.Call(ctx, uint64(ptr), uint64(len(blob)))
	if err != nil {
		return nil, fmt.Errorf("forward execution: %w", err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("forward returned nothing")
	}

	outPtr, outLen := tensorbridge.UnpackResult(res[0])
	out, okRead := i.mem.Read(outPtr, outLen)
	if !okRead {
		return nil, fmt.Errorf("read %d output bytes at %d: out of bounds", outLen, outPtr)
	}

	// mem.Read returns a view into program memory; hand back an owned copy.
	owned := make([]byte, len(out))
	copy(owned, out)
	return owned, nil
}

// Close releases the instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.mod.Close(ctx)
}
