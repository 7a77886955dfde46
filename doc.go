// Package tensorbridge provides a stable, handle-oriented boundary over an
// on-device inference engine.
//
// Models are ahead-of-time compiled programs executed by an embedded engine
// (wazero). The library loads a program, marshals caller tensors into the
// engine's linear memory, runs the program's forward entry point, and copies
// the resulting tensors back into caller-owned values. It implements no
// kernels of its own.
//
// # Architecture Overview
//
// The library is organized into packages with distinct responsibilities:
//
//	tensorbridge/        Root package with the program ABI contract
//	├── status/          Stable status codes and boundary error type
//	├── tensor/          Caller-owned tensor values (dtype, shape, data)
//	├── transcoder/      Tensor-list wire format encoding/decoding
//	├── engine/          Low-level wazero integration
//	├── module/          High-level model lifecycle and forward execution
//	├── backend/         Compiled-in acceleration backend registry
//	├── shim/            Flat, handle-based boundary for FFI embedding
//	├── metrics/         Prometheus collectors for load/forward paths
//	└── cmd/run/         CLI for inspecting and running programs
//
// # Quick Start
//
// Load and run a model:
//
//	eng, err := engine.New(ctx, engine.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	mod, err := module.LoadFile(ctx, eng, "model.tbp")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mod.Close()
//
//	in, _ := tensor.New(data, []int64{1, 3}, tensor.Float32)
//	outs, err := mod.Forward(ctx, []*tensor.Tensor{in})
//
// # Thread Safety
//
// Engine is safe for concurrent use. Forward calls on one Module are
// serialized internally; distinct Modules run fully in parallel. Load and
// Close must not race Forward on the same Module.
//
// # Ownership
//
// Tensor construction copies caller data; forward outputs own their memory
// and remain valid after the Module is closed. Views returned by accessors
// (Shape, Data) are valid only while the owning Tensor is reachable.
package tensorbridge
