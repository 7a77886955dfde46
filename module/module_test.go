package module

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tensorbridge/tensorbridge/engine"
	"github.com/tensorbridge/tensorbridge/internal/progbuild"
	"github.com/tensorbridge/tensorbridge/metrics"
	"github.com/tensorbridge/tensorbridge/status"
	"github.com/tensorbridge/tensorbridge/tensor"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	ctx := context.Background()
	eng, err := engine.New(ctx, engine.Config{})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { eng.Close(ctx) })
	return eng
}

func loadIdentity(t *testing.T, eng *engine.Engine) *Module {
	t.Helper()
	m, err := Load(context.Background(), eng, progbuild.Identity(1, 1))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestLoadRejectsEmptyData(t *testing.T) {
	eng := newEngine(t)
	for _, data := range [][]byte{nil, {}} {
		_, err := Load(context.Background(), eng, data)
		if got := status.CodeOf(err); got != status.InvalidArgument {
			t.Errorf("Load(%v) code = %v, want InvalidArgument", data, got)
		}
	}
}

func TestLoadValidationFailuresAreCounted(t *testing.T) {
	eng := newEngine(t)

	byteErrs := metrics.ModuleLoadsTotal.WithLabelValues(metrics.SourceBytes, metrics.OutcomeError)
	before := testutil.ToFloat64(byteErrs)
	if _, err := Load(context.Background(), eng, nil); err == nil {
		t.Fatal("expected load failure")
	}
	if got := testutil.ToFloat64(byteErrs); got != before+1 {
		t.Errorf("byte-load errors = %v, want %v", got, before+1)
	}

	fileErrs := metrics.ModuleLoadsTotal.WithLabelValues(metrics.SourceFile, metrics.OutcomeError)
	before = testutil.ToFloat64(fileErrs)
	if _, err := LoadFile(context.Background(), eng, ""); err == nil {
		t.Fatal("expected load failure")
	}
	if got := testutil.ToFloat64(fileErrs); got != before+1 {
		t.Errorf("file-load errors = %v, want %v", got, before+1)
	}
}

func TestLoadRejectsCorruptProgram(t *testing.T) {
	eng := newEngine(t)
	_, err := Load(context.Background(), eng, []byte("not a program"))
	if got := status.CodeOf(err); got != status.ModelLoadFailed {
		t.Errorf("code = %v, want ModelLoadFailed", got)
	}
}

func TestLoadFailsOnMissingEntryPoint(t *testing.T) {
	eng := newEngine(t)
	_, err := Load(context.Background(), eng, progbuild.NoForward())
	if got := status.CodeOf(err); got != status.ModelLoadFailed {
		t.Errorf("code = %v, want ModelLoadFailed", got)
	}
	if !strings.Contains(err.Error(), "forward") {
		t.Errorf("error should name the missing entry point: %v", err)
	}
}

func TestLoadDoesNotAliasCallerBytes(t *testing.T) {
	eng := newEngine(t)
	data := progbuild.Identity(1, 1)
	m, err := Load(context.Background(), eng, data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer m.Close()

	for i := range data {
		data[i] = 0
	}

	in, _ := tensor.New(progbuild.Float32Blob(1), []int64{1}, tensor.Float32)
	if _, err := m.Forward(context.Background(), []*tensor.Tensor{in}); err != nil {
		t.Errorf("Forward after caller buffer reuse: %v", err)
	}
}

func TestArityMetadata(t *testing.T) {
	eng := newEngine(t)
	m, err := Load(context.Background(), eng, progbuild.Identity(2, 3))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer m.Close()

	if got := m.InputCount(); got != 2 {
		t.Errorf("InputCount = %d, want 2", got)
	}
	if got := m.OutputCount(); got != 3 {
		t.Errorf("OutputCount = %d, want 3", got)
	}
}

func TestArityFallback(t *testing.T) {
	eng := newEngine(t)
	m, err := Load(context.Background(), eng, progbuild.IdentityNoMetadata())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer m.Close()

	if m.InputCount() != 1 || m.OutputCount() != 1 {
		t.Errorf("arity fallback = %d/%d, want 1/1", m.InputCount(), m.OutputCount())
	}
}

func TestCountsOnNilAndClosed(t *testing.T) {
	var m *Module
	if m.InputCount() != 0 || m.OutputCount() != 0 {
		t.Error("nil module should report zero arity")
	}

	eng := newEngine(t)
	m = loadIdentity(t, eng)
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if m.InputCount() != 0 || m.OutputCount() != 0 {
		t.Error("closed module should report zero arity")
	}
}

func TestForwardIdentity(t *testing.T) {
	eng := newEngine(t)
	m := loadIdentity(t, eng)

	in, err := tensor.New(progbuild.Float32Blob(1, 2, 3), []int64{1, 3}, tensor.Float32)
	if err != nil {
		t.Fatalf("tensor.New: %v", err)
	}

	outs, err := m.Forward(context.Background(), []*tensor.Tensor{in})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if len(outs) != 1 {
		t.Fatalf("got %d outputs, want 1", len(outs))
	}
	if !outs[0].Equal(in) {
		t.Errorf("identity output differs: dtype %v shape %v data %x",
			outs[0].DType(), outs[0].Shape(), outs[0].Data())
	}

	// Outputs own their memory: freeing the input must not affect them.
	in = nil
	if outs[0].NumBytes() != 12 {
		t.Error("output lost its data")
	}
}

func TestForwardOnUnloadedModule(t *testing.T) {
	eng := newEngine(t)
	m := loadIdentity(t, eng)
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := m.Forward(context.Background(), nil)
	if got := status.CodeOf(err); got != status.InvalidState {
		t.Errorf("code = %v, want InvalidState", got)
	}

	var nilMod *Module
	_, err = nilMod.Forward(context.Background(), nil)
	if got := status.CodeOf(err); got != status.InvalidState {
		t.Errorf("nil module code = %v, want InvalidState", got)
	}
}

func TestForwardRejectsNilInput(t *testing.T) {
	eng := newEngine(t)
	m := loadIdentity(t, eng)

	in, _ := tensor.New(progbuild.Float32Blob(1), []int64{1}, tensor.Float32)
	_, err := m.Forward(context.Background(), []*tensor.Tensor{in, nil})
	if got := status.CodeOf(err); got != status.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", got)
	}
}

func TestForwardEngineTrap(t *testing.T) {
	eng := newEngine(t)
	m, err := Load(context.Background(), eng, progbuild.Trapping())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer m.Close()

	in, _ := tensor.New(progbuild.Float32Blob(1), []int64{1}, tensor.Float32)
	_, err = m.Forward(context.Background(), []*tensor.Tensor{in})
	if got := status.CodeOf(err); got != status.InferenceFailed {
		t.Errorf("code = %v, want InferenceFailed", got)
	}
}

func TestForwardGarbageOutput(t *testing.T) {
	eng := newEngine(t)
	m, err := Load(context.Background(), eng, progbuild.GarbageOutput())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer m.Close()

	in, _ := tensor.New(progbuild.Float32Blob(1), []int64{1}, tensor.Float32)
	outs, err := m.Forward(context.Background(), []*tensor.Tensor{in})
	if got := status.CodeOf(err); got != status.InferenceFailed {
		t.Errorf("code = %v, want InferenceFailed", got)
	}
	if outs != nil {
		t.Error("no partial outputs may be returned on failure")
	}
}

func TestForwardConcurrentSameModule(t *testing.T) {
	eng := newEngine(t)
	m := loadIdentity(t, eng)

	const goroutines = 8
	const iters = 25

	errs := make(chan error, goroutines)
	for g := 0; g < goroutines; g++ {
		go func(seed float32) {
			for i := 0; i < iters; i++ {
				v := seed*1000 + float32(i)
				in, err := tensor.New(progbuild.Float32Blob(v, v+1, v+2), []int64{1, 3}, tensor.Float32)
				if err != nil {
					errs <- err
					return
				}
				outs, err := m.Forward(context.Background(), []*tensor.Tensor{in})
				if err != nil {
					errs <- err
					return
				}
				if len(outs) != 1 || !outs[0].Equal(in) {
					errs <- status.Internalf("test", "cross-call corruption for seed %v", seed)
					return
				}
			}
			errs <- nil
		}(float32(g))
	}

	for g := 0; g < goroutines; g++ {
		if err := <-errs; err != nil {
			t.Fatal(err)
		}
	}
}

func TestForwardConcurrentDistinctModules(t *testing.T) {
	eng := newEngine(t)
	m1 := loadIdentity(t, eng)
	m2 := loadIdentity(t, eng)

	done := make(chan error, 2)
	for _, m := range []*Module{m1, m2} {
		go func(m *Module) {
			in, _ := tensor.New(progbuild.Float32Blob(7), []int64{1}, tensor.Float32)
			_, err := m.Forward(context.Background(), []*tensor.Tensor{in})
			done <- err
		}(m)
	}
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadFile(t *testing.T) {
	eng := newEngine(t)
	path := filepath.Join(t.TempDir(), "identity.tbp")
	if err := os.WriteFile(path, progbuild.Identity(1, 1), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadFile(context.Background(), eng, path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	defer m.Close()

	in, _ := tensor.New(progbuild.Float32Blob(4, 5), []int64{2}, tensor.Float32)
	outs, err := m.Forward(context.Background(), []*tensor.Tensor{in})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if !outs[0].Equal(in) {
		t.Error("identity mismatch via file load")
	}
}

func TestLoadFileErrors(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	_, err := LoadFile(ctx, eng, "")
	if got := status.CodeOf(err); got != status.InvalidArgument {
		t.Errorf("empty path code = %v, want InvalidArgument", got)
	}

	_, err = LoadFile(ctx, eng, filepath.Join(t.TempDir(), "missing.tbp"))
	if got := status.CodeOf(err); got != status.IOError {
		t.Errorf("missing file code = %v, want IOError", got)
	}

	bad := filepath.Join(t.TempDir(), "corrupt.tbp")
	if err := os.WriteFile(bad, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = LoadFile(ctx, eng, bad)
	if got := status.CodeOf(err); got != status.ModelLoadFailed {
		t.Errorf("corrupt file code = %v, want ModelLoadFailed", got)
	}
	if !strings.Contains(err.Error(), bad) {
		t.Errorf("file load failure should embed the path: %v", err)
	}
}

func TestCloseIsNilSafeAndIdempotent(t *testing.T) {
	var m *Module
	if err := m.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}

	eng := newEngine(t)
	m = loadIdentity(t, eng)
	if err := m.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
