package engine

import (
	"bytes"
	"context"
	"testing"

	"github.com/tensorbridge/tensorbridge/internal/progbuild"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()
	eng, err := New(ctx, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { eng.Close(ctx) })
	return eng
}

func TestLoadRejectsCorruptProgram(t *testing.T) {
	eng := newEngine(t)
	if _, err := eng.Load(context.Background(), []byte{0xDE, 0xAD, 0xBE, 0xEF}); err == nil {
		t.Fatal("expected compile failure for corrupt bytes")
	}
}

func TestInstantiateResolvesEntryPoints(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	prog, err := eng.Load(ctx, progbuild.Identity(1, 1))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	inst, err := prog.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)
}

func TestInstantiateMissingForward(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	prog, err := eng.Load(ctx, progbuild.NoForward())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := prog.Instantiate(ctx); err == nil {
		t.Fatal("expected entry-point resolution failure")
	}
}

func TestArityMetadata(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	prog, err := eng.Load(ctx, progbuild.Identity(2, 3))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	inst, err := prog.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	if n, ok := inst.Arity(ctx, "input_count"); !ok || n != 2 {
		t.Errorf("input_count = %d, %v; want 2, true", n, ok)
	}
	if n, ok := inst.Arity(ctx, "output_count"); !ok || n != 3 {
		t.Errorf("output_count = %d, %v; want 3, true", n, ok)
	}
}

func TestArityMissing(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	prog, err := eng.Load(ctx, progbuild.IdentityNoMetadata())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	inst, err := prog.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	if _, ok := inst.Arity(ctx, "input_count"); ok {
		t.Error("expected missing metadata export")
	}
}

func TestCallRoundTripsBlob(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	prog, err := eng.Load(ctx, progbuild.Identity(1, 1))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	inst, err := prog.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	in := []byte{'T', 'B', 'R', '1', 9, 8, 7, 6, 5, 4, 3, 2, 1}
	out, err := inst.Call(ctx, in)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Errorf("identity program changed the blob: in %x, out %x", in, out)
	}

	// The returned blob must be owned, not a view into program memory.
	out2, err := inst.Call(ctx, []byte{'X', 'X', 'X', 'X'})
	if err != nil {
		t.Fatalf("second Call: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Error("first result mutated by second call")
	}
	if !bytes.Equal(out2, []byte{'X', 'X', 'X', 'X'}) {
		t.Errorf("second result = %x", out2)
	}
}

func TestCallTrapTranslatesToError(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	prog, err := eng.Load(ctx, progbuild.Trapping())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	inst, err := prog.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	if _, err := inst.Call(ctx, []byte{1}); err == nil {
		t.Fatal("expected trap to surface as an error")
	}
}
