package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/tensorbridge/tensorbridge"
	"github.com/tensorbridge/tensorbridge/backend"
	"github.com/tensorbridge/tensorbridge/engine"
	"github.com/tensorbridge/tensorbridge/module"
	"github.com/tensorbridge/tensorbridge/tensor"
)

func main() {
	var (
		modelFile   = flag.String("model", "", "Path to model program file")
		inputSpec   = flag.String("inputs", "", "Input tensors as shape=values pairs (e.g. 1,3=0.5,1,2;2=3,4)")
		dtypeName   = flag.String("dtype", "float32", "Element type for all inputs")
		info        = flag.Bool("info", false, "Print model metadata and exit")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *modelFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -model <file> [-inputs shape=values;...] [-dtype type]")
		fmt.Fprintln(os.Stderr, "       run -model <file> -info")
		fmt.Fprintln(os.Stderr, "       run -model <file> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*modelFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*modelFile, *inputSpec, *dtypeName, *info, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(modelFile, inputSpec, dtypeName string, infoOnly, debug bool) error {
	ctx := context.Background()

	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		logCfg.Level.SetLevel(zapcore.DebugLevel)
	}
	logger, err := logCfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	eng, err := engine.New(ctx, engine.Config{Logger: logger})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer eng.Close(ctx)

	mod, err := module.LoadFile(ctx, eng, modelFile)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	defer mod.Close()

	fmt.Printf("Model: %s (%d bytes)\n", modelFile, mod.ModelSize())
	fmt.Printf("Inputs: %d\n", mod.InputCount())
	fmt.Printf("Outputs: %d\n", mod.OutputCount())
	fmt.Printf("Backends: %s\n", backendNames())
	fmt.Printf("Version: %s (engine %s)\n", tensorbridge.Version, tensorbridge.EngineVersion())

	if infoOnly {
		return nil
	}

	dt, err := parseDType(dtypeName)
	if err != nil {
		return err
	}

	inputs, err := parseInputs(inputSpec, dt, int(mod.InputCount()))
	if err != nil {
		return err
	}

	fmt.Printf("\nRunning forward with %d input(s)...\n", len(inputs))
	outputs, err := mod.Forward(ctx, inputs)
	if err != nil {
		return fmt.Errorf("forward: %w", err)
	}

	for i, out := range outputs {
		fmt.Printf("output[%d]: %s\n", i, formatTensor(out))
	}
	return nil
}

func backendNames() string {
	ids := make([]backend.ID, 8)
	n := backend.List(ids)
	names := make([]string, 0, n)
	for _, id := range ids[:n] {
		names = append(names, id.String())
	}
	return strings.Join(names, ", ")
}

func parseDType(name string) (tensor.DType, error) {
	switch strings.ToLower(name) {
	case "float32", "f32":
		return tensor.Float32, nil
	case "float64", "f64":
		return tensor.Float64, nil
	case "int64", "i64":
		return tensor.Int64, nil
	case "int32", "i32":
		return tensor.Int32, nil
	case "int16", "i16":
		return tensor.Int16, nil
	case "int8", "i8":
		return tensor.Int8, nil
	case "uint8", "u8":
		return tensor.UInt8, nil
	case "bool":
		return tensor.Bool, nil
	}
	return 0, fmt.Errorf("unknown dtype %q", name)
}

// parseInputs turns "1,3=0.5,1,2;2=3,4" into tensors. An empty spec yields
// one single-element zero tensor per declared input so a model can be poked
// without typing data.
func parseInputs(spec string, dt tensor.DType, want int) ([]*tensor.Tensor, error) {
	if spec == "" {
		inputs := make([]*tensor.Tensor, want)
		for i := range inputs {
			t, err := tensor.New(make([]byte, dt.Size()), []int64{1}, dt)
			if err != nil {
				return nil, err
			}
			inputs[i] = t
		}
		return inputs, nil
	}

	parts := strings.Split(spec, ";")
	inputs := make([]*tensor.Tensor, 0, len(parts))
	for i, part := range parts {
		t, err := parseTensor(part, dt)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		inputs = append(inputs, t)
	}
	return inputs, nil
}

func parseTensor(spec string, dt tensor.DType) (*tensor.Tensor, error) {
	shapeStr, valStr, ok := strings.Cut(spec, "=")
	if !ok {
		return nil, fmt.Errorf("missing '=' in %q (want shape=values)", spec)
	}

	var shape []int64
	for _, d := range strings.Split(shapeStr, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(d), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad dimension %q: %w", d, err)
		}
		shape = append(shape, v)
	}

	data, err := encodeValues(strings.Split(valStr, ","), dt)
	if err != nil {
		return nil, err
	}
	return tensor.New(data, shape, dt)
}

func encodeValues(vals []string, dt tensor.DType) ([]byte, error) {
	out := make([]byte, 0, len(vals)*int(dt.Size()))
	for _, raw := range vals {
		raw = strings.TrimSpace(raw)
		switch dt {
		case tensor.Float32:
			v, err := strconv.ParseFloat(raw, 32)
			if err != nil {
				return nil, fmt.Errorf("bad value %q: %w", raw, err)
			}
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(v)))
		case tensor.Float64:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("bad value %q: %w", raw, err)
			}
			out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
		case tensor.Int64:
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad value %q: %w", raw, err)
			}
			out = binary.LittleEndian.AppendUint64(out, uint64(v))
		case tensor.Int32:
			v, err := strconv.ParseInt(raw, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad value %q: %w", raw, err)
			}
			out = binary.LittleEndian.AppendUint32(out, uint32(v))
		case tensor.Int16:
			v, err := strconv.ParseInt(raw, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("bad value %q: %w", raw, err)
			}
			out = binary.LittleEndian.AppendUint16(out, uint16(v))
		case tensor.Int8:
			v, err := strconv.ParseInt(raw, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("bad value %q: %w", raw, err)
			}
			out = append(out, byte(v))
		case tensor.UInt8:
			v, err := strconv.ParseUint(raw, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("bad value %q: %w", raw, err)
			}
			out = append(out, byte(v))
		case tensor.Bool:
			if raw == "true" || raw == "1" {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		default:
			return nil, fmt.Errorf("cannot encode dtype %s", dt)
		}
	}
	return out, nil
}

const maxPrintElements = 16

func formatTensor(t *tensor.Tensor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%v [", t.DType(), t.Shape())

	n := int(t.NumElements())
	shown := n
	if shown > maxPrintElements {
		shown = maxPrintElements
	}
	data := t.Data()
	for i := 0; i < shown; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatElement(data, i, t.DType()))
	}
	if shown < n {
		fmt.Fprintf(&b, ", ... (%d total)", n)
	}
	b.WriteString("]")
	return b.String()
}

func formatElement(data []byte, i int, dt tensor.DType) string {
	off := i * int(dt.Size())
	switch dt {
	case tensor.Float32:
		return strconv.FormatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))), 'g', -1, 32)
	case tensor.Float64:
		return strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(data[off:])), 'g', -1, 64)
	case tensor.Int64:
		return strconv.FormatInt(int64(binary.LittleEndian.Uint64(data[off:])), 10)
	case tensor.Int32:
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(data[off:]))), 10)
	case tensor.Int16:
		return strconv.FormatInt(int64(int16(binary.LittleEndian.Uint16(data[off:]))), 10)
	case tensor.Int8:
		return strconv.FormatInt(int64(int8(data[off])), 10)
	case tensor.UInt8:
		return strconv.FormatUint(uint64(data[off]), 10)
	case tensor.Bool:
		if data[off] != 0 {
			return "true"
		}
		return "false"
	}
	return "?"
}
