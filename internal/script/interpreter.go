package script

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"
)

// MutationNotice is raised once when a pass is aborted by a reload.
const MutationNotice = "do not modify the script while it is running"

// Notifier receives operator-facing notices.
type Notifier interface {
	Notify(ctx context.Context, msg, level string)
}

// Waiter blocks while input is paused. *input.Tracker implements it.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Logger defines the logging interface for the interpreter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Result summarises one Execute pass.
type Result struct {
	// Matched is true when at least one character block ran.
	Matched bool

	// Common is the size of the common block at the time of the pass.
	Common int

	Ran     int
	Skipped int
	Failed  int
}

// Handled reports whether the script stood in for the built-in routine.
func (r Result) Handled() bool {
	return r.Matched || r.Common > 0
}

// Interpreter loads and runs a script.
//
// Thread Safety:
//   - Load, Watch and Execute may run on different goroutines. A pass that
//     observes a reload aborts with ErrConcurrentMutation; the program it
//     was iterating is never modified.
type Interpreter struct {
	src      Source
	op       *Operator
	logger   Logger
	notifier Notifier
	gate     Waiter

	// loadMu serialises Load so one modification time is parsed once.
	loadMu sync.Mutex

	mu         sync.RWMutex
	program    *Program
	modTime    time.Time
	loaded     bool
	generation uint64
	parses     int
	noticed    uint64
}

// New creates an interpreter. Nothing is read until the first Load.
func New(src Source, op *Operator) *Interpreter {
	return &Interpreter{
		src:     src,
		op:      op,
		logger:  noopLogger{},
		program: &Program{},
	}
}

// SetLogger sets the logger.
func (in *Interpreter) SetLogger(l Logger) {
	if l != nil {
		in.logger = l
	}
}

// SetNotifier sets the notice sink.
func (in *Interpreter) SetNotifier(n Notifier) {
	in.notifier = n
}

// SetGate makes Execute wait on g before every line, so a pause takes
// effect after the line in progress.
func (in *Interpreter) SetGate(g Waiter) {
	in.gate = g
}

// Load re-parses the script if its modification time changed.
// A missing script loads as an empty program.
func (in *Interpreter) Load() error {
	in.loadMu.Lock()
	defer in.loadMu.Unlock()

	modTime, err := in.src.Stat()
	if errors.Is(err, fs.ErrNotExist) {
		in.install(&Program{}, time.Time{}, false)
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking script: %w", err)
	}

	in.mu.RLock()
	fresh := in.loaded && in.modTime.Equal(modTime)
	in.mu.RUnlock()
	if fresh {
		return nil
	}

	text, err := in.src.Read()
	if errors.Is(err, fs.ErrNotExist) {
		in.install(&Program{}, time.Time{}, false)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	prog := Parse(text)
	prog.ModTime = modTime
	in.install(prog, modTime, true)

	for _, pe := range prog.Errors() {
		in.logger.Warn("script line rejected", "line", pe.Line, "text", pe.Text, "error", pe.Err)
	}
	in.logger.Info("script loaded",
		"common", len(prog.Common),
		"characters", len(prog.Characters),
		"errors", len(prog.Errors()),
	)
	return nil
}

// install swaps in a new program. An empty program replacing an empty
// program is not a change.
func (in *Interpreter) install(prog *Program, modTime time.Time, parsed bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !parsed && in.loaded && in.modTime.IsZero() && in.program.Empty() {
		return
	}
	in.program = prog
	in.modTime = modTime
	in.loaded = true
	in.generation++
	if parsed {
		in.parses++
	}
}

// Watch calls Load every interval until ctx is done.
func (in *Interpreter) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := in.Load(); err != nil {
				in.logger.Warn("script reload failed", "error", err)
			}
		}
	}
}

// Program returns the current program.
func (in *Interpreter) Program() *Program {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.program
}

// Parses returns how many times the script text has been parsed.
func (in *Interpreter) Parses() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.parses
}

func (in *Interpreter) snapshot() (*Program, uint64) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.program, in.generation
}

func (in *Interpreter) currentGeneration() uint64 {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.generation
}

// Execute runs one pass for character.
//
// Every character block whose name is contained in character runs in file
// order. With no such block, or an empty character, the common block runs.
// Lines with parse errors are skipped; failing actions are logged and the
// pass continues.
//
// Returns:
//   - Result: what ran
//   - error: ErrConcurrentMutation, ctx.Err(), or a Load failure
func (in *Interpreter) Execute(ctx context.Context, character string) (Result, error) {
	if err := in.Load(); err != nil {
		return Result{}, err
	}
	prog, gen := in.snapshot()

	res := Result{Common: len(prog.Common)}
	var lines []ActionLine
	if blocks := prog.Blocks(character); len(blocks) > 0 {
		res.Matched = true
		for _, b := range blocks {
			lines = append(lines, b.Lines...)
		}
	} else {
		lines = prog.Common
	}

	bindings := make(map[string]any)
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if in.gate != nil {
			if err := in.gate.Wait(ctx); err != nil {
				return res, err
			}
		}
		if in.currentGeneration() != gen {
			in.noticeMutation(ctx, gen)
			return res, ErrConcurrentMutation
		}
		if line.Err != nil {
			in.logger.Debug("skipping script line", "line", line.Line, "error", line.Err)
			res.Skipped++
			continue
		}

		err := in.run(ctx, line, bindings)
		res.Ran++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Failed++
			in.logger.Warn("script action failed", "line", line.Line, "func", line.Func, "error", err)
		}
	}
	return res, nil
}

// noticeMutation raises MutationNotice once per aborted generation.
func (in *Interpreter) noticeMutation(ctx context.Context, gen uint64) {
	in.mu.Lock()
	first := in.noticed != gen
	in.noticed = gen
	in.mu.Unlock()

	in.logger.Warn("script changed mid-pass, aborting")
	if first && in.notifier != nil {
		in.notifier.Notify(ctx, MutationNotice, "error")
	}
}

func (in *Interpreter) run(ctx context.Context, line ActionLine, bindings map[string]any) error {
	fn, ok := Lookup(line.Func)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, line.Func)
	}
	args, err := in.resolveArgs(line.Args, bindings)
	if err != nil {
		return err
	}

	switch fn.Kind {
	case Pure:
		v, err := fn.pure(in.op, args)
		if err != nil {
			return err
		}
		bindings[line.Binding] = v
		return nil
	case Contextual:
		return fn.contextual(ctx, in.op, args)
	case ContextFree:
		return fn.contextFree(ctx, in.op.Mouse, args)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFunction, line.Func)
	}
}

// resolveArgs parses tokens, replaces value-function names with their
// result (consuming a following weights table as their argument), then
// substitutes bound names.
func (in *Interpreter) resolveArgs(tokens []string, bindings map[string]any) ([]any, error) {
	vals := make([]any, 0, len(tokens))
	for _, t := range tokens {
		vals = append(vals, ParseValue(t))
	}

	for i := 0; i < len(vals); i++ {
		name, ok := vals[i].(string)
		if !ok {
			continue
		}
		fn, ok := Lookup(name)
		if !ok || fn.Kind != Pure {
			continue
		}
		var fargs []any
		consumed := 0
		if i+1 < len(vals) {
			if w, isW := vals[i+1].(Weights); isW {
				fargs = []any{w}
				consumed = 1
			}
		}
		v, err := fn.pure(in.op, fargs)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s: %w", name, err)
		}
		vals[i] = v
		vals = append(vals[:i+1], vals[i+1+consumed:]...)
	}

	for i, v := range vals {
		if name, ok := v.(string); ok {
			if bound, found := bindings[name]; found {
				vals[i] = bound
			}
		}
	}
	return vals, nil
}
