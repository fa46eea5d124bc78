package script

import (
	"context"
	"fmt"
	"sort"

	"github.com/nerrad567/afkloop/internal/input"
)

// Kind classifies how a function is dispatched.
type Kind int

const (
	// Contextual actions act on the game window. The window-bound operator
	// is injected ahead of the script's arguments.
	Contextual Kind = iota + 1

	// ContextFree actions need no window.
	ContextFree

	// Pure functions produce a value and have no side effects.
	Pure
)

func (k Kind) String() string {
	switch k {
	case Contextual:
		return "contextual"
	case ContextFree:
		return "context-free"
	case Pure:
		return "pure"
	default:
		return "unknown"
	}
}

// Function is one registry entry. Exactly one of the three bodies is set,
// matching Kind.
type Function struct {
	Name string
	Kind Kind
	Doc  string

	contextual  func(ctx context.Context, op *Operator, args []any) error
	contextFree func(ctx context.Context, m input.Mouse, args []any) error
	pure        func(op *Operator, args []any) (any, error)
}

// registry is the static dispatch table.
var registry = map[string]Function{
	"按下": {
		Name: "按下", Kind: Contextual, Doc: "按下(key) presses a key",
		contextual: func(_ context.Context, op *Operator, args []any) error {
			key, err := argString(args, 0, "")
			if err != nil {
				return err
			}
			return op.Keys.KeyDown(key)
		},
	},
	"释放": {
		Name: "释放", Kind: Contextual, Doc: "释放(key) releases a key",
		contextual: func(_ context.Context, op *Operator, args []any) error {
			key, err := argString(args, 0, "")
			if err != nil {
				return err
			}
			return op.Keys.KeyUp(key)
		},
	},
	"随机移动": {
		Name: "随机移动", Kind: Contextual, Doc: "随机移动(seconds) walks in a random direction",
		contextual: func(ctx context.Context, op *Operator, args []any) error {
			secs, err := argSeconds(args, 0, -1)
			if err != nil {
				return err
			}
			return op.RandomMove(ctx, Duration(secs))
		},
	},
	"随机转向": {
		Name: "随机转向", Kind: Contextual, Doc: "随机转向(seconds) turns left or right",
		contextual: func(ctx context.Context, op *Operator, args []any) error {
			secs, err := argSeconds(args, 0, -1)
			if err != nil {
				return err
			}
			return op.RandomVeer(ctx, Duration(secs))
		},
	},
	"ctrl技能": {
		Name: "ctrl技能", Kind: Contextual, Doc: "ctrl技能([key] [seconds]) holds the skill key",
		contextual: func(ctx context.Context, op *Operator, args []any) error {
			key, err := argString(args, 0, DefaultSkillKey)
			if err != nil {
				return err
			}
			secs, err := argSeconds(args, 1, DefaultCtrlHold)
			if err != nil {
				return err
			}
			return op.KillerCtrl(ctx, key, Duration(secs))
		},
	},
	"技能": {
		Name: "技能", Kind: Contextual, Doc: "技能([key]) aims and taps the skill key",
		contextual: func(ctx context.Context, op *Operator, args []any) error {
			key, err := argString(args, 0, DefaultSkillKey)
			if err != nil {
				return err
			}
			return op.KillerSkill(ctx, key)
		},
	},
	"点击技能": {
		Name: "点击技能", Kind: Contextual, Doc: "点击技能([key]) aims, clicks and taps the skill key",
		contextual: func(ctx context.Context, op *Operator, args []any) error {
			key, err := argString(args, 0, DefaultSkillKey)
			if err != nil {
				return err
			}
			return op.KillerSkillClick(ctx, key)
		},
	},
	"按下鼠标": {
		Name: "按下鼠标", Kind: ContextFree, Doc: "按下鼠标([左键|右键]) presses a mouse button",
		contextFree: func(_ context.Context, m input.Mouse, args []any) error {
			button, err := argButton(args)
			if err != nil {
				return err
			}
			return m.MouseDown(button)
		},
	},
	"释放鼠标": {
		Name: "释放鼠标", Kind: ContextFree, Doc: "释放鼠标([左键|右键]) releases a mouse button",
		contextFree: func(_ context.Context, m input.Mouse, args []any) error {
			button, err := argButton(args)
			if err != nil {
				return err
			}
			return m.MouseUp(button)
		},
	},
	"等待": {
		Name: "等待", Kind: ContextFree, Doc: "等待(seconds) sleeps",
		contextFree: func(ctx context.Context, _ input.Mouse, args []any) error {
			secs, err := argSeconds(args, 0, -1)
			if err != nil {
				return err
			}
			return input.Sleep(ctx, Duration(secs))
		},
	},
	"随机移动时间": {
		Name: "随机移动时间", Kind: Pure, Doc: "随机移动时间([min] [max]) returns a walk duration",
		pure: func(op *Operator, args []any) (any, error) {
			return uniformArgs(op, args, DefaultMoveMin, DefaultMoveMax)
		},
	},
	"随机转向时间": {
		Name: "随机转向时间", Kind: Pure, Doc: "随机转向时间([min] [max]) returns a turn duration",
		pure: func(op *Operator, args []any) (any, error) {
			return uniformArgs(op, args, DefaultVeerMin, DefaultVeerMax)
		},
	},
	"随机移动方向": {
		Name: "随机移动方向", Kind: Pure, Doc: "随机移动方向([weights]) returns w, a, s or d",
		pure: func(op *Operator, args []any) (any, error) {
			w, err := argWeights(args)
			if err != nil {
				return nil, err
			}
			return op.Movement(w), nil
		},
	},
	"随机转向方向": {
		Name: "随机转向方向", Kind: Pure, Doc: "随机转向方向([weights]) returns left or right",
		pure: func(op *Operator, args []any) (any, error) {
			w, err := argWeights(args)
			if err != nil {
				return nil, err
			}
			return op.Direction(w), nil
		},
	},
}

// Lookup returns the registry entry for name.
func Lookup(name string) (Function, bool) {
	f, ok := registry[name]
	return f, ok
}

// Functions lists every registered function, sorted by kind then name.
func Functions() []Function {
	out := make([]Function, 0, len(registry))
	for _, f := range registry {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ─── Argument helpers ───────────────────────────────────────────────

// argString returns args[i] as a name. An empty def makes it required.
func argString(args []any, i int, def string) (string, error) {
	if i >= len(args) {
		if def == "" {
			return "", fmt.Errorf("%w: argument %d missing", ErrBadArgument, i+1)
		}
		return def, nil
	}
	return str(args[i])
}

// argSeconds returns args[i] as seconds. A negative def makes it required.
func argSeconds(args []any, i int, def float64) (float64, error) {
	if i >= len(args) {
		if def < 0 {
			return 0, fmt.Errorf("%w: argument %d missing", ErrBadArgument, i+1)
		}
		return def, nil
	}
	secs, err := seconds(args[i])
	if err != nil {
		return 0, err
	}
	if secs < 0 {
		return 0, fmt.Errorf("%w: negative duration %v", ErrBadArgument, secs)
	}
	return secs, nil
}

func argButton(args []any) (string, error) {
	if len(args) == 0 {
		return input.ButtonLeft, nil
	}
	name, err := str(args[0])
	if err != nil {
		return "", err
	}
	button, ok := mouseButton(name)
	if !ok {
		return "", fmt.Errorf("%w: unknown mouse button %q", ErrBadArgument, name)
	}
	return button, nil
}

func argWeights(args []any) (Weights, error) {
	if len(args) == 0 {
		return nil, nil
	}
	w, ok := args[0].(Weights)
	if !ok {
		return nil, fmt.Errorf("%w: %v is not a weights table", ErrBadArgument, args[0])
	}
	return w, nil
}

func uniformArgs(op *Operator, args []any, lo, hi float64) (any, error) {
	var err error
	if len(args) > 0 {
		if lo, err = seconds(args[0]); err != nil {
			return nil, err
		}
	}
	if len(args) > 1 {
		if hi, err = seconds(args[1]); err != nil {
			return nil, err
		}
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return op.Uniform(lo, hi), nil
}
