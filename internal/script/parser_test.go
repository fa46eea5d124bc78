package script

import (
	"errors"
	"reflect"
	"testing"
)

const sampleScript = `# warm-up
t = 随机移动时间(1.5 3.0)
按下(w)
等待(t)
释放(w)

指定 -> 老张
随机移动(随机移动时间)
ctrl技能(lcontrol 4.3)

指定 -> Trapper
点击技能()
未知动作(1)
`

func texts(lines []ActionLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func TestParse_Blocks(t *testing.T) {
	p := Parse(sampleScript)

	wantCommon := []string{"t = 随机移动时间(1.5 3.0)", "按下(w)", "等待(t)", "释放(w)"}
	if got := texts(p.Common); !reflect.DeepEqual(got, wantCommon) {
		t.Errorf("Common = %v, want %v", got, wantCommon)
	}
	if len(p.Characters) != 2 {
		t.Fatalf("len(Characters) = %d, want 2", len(p.Characters))
	}
	if p.Characters[0].Name != "老张" || p.Characters[1].Name != "Trapper" {
		t.Errorf("block names = %q, %q", p.Characters[0].Name, p.Characters[1].Name)
	}
	if n := len(p.Characters[0].Lines); n != 2 {
		t.Errorf("老张 lines = %d, want 2", n)
	}
}

func TestParse_CallShapes(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantBinding string
		wantFunc    string
		wantArgs    []string
		wantErr     error
	}{
		{name: "bare", line: "按下(w)", wantFunc: "按下", wantArgs: []string{"w"}},
		{name: "no args", line: "点击技能()", wantFunc: "点击技能", wantArgs: []string{}},
		{name: "binding", line: "t = 随机移动时间(1 2)", wantBinding: "t", wantFunc: "随机移动时间", wantArgs: []string{"1", "2"}},
		{name: "extra spaces", line: "ctrl技能(  lcontrol   4.3 )", wantFunc: "ctrl技能", wantArgs: []string{"lcontrol", "4.3"}},
		{name: "text after paren ignored", line: "等待(1) trailing", wantFunc: "等待", wantArgs: []string{"1"}},
		{name: "missing paren", line: "按下 w", wantErr: ErrMissingParen},
		{name: "unclosed paren", line: "按下(w", wantErr: ErrUnclosedParen},
		{name: "unknown function", line: "跳舞(1)", wantErr: ErrUnknownFunction},
		{name: "binding of action", line: "x = 按下(w)", wantErr: ErrNotValueFunction},
		{name: "bare value function", line: "随机移动时间()", wantErr: ErrUnusedValue},
		{name: "binding without paren", line: "x = 随机移动时间", wantErr: ErrMissingParen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			al := parseCall(7, tt.line)
			if tt.wantErr != nil {
				if !errors.Is(al.Err, tt.wantErr) {
					t.Fatalf("Err = %v, want %v", al.Err, tt.wantErr)
				}
				var pe *ParseError
				if !errors.As(al.Err, &pe) || pe.Line != 7 || pe.Text != tt.line {
					t.Errorf("ParseError = %+v, want line 7 and text %q", pe, tt.line)
				}
				return
			}
			if al.Err != nil {
				t.Fatalf("Err = %v, want nil", al.Err)
			}
			if al.Binding != tt.wantBinding || al.Func != tt.wantFunc {
				t.Errorf("Binding/Func = %q/%q, want %q/%q", al.Binding, al.Func, tt.wantBinding, tt.wantFunc)
			}
			if len(al.Args) != len(tt.wantArgs) {
				t.Fatalf("Args = %v, want %v", al.Args, tt.wantArgs)
			}
			for i := range al.Args {
				if al.Args[i] != tt.wantArgs[i] {
					t.Errorf("Args[%d] = %q, want %q", i, al.Args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestParse_ErrorsStayOnTheirLine(t *testing.T) {
	p := Parse(sampleScript)

	errs := p.Errors()
	if len(errs) != 1 {
		t.Fatalf("Errors() = %v, want 1", errs)
	}
	if errs[0].Line != 13 || !errors.Is(errs[0], ErrUnknownFunction) {
		t.Errorf("error = %v, want unknown function on line 13", errs[0])
	}
	// The neighbouring line in the same block still parsed.
	if p.Characters[1].Lines[0].Err != nil {
		t.Errorf("点击技能() Err = %v, want nil", p.Characters[1].Lines[0].Err)
	}
}

func TestParse_BadDirective(t *testing.T) {
	p := Parse("按下(w)\n指定 老张\n释放(w)\n")

	if len(p.Characters) != 0 {
		t.Errorf("Characters = %v, want none", p.Characters)
	}
	if len(p.Common) != 3 || !errors.Is(p.Common[1].Err, ErrBadDirective) {
		t.Errorf("Common = %+v, want bad directive at index 1", p.Common)
	}
}

func TestParse_RepeatedDirectiveRestartsBlock(t *testing.T) {
	p := Parse("指定 -> A\n按下(w)\n指定 -> B\n按下(s)\n指定 -> A\n按下(d)\n")

	if len(p.Characters) != 2 {
		t.Fatalf("len(Characters) = %d, want 2", len(p.Characters))
	}
	if got := texts(p.Characters[0].Lines); !reflect.DeepEqual(got, []string{"按下(d)"}) {
		t.Errorf("A lines = %v, want [按下(d)]", got)
	}
}

func TestProgram_FormatRoundTrip(t *testing.T) {
	inputs := []string{
		sampleScript,
		"",
		"按下(w)\n",
		"指定 -> 老张\n释放(w)\n",
		"  按下(w)  \r\n# c\n\n指定   ->   梦魇  \n 等待(1)\n",
		"按下(w\n指定 bad\n",
	}

	for _, in := range inputs {
		first := Parse(in)
		second := Parse(first.Format())

		if !reflect.DeepEqual(texts(first.Common), texts(second.Common)) {
			t.Errorf("common mismatch for %q: %v vs %v", in, texts(first.Common), texts(second.Common))
		}
		if len(first.Characters) != len(second.Characters) {
			t.Fatalf("block count mismatch for %q: %d vs %d", in, len(first.Characters), len(second.Characters))
		}
		for i := range first.Characters {
			a, b := first.Characters[i], second.Characters[i]
			if a.Name != b.Name || !reflect.DeepEqual(texts(a.Lines), texts(b.Lines)) {
				t.Errorf("block %d mismatch for %q: %+v vs %+v", i, in, a, b)
			}
		}
		if len(first.Errors()) != len(second.Errors()) {
			t.Errorf("error count changed for %q", in)
		}
	}
}

func TestProgram_Blocks(t *testing.T) {
	p := Parse("指定 -> 老张\n按下(w)\n指定 -> 张\n按下(a)\n指定 -> 梦魇\n按下(s)\n")

	tests := []struct {
		character string
		want      []string
	}{
		{"老张的小号", []string{"老张", "张"}},
		{"梦魇", []string{"梦魇"}},
		{"小丑", nil},
		{"", nil},
	}
	for _, tt := range tests {
		var got []string
		for _, b := range p.Blocks(tt.character) {
			got = append(got, b.Name)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Blocks(%q) = %v, want %v", tt.character, got, tt.want)
		}
	}
}
