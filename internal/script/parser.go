package script

import (
	"sort"
	"strings"
	"time"
)

// directivePrefix opens a character block: "指定 -> name".
const (
	directivePrefix = "指定"
	directiveArrow  = "->"
	commentPrefix   = "#"
)

// ActionLine is one parsed call.
type ActionLine struct {
	// Line is the 1-based source line.
	Line int

	// Text is the trimmed source text.
	Text string

	// Binding is the name on the left of "=", empty for bare calls.
	Binding string

	Func string
	Kind Kind

	// Args are the raw whitespace-separated tokens between the parens.
	Args []string

	// Err is a *ParseError when the line cannot run.
	Err error
}

// CharacterBlock is the lines following one "指定 -> Name" directive.
type CharacterBlock struct {
	Name  string
	Line  int
	Lines []ActionLine
}

// Program is an immutable parsed script.
type Program struct {
	Common     []ActionLine
	Characters []CharacterBlock
	ModTime    time.Time
}

// Parse splits text into the common block and character blocks.
//
// A repeated directive name restarts that block in its original position.
func Parse(text string) *Program {
	p := &Program{}
	current := -1
	index := make(map[string]int)

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		if strings.HasPrefix(line, directivePrefix) {
			_, name, ok := strings.Cut(line, directiveArrow)
			name = strings.TrimSpace(name)
			if ok && name != "" {
				if at, seen := index[name]; seen {
					p.Characters[at].Lines = nil
					current = at
				} else {
					p.Characters = append(p.Characters, CharacterBlock{Name: name, Line: lineNo})
					current = len(p.Characters) - 1
					index[name] = current
				}
				continue
			}
			al := ActionLine{Line: lineNo, Text: line}
			al.Err = &ParseError{Line: lineNo, Text: line, Err: ErrBadDirective}
			p.appendLine(current, al)
			continue
		}

		p.appendLine(current, parseCall(lineNo, line))
	}
	return p
}

func (p *Program) appendLine(block int, al ActionLine) {
	if block < 0 {
		p.Common = append(p.Common, al)
		return
	}
	p.Characters[block].Lines = append(p.Characters[block].Lines, al)
}

// parseCall parses "func(args)" or "name = func(args)".
func parseCall(lineNo int, line string) ActionLine {
	al := ActionLine{Line: lineNo, Text: line}
	fail := func(err error) ActionLine {
		al.Err = &ParseError{Line: lineNo, Text: line, Err: err}
		return al
	}

	call := line
	if eq := strings.Index(line, "="); eq >= 0 {
		al.Binding = strings.TrimSpace(line[:eq])
		call = strings.TrimSpace(line[eq+1:])
	}

	open := strings.Index(call, "(")
	if open < 0 {
		return fail(ErrMissingParen)
	}
	al.Func = strings.TrimSpace(call[:open])
	closing := strings.Index(call[open+1:], ")")
	if closing < 0 {
		return fail(ErrUnclosedParen)
	}
	al.Args = strings.Fields(call[open+1 : open+1+closing])

	fn, ok := Lookup(al.Func)
	if !ok {
		return fail(ErrUnknownFunction)
	}
	al.Kind = fn.Kind
	if al.Binding != "" && fn.Kind != Pure {
		return fail(ErrNotValueFunction)
	}
	if al.Binding == "" && fn.Kind == Pure {
		return fail(ErrUnusedValue)
	}
	return al
}

// Errors returns every parse error in source order.
func (p *Program) Errors() []*ParseError {
	var out []*ParseError
	collect := func(lines []ActionLine) {
		for _, l := range lines {
			if pe, ok := l.Err.(*ParseError); ok {
				out = append(out, pe)
			}
		}
	}
	collect(p.Common)
	for _, b := range p.Characters {
		collect(b.Lines)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// Blocks returns the character blocks whose name is contained in character,
// in file order.
func (p *Program) Blocks(character string) []CharacterBlock {
	if character == "" {
		return nil
	}
	var out []CharacterBlock
	for _, b := range p.Characters {
		if strings.Contains(character, b.Name) {
			out = append(out, b)
		}
	}
	return out
}

// Empty reports whether the program has no lines at all.
func (p *Program) Empty() bool {
	return len(p.Common) == 0 && len(p.Characters) == 0
}

// Format re-serialises the program: common lines, then each directive
// followed by its lines.
func (p *Program) Format() string {
	var b strings.Builder
	for _, l := range p.Common {
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	for _, blk := range p.Characters {
		b.WriteString(directivePrefix + " " + directiveArrow + " " + blk.Name)
		b.WriteByte('\n')
		for _, l := range blk.Lines {
			b.WriteString(l.Text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
