package scanner

import (
	"strings"
)

// LayoutEntry is one `{ formats::NAME, { ...fields... } }` initializer from
// the pixel format layout table, with its field block split into designated
// initializers.
type LayoutEntry struct {
	Name   string
	Fields map[string][]Token
	Line   int
}

// Field returns the value tokens of a designated initializer such as
// `.bitsPerPixel = 16`.
func (e LayoutEntry) Field(name string) ([]Token, bool) {
	v, ok := e.Fields[name]
	return v, ok
}

// ScanLayout walks C++ source and returns the layout table entries in the
// order they appear. Entries are recognised by their token shape rather than
// by any surrounding declaration so that reformatting upstream does not
// break extraction.
func ScanLayout(src []byte) []LayoutEntry {
	toks := Lex(src, false)

	var out []LayoutEntry
	for i := 0; i < len(toks); i++ {
		if !isEntryStart(toks, i) {
			continue
		}
		name := toks[i+3]
		blockStart := i + 5
		blockEnd, ok := matchBrace(toks, blockStart)
		if !ok {
			break
		}
		out = append(out, LayoutEntry{
			Name:   name.Text,
			Fields: designatedFields(toks[blockStart+1 : blockEnd]),
			Line:   name.Line,
		})
		i = blockEnd
	}
	return out
}

// isEntryStart matches `{ formats :: NAME , {` at i.
func isEntryStart(toks []Token, i int) bool {
	if i+5 >= len(toks) {
		return false
	}
	return toks[i].Is(TokPunct, "{") &&
		toks[i+1].Is(TokIdent, "formats") &&
		toks[i+2].Is(TokPunct, "::") &&
		toks[i+3].Kind == TokIdent &&
		toks[i+4].Is(TokPunct, ",") &&
		toks[i+5].Is(TokPunct, "{")
}

// matchBrace returns the index of the '}' closing the '{' at open.
func matchBrace(toks []Token, open int) (int, bool) {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch {
		case toks[i].Is(TokPunct, "{"):
			depth++
		case toks[i].Is(TokPunct, "}"):
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// designatedFields splits `.a = x, .b = { ... }, ...` at top-level commas.
func designatedFields(block []Token) map[string][]Token {
	fields := map[string][]Token{}
	depth := 0
	start := 0
	flush := func(end int) {
		part := block[start:end]
		if len(part) >= 3 && part[0].Is(TokPunct, ".") && part[1].Kind == TokIdent && part[2].Is(TokPunct, "=") {
			fields[part[1].Text] = part[3:]
		}
	}
	for i, t := range block {
		switch {
		case t.Is(TokPunct, "{") || t.Is(TokPunct, "("):
			depth++
		case t.Is(TokPunct, "}") || t.Is(TokPunct, ")"):
			depth--
		case t.Is(TokPunct, ",") && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(block))
	return fields
}

// FieldUint reads a numeric field value, reporting false when the field is
// absent or not a plain integer.
func (e LayoutEntry) FieldUint(name string) (uint32, bool) {
	v, ok := e.Fields[name]
	if !ok || len(v) != 1 || v[0].Kind != TokNumber {
		return 0, false
	}
	n, err := ParseInt(v[0].Text)
	if err != nil || n > 0xffffffff {
		return 0, false
	}
	return uint32(n), true
}

// FieldBool reads a `true`/`false` field value.
func (e LayoutEntry) FieldBool(name string) (bool, bool) {
	v, ok := e.Fields[name]
	if !ok || len(v) != 1 || v[0].Kind != TokIdent {
		return false, false
	}
	switch v[0].Text {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// FieldSuffix finds the first identifier in a field value starting with
// prefix and returns the remainder, e.g. "ColourEncoding" on
// `PixelFormatInfo::ColourEncodingYUV` yields "YUV".
func (e LayoutEntry) FieldSuffix(name, prefix string) (string, bool) {
	for _, t := range e.Fields[name] {
		if t.Kind != TokIdent {
			continue
		}
		if rest, ok := strings.CutPrefix(t.Text, prefix); ok && rest != "" {
			return rest, true
		}
	}
	return "", false
}

// FieldIdents returns every identifier in a field value starting with prefix,
// in order.
func (e LayoutEntry) FieldIdents(name, prefix string) []string {
	var out []string
	for _, t := range e.Fields[name] {
		if t.Kind == TokIdent && strings.HasPrefix(t.Text, prefix) {
			out = append(out, t.Text)
		}
	}
	return out
}

// FieldPairs returns the `{ a, b }` numeric pairs nested inside a field value,
// in order, such as the plane list `{{ { 1, 1 }, { 2, 2 }, { 0, 0 } }}`.
func (e LayoutEntry) FieldPairs(name string) [][2]uint32 {
	v := e.Fields[name]
	var out [][2]uint32
	for i := 0; i+4 < len(v); i++ {
		if !v[i].Is(TokPunct, "{") || v[i+1].Kind != TokNumber || !v[i+2].Is(TokPunct, ",") ||
			v[i+3].Kind != TokNumber || !v[i+4].Is(TokPunct, "}") {
			continue
		}
		a, errA := ParseInt(v[i+1].Text)
		b, errB := ParseInt(v[i+3].Text)
		if errA != nil || errB != nil {
			continue
		}
		out = append(out, [2]uint32{uint32(a), uint32(b)})
		i += 4
	}
	return out
}
