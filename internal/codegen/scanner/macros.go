package scanner

// Macro is an object-like or function-like #define with its replacement list.
type Macro struct {
	Name string
	Body []Token
	Line int
}

// Defines returns every #define in src, in source order. Parameters of
// function-like macros are skipped; only the replacement tokens are kept.
func Defines(src []byte) []Macro {
	toks := Lex(src, true)

	var out []Macro
	for i := 0; i < len(toks); i++ {
		if toks[i].Kind != TokDirective {
			continue
		}
		if i+2 >= len(toks) || !toks[i+1].Is(TokIdent, "define") || toks[i+2].Kind != TokIdent {
			continue
		}
		name := toks[i+2]
		j := i + 3

		// Function-like only when '(' touches the name.
		if j < len(toks) && toks[j].Is(TokPunct, "(") && toks[j].Off == name.Off+len(name.Text) {
			for j < len(toks) && !toks[j].Is(TokPunct, ")") && toks[j].Kind != TokNewline {
				j++
			}
			if j < len(toks) && toks[j].Is(TokPunct, ")") {
				j++
			}
		}

		start := j
		for j < len(toks) && toks[j].Kind != TokNewline {
			j++
		}
		out = append(out, Macro{Name: name.Text, Body: toks[start:j], Line: name.Line})
		i = j
	}
	return out
}

// Call is a parsed `fn(arg, arg, ...)` invocation. Each argument is the token
// run between commas at paren depth one.
type Call struct {
	Func string
	Args [][]Token
}

// ParseCall matches a macro body of the exact form `fn(...)`, optionally
// wrapped in one pair of parentheses. Anything after the closing paren makes
// it a non-match.
func ParseCall(body []Token) (Call, bool) {
	if len(body) >= 2 && body[0].Is(TokPunct, "(") && body[len(body)-1].Is(TokPunct, ")") {
		if c, ok := ParseCall(body[1 : len(body)-1]); ok {
			return c, true
		}
	}
	if len(body) < 3 || body[0].Kind != TokIdent || !body[1].Is(TokPunct, "(") {
		return Call{}, false
	}

	call := Call{Func: body[0].Text}
	depth := 0
	var arg []Token
	for i := 1; i < len(body); i++ {
		t := body[i]
		switch {
		case t.Is(TokPunct, "("):
			depth++
			if depth == 1 {
				continue
			}
		case t.Is(TokPunct, ")"):
			depth--
			if depth == 0 {
				call.Args = append(call.Args, arg)
				return call, i == len(body)-1
			}
		case t.Is(TokPunct, ",") && depth == 1:
			call.Args = append(call.Args, arg)
			arg = nil
			continue
		}
		arg = append(arg, t)
	}
	return Call{}, false
}
