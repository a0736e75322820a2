package scanner

import (
	"fmt"
	"strings"

	"github.com/Alia5/camerameta/internal/codegen/meta"
)

// FeaturePrefix marks the vendor feature macros in libcamera/control_ids.h.
const FeaturePrefix = "LIBCAMERA_HAS_"

// FeatureFlags returns the names (without FeaturePrefix) of every
// `#define LIBCAMERA_HAS_<X>` in an installed control_ids.h, in source order.
func FeatureFlags(header []byte) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range Defines(header) {
		name, ok := strings.CutPrefix(m.Name, FeaturePrefix)
		if !ok || name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// InstalledFormats extracts the `constexpr PixelFormat NAME{ __fourcc(...),
// __mod(v, m) };` constants from an installed libcamera/formats.h.
func InstalledFormats(header []byte) ([]meta.FormatConstant, error) {
	toks := Lex(header, false)

	var out []meta.FormatConstant
	for i := 0; i+3 < len(toks); i++ {
		if !toks[i].Is(TokIdent, "constexpr") || !toks[i+1].Is(TokIdent, "PixelFormat") ||
			toks[i+2].Kind != TokIdent || !toks[i+3].Is(TokPunct, "{") {
			continue
		}
		name := toks[i+2]
		end, ok := matchBrace(toks, i+3)
		if !ok {
			return nil, fmt.Errorf("line %d: unterminated initializer for %s", name.Line, name.Text)
		}
		fc, err := parseInstalledFormat(name.Text, splitTopLevel(toks[i+4:end]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", name.Line, err)
		}
		out = append(out, fc)
		i = end
	}
	return out, nil
}

func parseInstalledFormat(name string, parts [][]Token) (meta.FormatConstant, error) {
	fc := meta.FormatConstant{Name: name}
	if len(parts) == 0 || len(parts) > 2 {
		return fc, fmt.Errorf("%s: expected __fourcc(...) and optional __mod(...)", name)
	}

	call, ok := ParseCall(parts[0])
	if !ok || call.Func != "__fourcc" || (len(call.Args) != 4 && len(call.Args) != 5) {
		return fc, fmt.Errorf("%s: malformed __fourcc initializer", name)
	}
	code, ok := packFourCC(call.Args[:4], false)
	if !ok {
		return fc, fmt.Errorf("%s: malformed __fourcc characters", name)
	}
	if len(call.Args) == 5 && len(call.Args[4]) == 1 && call.Args[4][0].Is(TokIdent, "true") {
		code = BigEndian(code)
	}
	fc.FourCC = code

	if len(parts) == 2 {
		call, ok := ParseCall(parts[1])
		if !ok || call.Func != "__mod" || len(call.Args) != 2 {
			return fc, fmt.Errorf("%s: malformed __mod initializer", name)
		}
		var vm [2]uint64
		for i, arg := range call.Args {
			if len(arg) != 1 || arg[0].Kind != TokNumber {
				return fc, fmt.Errorf("%s: non-numeric __mod argument", name)
			}
			n, err := ParseInt(arg[0].Text)
			if err != nil {
				return fc, fmt.Errorf("%s: %w", name, err)
			}
			vm[i] = n
		}
		fc.Modifier = PackModifier(vm[0], vm[1])
	}
	return fc, nil
}

// splitTopLevel splits tokens at commas outside any bracket pair.
func splitTopLevel(toks []Token) [][]Token {
	var parts [][]Token
	depth := 0
	start := 0
	for i, t := range toks {
		switch {
		case t.Is(TokPunct, "(") || t.Is(TokPunct, "{"):
			depth++
		case t.Is(TokPunct, ")") || t.Is(TokPunct, "}"):
			depth--
		case t.Is(TokPunct, ",") && depth == 0:
			parts = append(parts, toks[start:i])
			start = i + 1
		}
	}
	if start < len(toks) {
		parts = append(parts, toks[start:])
	}
	return parts
}
