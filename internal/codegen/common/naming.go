package common

import (
	"strings"
	"unicode"
)

// ToPascalCase joins '_', '-' or space separated words, capitalizing each:
// "RPI_VENDOR_CONTROLS" -> "RpiVendorControls".
func ToPascalCase(s string) string {
	if s == "" {
		return ""
	}

	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})

	var result strings.Builder
	for _, word := range words {
		if len(word) > 0 {
			result.WriteString(strings.ToUpper(string(word[0])))
			if len(word) > 1 {
				result.WriteString(strings.ToLower(word[1:]))
			}
		}
	}

	return result.String()
}

// ToCTypeName converts a CamelCase control name into the snake_case spelling
// libcamera uses for its generated C++ identifiers. Upper case in the result
// gives the enumerator name: "AeEnable" -> "ae_enable", "Gain2A" -> "gain2_a",
// "AfWindows" -> "af_windows", "SensorBlackLevels" -> "sensor_black_levels".
func ToCTypeName(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			split := false

			// lower -> Upper: "aeE" in "AeEnable"
			if unicode.IsUpper(r) && unicode.IsLower(prev) {
				split = true
			}
			// end of an acronym: the 'P' in "XMLParser"
			if unicode.IsUpper(r) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				split = true
			}
			// digit -> non-digit
			if !unicode.IsDigit(r) && unicode.IsDigit(prev) {
				split = true
			}

			if split {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
