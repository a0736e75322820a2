package golang

import (
	"fmt"
	"strings"

	"github.com/Alia5/camerameta/internal/codegen/meta"
)

var goScalarTypes = map[meta.ControlType]string{
	meta.TypeBool:      "bool",
	meta.TypeByte:      "uint8",
	meta.TypeUint16:    "uint16",
	meta.TypeUint32:    "uint32",
	meta.TypeInt32:     "int32",
	meta.TypeInt64:     "int64",
	meta.TypeFloat:     "float32",
	meta.TypeString:    "string",
	meta.TypeRectangle: "Rectangle",
	meta.TypeSize:      "Size",
	meta.TypePoint:     "Point",
}

func isIntegerType(t string) bool {
	switch t {
	case "uint8", "uint16", "uint32", "int32", "int64":
		return true
	}
	return false
}

// goType maps a control onto its Go value type. Fixed dimensions fold
// innermost first, so size [2, 3] of float becomes [3][2]float32.
func goType(c meta.Control) (string, error) {
	base, ok := goScalarTypes[c.Type]
	if !ok {
		return "", fmt.Errorf("no Go type for %q", c.Type)
	}
	if err := meta.ValidateSize(c.Size); err != nil {
		return "", err
	}
	if c.Size == nil {
		return base, nil
	}
	if c.Size[0].Dynamic {
		return "[]" + base, nil
	}
	t := base
	for _, d := range c.Size {
		t = fmt.Sprintf("[%d]%s", d.Len, t)
	}
	return t, nil
}

// docComment renders a description as a Go comment. Preformatted runs become
// indented code blocks set off by blank comment lines.
func docComment(indent string, desc string) string {
	var lines []string
	blank := func() {
		if len(lines) > 0 && lines[len(lines)-1] != indent+"//" {
			lines = append(lines, indent+"//")
		}
	}
	for _, block := range meta.DescriptionBlocks(desc) {
		if block.Preformatted {
			blank()
		}
		for _, line := range block.Lines {
			line = strings.TrimRight(line, " \t")
			if line == "" {
				blank()
				continue
			}
			if block.Preformatted {
				lines = append(lines, indent+"//\t"+strings.TrimPrefix(line, "  "))
			} else {
				lines = append(lines, indent+"// "+line)
			}
		}
		if block.Preformatted {
			blank()
		}
	}
	for len(lines) > 0 && lines[len(lines)-1] == indent+"//" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
