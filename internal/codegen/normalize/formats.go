package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Alia5/camerameta/internal/codegen/meta"
	"github.com/Alia5/camerameta/internal/codegen/scanner"
)

// ResolveError reports a symbolic constant that is in none of the tables.
type ResolveError struct {
	Format string
	// What is "fourcc" or "modifier".
	What string
	// Tried lists every name that was looked up, in order.
	Tried []string
}

func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("format %s: unresolved %s %s", e.Format, e.What, e.Tried[0])
	if len(e.Tried) > 1 {
		msg += fmt.Sprintf(" (also tried %s)", strings.Join(e.Tried[1:], ", "))
	}
	return msg
}

type rawFormat struct {
	FourCC    *string `yaml:"fourcc"`
	BigEndian bool    `yaml:"big_endian"`
	Mod       string  `yaml:"mod"`
	Modifier  string  `yaml:"modifier"`
}

// FormatConstants resolves the formats.yaml catalogue against t. A fourcc
// missing from the DRM table is retried as V4L2_PIX_FMT_<suffix> in the
// legacy table.
func FormatConstants(catalogue []byte, t *scanner.Tables) ([]meta.FormatConstant, error) {
	var out []meta.FormatConstant
	dec := yaml.NewDecoder(bytes.NewReader(catalogue))
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("formats catalogue: %w", err)
		}
		root := documentRoot(&doc)
		if root == nil || root.Kind != yaml.MappingNode {
			continue
		}
		list := mappingValue(root, "formats")
		if list == nil {
			continue
		}
		if list.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("line %d: formats is not a list", list.Line)
		}

		for _, item := range list.Content {
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: format entry is not a mapping", item.Line)
			}
			for i := 0; i+1 < len(item.Content); i += 2 {
				fc, err := resolveFormat(item.Content[i], item.Content[i+1], t)
				if err != nil {
					return nil, err
				}
				out = append(out, fc)
			}
		}
	}
	return out, nil
}

func resolveFormat(key, val *yaml.Node, t *scanner.Tables) (meta.FormatConstant, error) {
	fc := meta.FormatConstant{Name: key.Value}

	var raw rawFormat
	if err := val.Decode(&raw); err != nil {
		return fc, fmt.Errorf("line %d: format %s: %w", key.Line, fc.Name, err)
	}
	if raw.FourCC == nil {
		return fc, fmt.Errorf("line %d: format %s: missing fourcc", key.Line, fc.Name)
	}

	drmName := *raw.FourCC
	code, ok := t.FourCC[drmName]
	if !ok {
		legacyName := scanner.V4L2PixFmtPrefix + strings.TrimPrefix(drmName, scanner.DRMFormatPrefix)
		code, ok = t.Legacy[legacyName]
		if !ok {
			return fc, &ResolveError{Format: fc.Name, What: "fourcc", Tried: []string{drmName, legacyName}}
		}
	}
	if raw.BigEndian {
		code = scanner.BigEndian(code)
	}
	fc.FourCC = code

	modName := raw.Mod
	if modName == "" {
		modName = raw.Modifier
	}
	if modName != "" {
		mod, ok := t.Modifier[modName]
		if !ok {
			return fc, &ResolveError{Format: fc.Name, What: "modifier", Tried: []string{modName}}
		}
		fc.Modifier = mod
	}
	return fc, nil
}

// PixelFormats extracts the layout table from formats.cpp. Entries without
// a matching format constant are dropped, as are unresolvable V4L2 aliases.
// Missing fields keep their zero value.
func PixelFormats(layout []byte, consts []meta.FormatConstant, t *scanner.Tables) []meta.PixelFormatInfo {
	byName := make(map[string]meta.FormatConstant, len(consts))
	for _, c := range consts {
		if _, dup := byName[c.Name]; !dup {
			byName[c.Name] = c
		}
	}

	var out []meta.PixelFormatInfo
	for _, e := range scanner.ScanLayout(layout) {
		fc, ok := byName[e.Name]
		if !ok {
			continue
		}
		info := meta.PixelFormatInfo{
			Name:     e.Name,
			FourCC:   fc.FourCC,
			Modifier: fc.Modifier,
		}
		info.BitsPerPixel, _ = e.FieldUint("bitsPerPixel")
		if enc, ok := e.FieldSuffix("colourEncoding", "ColourEncoding"); ok {
			info.ColourEncoding = meta.ParseColourEncoding(enc)
		}
		info.Packed, _ = e.FieldBool("packed")
		info.PixelsPerGroup, _ = e.FieldUint("pixelsPerGroup")
		for i, p := range e.FieldPairs("planes") {
			if i >= len(info.Planes) {
				break
			}
			info.Planes[i] = meta.Plane{BytesPerGroup: p[0], VerticalSubSampling: p[1]}
		}
		for _, alias := range e.FieldIdents("v4l2Formats", scanner.V4L2PixFmtPrefix) {
			if code, ok := t.Legacy[alias]; ok {
				info.V4L2Formats = append(info.V4L2Formats, code)
			}
		}
		out = append(out, info)
	}
	return out
}
