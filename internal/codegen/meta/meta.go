// Package meta holds the normalized, language-agnostic model of one libcamera
// release: controls, properties, format constants and pixel format layouts.
// Records are built once per harvested version and never mutated afterwards.
package meta

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefaultVendor is the namespace of controls that are neither vendor nor draft.
const DefaultVendor = "libcamera"

// DraftVendor is inferred for entries carrying `draft: true` in a document
// without an explicit vendor.
const DraftVendor = "draft"

// Kind distinguishes the two schema families.
type Kind int

const (
	KindControl Kind = iota
	KindProperty
)

func (k Kind) String() string {
	if k == KindProperty {
		return "property"
	}
	return "control"
}

// ControlType is the scalar type keyword of a control, as spelled in the schema.
type ControlType string

const (
	TypeBool      ControlType = "bool"
	TypeByte      ControlType = "uint8_t"
	TypeUint16    ControlType = "uint16_t"
	TypeUint32    ControlType = "uint32_t"
	TypeInt32     ControlType = "int32_t"
	TypeInt64     ControlType = "int64_t"
	TypeFloat     ControlType = "float"
	TypeString    ControlType = "string"
	TypeRectangle ControlType = "Rectangle"
	TypeSize      ControlType = "Size"
	TypePoint     ControlType = "Point"
)

var controlTypes = map[string]ControlType{
	"bool":      TypeBool,
	"uint8_t":   TypeByte,
	"uint16_t":  TypeUint16,
	"uint32_t":  TypeUint32,
	"int32_t":   TypeInt32,
	"int64_t":   TypeInt64,
	"float":     TypeFloat,
	"string":    TypeString,
	"Rectangle": TypeRectangle,
	"Size":      TypeSize,
	"Point":     TypePoint,
}

// ParseControlType maps a schema type keyword onto a ControlType.
func ParseControlType(s string) (ControlType, error) {
	t, ok := controlTypes[s]
	if !ok {
		return "", fmt.Errorf("unknown control type %q", s)
	}
	return t, nil
}

// ControlSize is one array dimension. Dynamic dimensions have Len == 0.
type ControlSize struct {
	Dynamic bool
	Len     int
}

func Fixed(n int) ControlSize { return ControlSize{Len: n} }

var Dynamic = ControlSize{Dynamic: true}

func (s ControlSize) String() string {
	if s.Dynamic {
		return "n"
	}
	return fmt.Sprint(s.Len)
}

// ValidateSize enforces the array shape rules: a size, when present, has at
// least one dimension, and a dynamic dimension must be the only one.
func ValidateSize(size []ControlSize) error {
	if size == nil {
		return nil
	}
	if len(size) == 0 {
		return fmt.Errorf("array-like datatype with zero dimensions")
	}
	if len(size) > 1 {
		for _, d := range size {
			if d.Dynamic {
				return fmt.Errorf("dynamic length with more than 1 dimension is not supported: %v", size)
			}
		}
	}
	return nil
}

// EnumValue is one member of an enumerated control.
type EnumValue struct {
	Name        string
	Value       int64
	Description string
}

// Control is a single control or property definition.
type Control struct {
	Name        string
	Vendor      string
	Type        ControlType
	Direction   string
	Description string
	Size        []ControlSize
	Enum        []EnumValue
}

func (c Control) IsEnum() bool    { return len(c.Enum) > 0 }
func (c Control) IsDefault() bool { return c.Vendor == DefaultVendor }
func (c Control) IsArray() bool   { return c.Size != nil }

// DescriptionBlock is a run of description lines, either prose or preformatted.
type DescriptionBlock struct {
	Preformatted bool
	Lines        []string
}

// DescriptionBlocks splits a description into prose and preformatted runs. A
// line indented by at least two spaces opens a preformatted run that lasts
// until the next non-indented line.
func DescriptionBlocks(desc string) []DescriptionBlock {
	var blocks []DescriptionBlock
	for _, line := range strings.Split(strings.TrimSpace(desc), "\n") {
		pre := strings.HasPrefix(line, "  ")
		if len(blocks) == 0 || blocks[len(blocks)-1].Preformatted != pre {
			blocks = append(blocks, DescriptionBlock{Preformatted: pre})
		}
		last := &blocks[len(blocks)-1]
		last.Lines = append(last.Lines, line)
	}
	return blocks
}

// FormatConstant ties a libcamera format name to its DRM fourcc and modifier.
type FormatConstant struct {
	Name     string
	FourCC   uint32
	Modifier uint64
}

// ColourEncoding mirrors libcamera's PixelFormatInfo::ColourEncoding.
type ColourEncoding uint8

const (
	ColourEncodingRGB ColourEncoding = iota
	ColourEncodingYUV
	ColourEncodingRAW
)

// ParseColourEncoding maps the suffix of a ColourEncodingXXX identifier.
// Anything unknown is RGB.
func ParseColourEncoding(s string) ColourEncoding {
	switch s {
	case "YUV":
		return ColourEncodingYUV
	case "RAW":
		return ColourEncodingRAW
	default:
		return ColourEncodingRGB
	}
}

func (c ColourEncoding) String() string {
	switch c {
	case ColourEncodingYUV:
		return "YUV"
	case ColourEncodingRAW:
		return "RAW"
	default:
		return "RGB"
	}
}

// Plane is a (bytes per group, vertical subsampling) pair. The zero value
// marks an unused plane.
type Plane struct {
	BytesPerGroup       uint32
	VerticalSubSampling uint32
}

// PixelFormatInfo is the memory layout of one pixel format.
type PixelFormatInfo struct {
	Name           string
	FourCC         uint32
	Modifier       uint64
	BitsPerPixel   uint32
	ColourEncoding ColourEncoding
	Packed         bool
	PixelsPerGroup uint32
	Planes         [3]Plane
	V4L2Formats    []uint32
}

// Format returns the (fourcc, modifier) pair identifying the layout.
func (p PixelFormatInfo) Format() (uint32, uint64) {
	return p.FourCC, p.Modifier
}

// Model is everything extracted from one release.
type Model struct {
	Version      *semver.Version
	Controls     []Control
	Properties   []Control
	Formats      []FormatConstant
	PixelFormats []PixelFormatInfo
}

// Entries returns the controls or properties of the model.
func (m *Model) Entries(kind Kind) []Control {
	if kind == KindProperty {
		return m.Properties
	}
	return m.Controls
}

// Duplicates reports names that appear more than once in the given entries.
func Duplicates(entries []Control) []string {
	seen := make(map[string]int, len(entries))
	var dups []string
	for _, e := range entries {
		seen[e.Name]++
		if seen[e.Name] == 2 {
			dups = append(dups, e.Name)
		}
	}
	return dups
}
