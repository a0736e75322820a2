package golang

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Alia5/camerameta/internal/codegen/meta"
)

const pixelFormatInfoTemplate = `{{.Header}}

package {{.Package}}

type pixelFormatPlaneInfoData struct {
	bytesPerGroup       uint32
	verticalSubSampling uint32
}

type pixelFormatInfoData struct {
	name           string
	fourcc         uint32
	modifier       uint64
	bitsPerPixel   uint32
	colourEncoding uint8
	packed         bool
	pixelsPerGroup uint32
	planes         [3]pixelFormatPlaneInfoData
	v4l2Formats    []uint32
}

var pixelFormatInfo = []pixelFormatInfoData{
{{- range .Rows}}
	{
		name:           {{quote .Name}},
		fourcc:         {{hex32 .FourCC}},
		modifier:       {{hex64 .Modifier}},
		bitsPerPixel:   {{.BitsPerPixel}},
		colourEncoding: {{.ColourEncoding}},
		packed:         {{.Packed}},
		pixelsPerGroup: {{.PixelsPerGroup}},
		planes:         [3]pixelFormatPlaneInfoData{ {{- .Planes -}} },
		v4l2Formats:    {{.V4L2Formats}},
	},
{{- end}}
}
`

var pixelFormatInfoTmpl = template.Must(template.New("pixel_format_info").Funcs(funcMap).Parse(pixelFormatInfoTemplate))

type pixelFormatRow struct {
	Name           string
	FourCC         uint32
	Modifier       uint64
	BitsPerPixel   uint32
	ColourEncoding uint8
	Packed         bool
	PixelsPerGroup uint32
	Planes         string
	V4L2Formats    string
}

type pixelFormatInfoData struct {
	Header  string
	Package string
	Rows    []pixelFormatRow
}

// PixelFormatInfo renders the pixel format layout table of a model.
func (e *Emitter) PixelFormatInfo(m *meta.Model) ([]byte, error) {
	data := pixelFormatInfoData{
		Header:  e.header(),
		Package: e.Package,
	}
	for _, p := range m.PixelFormats {
		data.Rows = append(data.Rows, pixelFormatRow{
			Name:           p.Name,
			FourCC:         p.FourCC,
			Modifier:       p.Modifier,
			BitsPerPixel:   p.BitsPerPixel,
			ColourEncoding: uint8(p.ColourEncoding),
			Packed:         p.Packed,
			PixelsPerGroup: p.PixelsPerGroup,
			Planes:         planesLiteral(p.Planes),
			V4L2Formats:    v4l2Literal(p.V4L2Formats),
		})
	}

	src, err := render(pixelFormatInfoTmpl, data)
	if err != nil {
		return nil, fmt.Errorf("render pixel format info: %w", err)
	}
	return src, nil
}

func planesLiteral(planes [3]meta.Plane) string {
	parts := make([]string, len(planes))
	for i, p := range planes {
		parts[i] = fmt.Sprintf("{%d, %d}", p.BytesPerGroup, p.VerticalSubSampling)
	}
	return strings.Join(parts, ", ")
}

func v4l2Literal(codes []uint32) string {
	if len(codes) == 0 {
		return "nil"
	}
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprintf("0x%08x", c)
	}
	return "[]uint32{" + strings.Join(parts, ", ") + "}"
}
