package golang

import (
	"fmt"
	"text/template"

	"github.com/Alia5/camerameta/internal/codegen/common"
	"github.com/Alia5/camerameta/internal/codegen/meta"
)

const vendorFeaturesTemplate = `{{.Header}}

package {{.Package}}

import "strings"
{{if .Flags}}
// Features provided by the installed libcamera.
const (
{{- range .Flags}}
	Has{{.Ident}} = true
{{- end}}
)
{{end}}
var vendorFeatures = map[string]bool{
{{- range .Flags}}
	{{quote .Name}}: true,
{{- end}}
}

// vendorEnabled reports whether the installed library was built with the
// controls of vendor.
func vendorEnabled(vendor string) bool {
	return vendorFeatures[strings.ToUpper(vendor)+"_VENDOR_CONTROLS"]
}
`

const formatsTemplate = `{{.Header}}

package {{.Package}}

// Pixel formats of the installed libcamera.
var (
{{- range .Formats}}
	{{.Ident}} = newPixelFormat({{hex32 .FourCC}}, {{hex64 .Modifier}})
{{- end}}
)
`

var (
	vendorFeaturesTmpl = template.Must(template.New("vendor_features").Funcs(funcMap).Parse(vendorFeaturesTemplate))
	formatsTmpl        = template.Must(template.New("formats").Funcs(funcMap).Parse(formatsTemplate))
)

type flagData struct {
	Name  string
	Ident string
}

type formatData struct {
	Ident    string
	FourCC   uint32
	Modifier uint64
}

// VendorFeatures renders vendor_features.go from the LIBCAMERA_HAS_ flags of
// an installed control_ids.h, given without the prefix.
func (e *Emitter) VendorFeatures(flags []string) ([]byte, error) {
	data := struct {
		Header  string
		Package string
		Flags   []flagData
	}{Header: e.header(), Package: e.Package}

	seen := map[string]bool{}
	for _, f := range flags {
		ident := common.ToPascalCase(f)
		if seen[ident] {
			continue
		}
		seen[ident] = true
		data.Flags = append(data.Flags, flagData{Name: f, Ident: ident})
	}

	src, err := render(vendorFeaturesTmpl, data)
	if err != nil {
		return nil, fmt.Errorf("render vendor features: %w", err)
	}
	return src, nil
}

// FormatConstants renders formats.go from the constants of an installed
// formats.h.
func (e *Emitter) FormatConstants(consts []meta.FormatConstant) ([]byte, error) {
	data := struct {
		Header  string
		Package string
		Formats []formatData
	}{Header: e.header(), Package: e.Package}

	for _, c := range consts {
		data.Formats = append(data.Formats, formatData{
			Ident:    formatConstName(c.Name),
			FourCC:   c.FourCC,
			Modifier: c.Modifier,
		})
	}

	src, err := render(formatsTmpl, data)
	if err != nil {
		return nil, fmt.Errorf("render formats: %w", err)
	}
	return src, nil
}

// formatConstName is the Go identifier of a libcamera format constant.
func formatConstName(name string) string {
	return "Format" + name
}
