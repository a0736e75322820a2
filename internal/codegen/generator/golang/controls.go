package golang

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/Alia5/camerameta/internal/codegen/common"
	"github.com/Alia5/camerameta/internal/codegen/meta"
)

const controlsTemplate = `{{.Header}}

package {{.Package}}

/*
{{.NativeHeader}}
*/
import "C"

import "fmt"

// {{.IDType}} identifies a libcamera {{.Noun}}.
type {{.IDType}} uint32

const (
{{- range .Entries}}
	{{.IDConst}} {{$.IDType}} = C.{{.CName}}
{{- end}}
)

// ID returns the numeric {{.Noun}} identifier.
func (id {{.IDType}}) ID() uint32 { return uint32(id) }

// String returns the schema name of the {{.Noun}}.
func (id {{.IDType}}) String() string {
	switch id {
{{- range .Entries}}
	case {{.IDConst}}:
		return {{quote .Name}}
{{- end}}
	}
	return fmt.Sprintf("{{.IDType}}(%d)", uint32(id))
}

// Vendor returns the vendor namespace of the {{.Noun}}.
func (id {{.IDType}}) Vendor() string {
	switch id {
{{- range .Entries}}
	case {{.IDConst}}:
		return {{quote .Vendor}}
{{- end}}
	}
	return ""
}

// Description returns the schema description of the {{.Noun}}.
func (id {{.IDType}}) Description() string {
	switch id {
{{- range .Entries}}
	case {{.IDConst}}:
		return {{quote .Description}}
{{- end}}
	}
	return ""
}

// {{.EntryType}} is implemented by every typed {{.Noun}} value.
type {{.EntryType}} interface {
	ID() uint32
	Value() any
	{{.Marker}}()
}
{{range $e := .Entries}}
{{$e.Doc}}
type {{$e.TypeName}} {{$e.GoType}}
{{- if $e.IsEnum}}

const (
{{- range $e.Variants}}
{{- if .Doc}}
{{.Doc}}
{{- end}}
	{{.Const}} {{$e.TypeName}} = {{.Value}}
{{- end}}
)

// IsValid reports whether v is a known {{$e.TypeName}} value.
func (v {{$e.TypeName}}) IsValid() bool {
	switch v {
	case {{join $e.ValidValues ", "}}:
		return true
	}
	return false
}
{{- end}}

func (v {{$e.TypeName}}) Value() any { return {{$e.GoType}}(v) }

func ({{$e.TypeName}}) ID() uint32 { return uint32({{$e.IDConst}}) }

func ({{$e.TypeName}}) {{$.Marker}}() {}
{{end}}
// {{.MakeFunc}} converts an untyped value into the typed {{.Noun}} for id.
// Vendor {{.Noun}}s are rejected unless the installed library provides them.
func {{.MakeFunc}}(id {{.IDType}}, val ControlValue) ({{.EntryType}}, error) {
	switch id {
{{- range .Entries}}
	case {{.IDConst}}:
{{- if .Gated}}
		if !vendorEnabled({{quote .Vendor}}) {
			return nil, fmt.Errorf("{{$.Noun}} %s: vendor %q is not available", id, {{quote .Vendor}})
		}
{{- end}}
		v, err := valueAs[{{.GoType}}](val)
		if err != nil {
			return nil, fmt.Errorf("{{$.Noun}} %s: %w", id, err)
		}
{{- if .IsEnum}}
		if !{{.TypeName}}(v).IsValid() {
			return nil, fmt.Errorf("{{$.Noun}} %s: %w: %v", id, ErrUnknownVariant, v)
		}
{{- end}}
		return {{.TypeName}}(v), nil
{{- end}}
	}
	return nil, fmt.Errorf("unknown {{.Noun}} id %d", uint32(id))
}
`

var controlsTmpl = template.Must(template.New("controls").Funcs(funcMap).Parse(controlsTemplate))

type variantData struct {
	Const string
	Doc   string
	Value int64
}

type entryData struct {
	Name        string
	Vendor      string
	Description string
	TypeName    string
	IDConst     string
	CName       string
	GoType      string
	Doc         string
	Gated       bool
	IsEnum      bool
	Variants    []variantData
	ValidValues []string
}

type controlsData struct {
	Header       string
	Package      string
	NativeHeader string
	Noun         string
	IDType       string
	EntryType    string
	Marker       string
	MakeFunc     string
	Entries      []entryData
}

// Controls renders controls.go or properties.go. Entries keep model order.
func (e *Emitter) Controls(m *meta.Model, kind meta.Kind) ([]byte, error) {
	data := controlsData{
		Header:       e.header(),
		Package:      e.Package,
		NativeHeader: e.NativeHeader,
		Noun:         kind.String(),
	}
	prefix := e.ControlPrefix
	if kind == meta.KindProperty {
		prefix = e.PropertyPrefix
		data.IDType, data.EntryType, data.Marker, data.MakeFunc = "PropertyID", "PropertyEntry", "isProperty", "MakeProperty"
	} else {
		data.IDType, data.EntryType, data.Marker, data.MakeFunc = "ControlID", "ControlEntry", "isControl", "MakeControl"
	}

	entries := m.Entries(kind)
	if dups := meta.Duplicates(entries); len(dups) > 0 {
		e.logger.Warn("Duplicate names, later entries are vendor qualified",
			"version", m.Version.String(), "kind", kind.String(), "names", dups)
	}

	used := map[string]bool{}
	for _, c := range entries {
		entry, err := e.entry(c, kind, prefix, data.IDType, used)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", kind, c.Name, err)
		}
		data.Entries = append(data.Entries, entry)
	}

	src, err := render(controlsTmpl, data)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", kind, err)
	}
	return src, nil
}

func (e *Emitter) entry(c meta.Control, kind meta.Kind, prefix, idType string, used map[string]bool) (entryData, error) {
	typeName := uniqueName(c, used)
	cName := strings.ToUpper(common.ToCTypeName(c.Name))
	if !c.IsDefault() {
		cName = strings.ToUpper(c.Vendor) + "_" + cName
	}

	t, err := goType(c)
	if err != nil {
		return entryData{}, err
	}

	d := entryData{
		Name:        c.Name,
		Vendor:      c.Vendor,
		Description: c.Description,
		TypeName:    typeName,
		IDConst:     idType + typeName,
		CName:       prefix + cName,
		GoType:      t,
		Gated:       !c.IsDefault(),
		IsEnum:      c.IsEnum(),
	}

	doc := fmt.Sprintf("// %s is the %s %s.", typeName, c.Vendor, kind)
	if body := docComment("", c.Description); body != "" {
		doc += "\n//\n" + body
	}
	d.Doc = doc

	if !c.IsEnum() {
		return d, nil
	}
	if !isIntegerType(t) {
		return d, fmt.Errorf("enumerated values need an integer type, got %s", t)
	}
	seenValue := map[int64]bool{}
	for _, v := range c.Enum {
		variant := strings.Replace(v.Name, c.Name, "", 1)
		if variant == "" {
			variant = v.Name
		}
		vd := variantData{
			Const: typeName + variant,
			Doc:   docComment("\t", v.Description),
			Value: v.Value,
		}
		d.Variants = append(d.Variants, vd)
		if !seenValue[v.Value] {
			seenValue[v.Value] = true
			d.ValidValues = append(d.ValidValues, vd.Const)
		}
	}
	return d, nil
}

// uniqueName returns the Go type name of a control. A name already taken in
// this file is qualified with the vendor, then numbered.
func uniqueName(c meta.Control, used map[string]bool) string {
	name := c.Name
	if used[name] {
		name = common.ToPascalCase(c.Vendor) + c.Name
	}
	base := name
	for i := 2; used[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	used[name] = true
	return name
}
