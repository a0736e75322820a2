// Package golang renders the typed model of a libcamera release as Go source
// for a cgo binding package.
package golang

import (
	"bytes"
	"fmt"
	"go/format"
	"log/slog"
	"strconv"
	"strings"
	"text/template"

	"github.com/Alia5/camerameta/internal/codegen/common"
	"github.com/Alia5/camerameta/internal/codegen/meta"
)

// Generated file names.
const (
	FileControls        = "controls.go"
	FileProperties      = "properties.go"
	FilePixelFormatInfo = "pixel_format_info.go"
	FileVendorFeatures  = "vendor_features.go"
	FileFormats         = "formats.go"
)

// VersionedFiles are the files generated per harvested release.
var VersionedFiles = []string{FileControls, FileProperties, FilePixelFormatInfo}

// Defaults for the binding package the files are compiled into.
const (
	DefaultPackage        = "libcamera"
	DefaultNativeHeader   = `#include "camerameta_ids.h"`
	DefaultControlPrefix  = "LIBCAMERA_CONTROL_"
	DefaultPropertyPrefix = "LIBCAMERA_PROPERTY_"
)

// Emitter renders Go source. Package is the package clause of every file;
// NativeHeader is the cgo preamble exposing the C enumerators, named
// <prefix>[<VENDOR>_]<UPPER_SNAKE_NAME>.
type Emitter struct {
	Package        string
	NativeHeader   string
	ControlPrefix  string
	PropertyPrefix string
	// ToolVersion is stamped into the generated header.
	ToolVersion string

	logger *slog.Logger
}

// New returns an emitter with the default package layout.
func New(logger *slog.Logger) *Emitter {
	version, err := common.GetVersion()
	if err != nil {
		logger.Warn("Invalid build version, using development version", "error", err)
		version = "0.0.1-dev"
	}
	return &Emitter{
		Package:        DefaultPackage,
		NativeHeader:   DefaultNativeHeader,
		ControlPrefix:  DefaultControlPrefix,
		PropertyPrefix: DefaultPropertyPrefix,
		ToolVersion:    version,
		logger:         logger,
	}
}

// Generate renders the per-release files of a model, keyed by file name.
func (e *Emitter) Generate(m *meta.Model) (map[string][]byte, error) {
	files := make(map[string][]byte, len(VersionedFiles))

	controls, err := e.Controls(m, meta.KindControl)
	if err != nil {
		return nil, err
	}
	files[FileControls] = controls

	properties, err := e.Controls(m, meta.KindProperty)
	if err != nil {
		return nil, err
	}
	files[FileProperties] = properties

	pixelFormats, err := e.PixelFormatInfo(m)
	if err != nil {
		return nil, err
	}
	files[FilePixelFormatInfo] = pixelFormats

	return files, nil
}

var funcMap = template.FuncMap{
	"quote": strconv.Quote,
	"join":  strings.Join,
	"hex32": func(v uint32) string { return fmt.Sprintf("0x%08x", v) },
	"hex64": func(v uint64) string { return fmt.Sprintf("0x%016x", v) },
}

// render executes tmpl and gofmts the result. Output that does not parse as
// Go is an error.
func render(tmpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute %s template: %w", tmpl.Name(), err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", tmpl.Name(), err)
	}
	return src, nil
}

func (e *Emitter) header() string {
	return common.GeneratedHeader(e.ToolVersion)
}
