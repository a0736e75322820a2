package golang_test

import (
	"go/parser"
	"go/token"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/camerameta/internal/codegen/generator/golang"
	"github.com/Alia5/camerameta/internal/codegen/harvest"
	"github.com/Alia5/camerameta/internal/codegen/meta"
	"github.com/Alia5/camerameta/internal/codegen/normalize"
	"github.com/Alia5/camerameta/internal/codegen/scanner"
	th "github.com/Alia5/camerameta/internal/testing"
)

func newEmitter(t *testing.T) *golang.Emitter {
	e := golang.New(th.Logger(t))
	e.ToolVersion = "1.2.3"
	return e
}

func fixtureModel(t *testing.T) *meta.Model {
	t.Helper()
	bundles, err := harvest.New(th.Logger(t)).Harvest(harvest.FSRepository{"v0.5.2": th.SourceTree()})
	require.NoError(t, err)
	require.Len(t, bundles, 1)

	tables := scanner.BuildTables([]byte(th.DRMHeader), []byte(th.VideodevHeader))
	model, err := normalize.Normalize(bundles[0], tables)
	require.NoError(t, err)
	return model
}

// mustParse fails the test unless src is a valid Go file, and returns src with
// runs of whitespace collapsed so assertions are independent of alignment.
func mustParse(t *testing.T, name string, src []byte) string {
	t.Helper()
	_, err := parser.ParseFile(token.NewFileSet(), name, src, parser.ParseComments)
	require.NoError(t, err, "generated %s does not parse:\n%s", name, src)
	return strings.Join(strings.Fields(string(src)), " ")
}

func TestGenerateFiles(t *testing.T) {
	files, err := newEmitter(t).Generate(fixtureModel(t))
	require.NoError(t, err)

	require.Len(t, files, len(golang.VersionedFiles))
	for _, name := range golang.VersionedFiles {
		src, ok := files[name]
		require.True(t, ok, "missing %s", name)
		mustParse(t, name, src)

		first, _, _ := strings.Cut(string(src), "\n")
		assert.Equal(t, "// Code generated by camerameta 1.2.3. DO NOT EDIT.", first, name)
		assert.Contains(t, string(src), "\npackage libcamera\n", name)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	model := fixtureModel(t)
	a, err := newEmitter(t).Generate(model)
	require.NoError(t, err)
	b, err := newEmitter(t).Generate(model)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestControls(t *testing.T) {
	src, err := newEmitter(t).Controls(fixtureModel(t), meta.KindControl)
	require.NoError(t, err)
	flat := mustParse(t, golang.FileControls, src)

	for _, want := range []string{
		`/* #include "camerameta_ids.h" */ import "C"`,
		"ControlIDAeEnable ControlID = C.LIBCAMERA_CONTROL_AE_ENABLE",
		"ControlIDColourCorrectionMatrix ControlID = C.LIBCAMERA_CONTROL_COLOUR_CORRECTION_MATRIX",
		"ControlIDStatsOutputEnable ControlID = C.LIBCAMERA_CONTROL_RPI_STATS_OUTPUT_ENABLE",
		"type AeEnable bool",
		"type ColourGains [2]float32",
		"type ColourCorrectionMatrix [3][3]float32",
		"type AfWindows []Rectangle",
		"type FrameDuration int64",
		"AeMeteringModeMeteringCentreWeighted AeMeteringMode = 0",
		"AeMeteringModeMeteringSpot AeMeteringMode = 1",
		"case AeMeteringModeMeteringCentreWeighted, AeMeteringModeMeteringSpot: return true",
		"func (AeEnable) isControl() {}",
		"func (AeEnable) ID() uint32 { return uint32(ControlIDAeEnable) }",
		"func MakeControl(id ControlID, val ControlValue) (ControlEntry, error)",
		`case ControlIDStatsOutputEnable: if !vendorEnabled("rpi") {`,
		"v, err := valueAs[[3][3]float32](val)",
		"if !AeMeteringMode(v).IsValid() {",
		`case ControlIDAeEnable: return "AeEnable"`,
		`case ControlIDStatsOutputEnable: return "rpi"`,
	} {
		assert.Contains(t, flat, want)
	}

	// Core controls are never gated.
	assert.NotContains(t, flat, `vendorEnabled("libcamera")`)

	// Entries keep file order then document order.
	order := []string{"ControlIDAeEnable ", "ControlIDAeMeteringMode ", "ControlIDColourGains ",
		"ControlIDColourCorrectionMatrix ", "ControlIDAfWindows ", "ControlIDFrameDuration ", "ControlIDStatsOutputEnable "}
	last := -1
	for _, name := range order {
		i := strings.Index(flat, name)
		require.Greater(t, i, last, name)
		last = i
	}
}

func TestControlsDocComments(t *testing.T) {
	src, err := newEmitter(t).Controls(fixtureModel(t), meta.KindControl)
	require.NoError(t, err)
	text := string(src)

	assert.Contains(t, text, "// AeEnable is the libcamera control.\n//\n// Enable or disable the AEGC algorithm.\ntype AeEnable bool")
	assert.Contains(t, text, "// The 3x3 matrix that converts camera RGB to sRGB.\n//\n//\t[ r' ]   [ m00 m01 m02 ]   [ r ]\n")
	assert.Contains(t, text, "//\t[ b' ]   [ m20 m21 m22 ]   [ b ]\n//\n// The matrix is applied after white balance.\n")
	assert.Contains(t, text, "\t// Spot metering mode.\n")
}

func TestProperties(t *testing.T) {
	src, err := newEmitter(t).Controls(fixtureModel(t), meta.KindProperty)
	require.NoError(t, err)
	flat := mustParse(t, golang.FileProperties, src)

	for _, want := range []string{
		"type PropertyID uint32",
		"PropertyIDLocation PropertyID = C.LIBCAMERA_PROPERTY_LOCATION",
		"PropertyIDPixelArraySize PropertyID = C.LIBCAMERA_PROPERTY_PIXEL_ARRAY_SIZE",
		"LocationCameraFront Location = 0",
		"type Model string",
		"type PixelArraySize Size",
		"func (Model) isProperty() {}",
		"func MakeProperty(id PropertyID, val ControlValue) (PropertyEntry, error)",
	} {
		assert.Contains(t, flat, want)
	}
	assert.NotContains(t, flat, "vendorEnabled(")
}

func TestControlsCustomPackage(t *testing.T) {
	e := newEmitter(t)
	e.Package = "camera"
	e.NativeHeader = "#include <libcamera/control_ids.h>"
	e.ControlPrefix = "CTRL_"

	model := &meta.Model{
		Version:  th.MustVersion(t, "0.5.0"),
		Controls: []meta.Control{{Name: "Lux", Vendor: "libcamera", Type: meta.TypeFloat, Description: "Lux."}},
	}
	src, err := e.Controls(model, meta.KindControl)
	require.NoError(t, err)
	flat := mustParse(t, golang.FileControls, src)

	assert.Contains(t, flat, "package camera")
	assert.Contains(t, flat, "/* #include <libcamera/control_ids.h> */")
	assert.Contains(t, flat, "ControlIDLux ControlID = C.CTRL_LUX")
}

func TestControlsDuplicateNames(t *testing.T) {
	model := &meta.Model{
		Version: th.MustVersion(t, "0.5.0"),
		Controls: []meta.Control{
			{Name: "Sharpness", Vendor: "libcamera", Type: meta.TypeFloat, Description: "Core."},
			{Name: "Sharpness", Vendor: "rpi", Type: meta.TypeFloat, Description: "Vendor."},
			{Name: "Sharpness", Vendor: "rpi", Type: meta.TypeFloat, Description: "Again."},
		},
	}
	src, err := newEmitter(t).Controls(model, meta.KindControl)
	require.NoError(t, err)
	flat := mustParse(t, golang.FileControls, src)

	assert.Contains(t, flat, "ControlIDSharpness ControlID = C.LIBCAMERA_CONTROL_SHARPNESS")
	assert.Contains(t, flat, "ControlIDRpiSharpness ControlID = C.LIBCAMERA_CONTROL_RPI_SHARPNESS")
	assert.Contains(t, flat, "type RpiSharpness2 float32")
	// Every occurrence keeps its schema name.
	assert.Equal(t, 3, strings.Count(flat, `return "Sharpness"`))
}

func TestControlsEnumDuplicateValues(t *testing.T) {
	model := &meta.Model{
		Version: th.MustVersion(t, "0.5.0"),
		Controls: []meta.Control{{
			Name: "Mode", Vendor: "libcamera", Type: meta.TypeInt32, Description: "Mode.",
			Enum: []meta.EnumValue{
				{Name: "ModeOff", Value: 0},
				{Name: "ModeDisabled", Value: 0},
				{Name: "ModeOn", Value: 1},
			},
		}},
	}
	src, err := newEmitter(t).Controls(model, meta.KindControl)
	require.NoError(t, err)
	flat := mustParse(t, golang.FileControls, src)

	assert.Contains(t, flat, "ModeDisabled Mode = 0")
	assert.Contains(t, flat, "case ModeOff, ModeOn: return true")
}

func TestControlsErrors(t *testing.T) {
	tests := []struct {
		name    string
		control meta.Control
		wantErr string
	}{
		{
			name: "enum on float",
			control: meta.Control{Name: "Bad", Vendor: "libcamera", Type: meta.TypeFloat, Description: "x",
				Enum: []meta.EnumValue{{Name: "BadA", Value: 0}}},
			wantErr: "integer type",
		},
		{
			name: "enum on array",
			control: meta.Control{Name: "Bad", Vendor: "libcamera", Type: meta.TypeInt32, Description: "x",
				Size: []meta.ControlSize{meta.Fixed(2)}, Enum: []meta.EnumValue{{Name: "BadA", Value: 0}}},
			wantErr: "integer type",
		},
		{
			name: "dynamic with fixed",
			control: meta.Control{Name: "Bad", Vendor: "libcamera", Type: meta.TypeInt32, Description: "x",
				Size: []meta.ControlSize{meta.Dynamic, meta.Fixed(2)}},
			wantErr: "dynamic length",
		},
		{
			name:    "unknown type",
			control: meta.Control{Name: "Bad", Vendor: "libcamera", Type: "double", Description: "x"},
			wantErr: "no Go type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &meta.Model{Version: th.MustVersion(t, "0.5.0"), Controls: []meta.Control{tt.control}}
			_, err := newEmitter(t).Controls(model, meta.KindControl)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
			assert.ErrorContains(t, err, "control Bad")
		})
	}
}

var fourccRe = regexp.MustCompile(`name: "([A-Z0-9_]+)", fourcc: (0x[0-9a-f]{8}), modifier: (0x[0-9a-f]{16}),`)

func TestPixelFormatInfo(t *testing.T) {
	model := fixtureModel(t)
	src, err := newEmitter(t).PixelFormatInfo(model)
	require.NoError(t, err)
	flat := mustParse(t, golang.FilePixelFormatInfo, src)

	matches := fourccRe.FindAllStringSubmatch(flat, -1)
	require.Len(t, matches, len(model.PixelFormats))
	for i, m := range matches {
		want := model.PixelFormats[i]
		assert.Equal(t, want.Name, m[1])

		fourcc, err := strconv.ParseUint(m[2], 0, 32)
		require.NoError(t, err)
		modifier, err := strconv.ParseUint(m[3], 0, 64)
		require.NoError(t, err)
		assert.Equal(t, want.FourCC, uint32(fourcc), want.Name)
		assert.Equal(t, want.Modifier, modifier, want.Name)
	}

	assert.Contains(t, flat, `name: "NV12", fourcc: 0x3231564e, modifier: 0x0000000000000000, bitsPerPixel: 12, colourEncoding: 1, packed: false, pixelsPerGroup: 2, planes: [3]pixelFormatPlaneInfoData{{2, 1}, {2, 2}, {0, 0}}, v4l2Formats: []uint32{0x3231564e},`)
	assert.Contains(t, flat, `name: "SBGGR10_CSI2P", fourcc: 0x30314742, modifier: 0x0b00000000000001,`)
	assert.Contains(t, flat, "colourEncoding: 2, packed: true,")
	assert.Contains(t, flat, "v4l2Formats: []uint32{0x47504a4d},")
}

func TestPixelFormatInfoEmpty(t *testing.T) {
	src, err := newEmitter(t).PixelFormatInfo(&meta.Model{Version: th.MustVersion(t, "0.5.0")})
	require.NoError(t, err)
	flat := mustParse(t, golang.FilePixelFormatInfo, src)
	assert.Contains(t, flat, "var pixelFormatInfo = []pixelFormatInfoData{")
	assert.NotContains(t, flat, "name:")
}

func TestPixelFormatInfoNoAliases(t *testing.T) {
	model := &meta.Model{
		Version:      th.MustVersion(t, "0.5.0"),
		PixelFormats: []meta.PixelFormatInfo{{Name: "X", FourCC: 1}},
	}
	src, err := newEmitter(t).PixelFormatInfo(model)
	require.NoError(t, err)
	flat := mustParse(t, golang.FilePixelFormatInfo, src)
	assert.Contains(t, flat, "planes: [3]pixelFormatPlaneInfoData{{0, 0}, {0, 0}, {0, 0}}, v4l2Formats: nil,")
}

func TestVendorFeatures(t *testing.T) {
	flags := scanner.FeatureFlags([]byte(th.ControlIDsHeader))
	src, err := newEmitter(t).VendorFeatures(flags)
	require.NoError(t, err)
	flat := mustParse(t, golang.FileVendorFeatures, src)

	for _, want := range []string{
		"HasLibcameraVendorControls = true",
		"HasDraftVendorControls = true",
		"HasRpiVendorControls = true",
		`"RPI_VENDOR_CONTROLS": true,`,
		`return vendorFeatures[strings.ToUpper(vendor)+"_VENDOR_CONTROLS"]`,
	} {
		assert.Contains(t, flat, want)
	}
}

func TestVendorFeaturesNone(t *testing.T) {
	src, err := newEmitter(t).VendorFeatures(nil)
	require.NoError(t, err)
	flat := mustParse(t, golang.FileVendorFeatures, src)
	assert.NotContains(t, flat, "const (")
	assert.Contains(t, flat, "var vendorFeatures = map[string]bool{")
	assert.NotContains(t, flat, "_VENDOR_CONTROLS\": true")
}

func TestFormatConstants(t *testing.T) {
	consts, err := scanner.InstalledFormats([]byte(th.FormatsHeader))
	require.NoError(t, err)

	src, err := newEmitter(t).FormatConstants(consts)
	require.NoError(t, err)
	flat := mustParse(t, golang.FileFormats, src)

	assert.Contains(t, flat, "FormatRGB565 = newPixelFormat(0x36314752, 0x0000000000000000)")
	assert.Contains(t, flat, "FormatNV12 = newPixelFormat(0x3231564e, 0x0000000000000000)")
	assert.Contains(t, flat, "FormatSBGGR10_CSI2P = newPixelFormat(0x30314742, 0x0b00000000000001)")
}
