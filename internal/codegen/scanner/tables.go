package scanner

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// Default locations of the system headers the tables are built from.
const (
	DefaultDRMHeader      = "/usr/include/drm/drm_fourcc.h"
	DefaultVideodevHeader = "/usr/include/linux/videodev2.h"
)

// Macro name conventions used by the DRM and V4L2 headers.
const (
	DRMFormatPrefix    = "DRM_FORMAT_"
	DRMVendorPrefix    = "DRM_FORMAT_MOD_VENDOR_"
	V4L2PixFmtPrefix   = "V4L2_PIX_FMT_"
	fourccFunc         = "fourcc_code"
	fourccFuncBE       = "fourcc_code_be"
	v4l2FourccFunc     = "v4l2_fourcc"
	v4l2FourccFuncBE   = "v4l2_fourcc_be"
	modifierCodeFunc   = "fourcc_mod_code"
	bigEndianBit       = uint32(1) << 31
	modifierVendorBits = 56
)

// Tables are the symbolic constant lookups built from the system headers.
type Tables struct {
	// FourCC maps DRM_FORMAT_* names to packed fourcc codes.
	FourCC map[string]uint32
	// Modifier maps modifier macro names to vendor-qualified 64-bit values.
	Modifier map[string]uint64
	// Legacy maps V4L2_PIX_FMT_* names to packed fourcc codes.
	Legacy map[string]uint32
}

// NewTables returns empty tables.
func NewTables() *Tables {
	return &Tables{
		FourCC:   map[string]uint32{},
		Modifier: map[string]uint64{},
		Legacy:   map[string]uint32{},
	}
}

// BuildTables scans the DRM fourcc header and the V4L2 videodev header. Either
// may be empty, which simply yields empty tables for that header.
func BuildTables(drmHeader, videodevHeader []byte) *Tables {
	t := NewTables()
	t.addDRM(drmHeader)
	t.addLegacy(videodevHeader)
	return t
}

// Merge overlays o onto t. Entries of o win on conflict.
func (t *Tables) Merge(o *Tables) *Tables {
	out := NewTables()
	for _, src := range []*Tables{t, o} {
		if src == nil {
			continue
		}
		for k, v := range src.FourCC {
			out.FourCC[k] = v
		}
		for k, v := range src.Modifier {
			out.Modifier[k] = v
		}
		for k, v := range src.Legacy {
			out.Legacy[k] = v
		}
	}
	return out
}

// AddDRM scans an additional drm_fourcc.h style header into t.
func (t *Tables) AddDRM(header []byte) {
	t.addDRM(header)
}

func (t *Tables) addDRM(header []byte) {
	macros := Defines(header)

	vendors := map[string]uint64{}
	for _, m := range macros {
		vendor, ok := strings.CutPrefix(m.Name, DRMVendorPrefix)
		if !ok || len(m.Body) != 1 || m.Body[0].Kind != TokNumber {
			continue
		}
		if n, err := ParseInt(m.Body[0].Text); err == nil {
			vendors[vendor] = n
		}
	}

	for _, m := range macros {
		call, ok := ParseCall(m.Body)
		if !ok {
			continue
		}
		switch call.Func {
		case fourccFunc, fourccFuncBE:
			if !strings.HasPrefix(m.Name, DRMFormatPrefix) {
				continue
			}
			if code, ok := packFourCC(call.Args, call.Func == fourccFuncBE); ok {
				t.FourCC[m.Name] = code
			}
		case modifierCodeFunc:
			if mod, ok := packModifier(call.Args, vendors); ok {
				t.Modifier[m.Name] = mod
			}
		}
	}
}

func (t *Tables) addLegacy(header []byte) {
	for _, m := range Defines(header) {
		if !strings.HasPrefix(m.Name, V4L2PixFmtPrefix) {
			continue
		}
		call, ok := ParseCall(m.Body)
		if !ok || (call.Func != v4l2FourccFunc && call.Func != v4l2FourccFuncBE) {
			continue
		}
		if code, ok := packFourCC(call.Args, call.Func == v4l2FourccFuncBE); ok {
			t.Legacy[m.Name] = code
		}
	}
}

// PackFourCC combines four characters into a little-endian fourcc code.
func PackFourCC(c0, c1, c2, c3 uint32, bigEndian bool) uint32 {
	code := c0 | c1<<8 | c2<<16 | c3<<24
	if bigEndian {
		code |= bigEndianBit
	}
	return code
}

// PackModifier combines a vendor id and a vendor-specific code.
func PackModifier(vendor, code uint64) uint64 {
	return vendor<<modifierVendorBits | code
}

// BigEndian sets the big-endian flag on a fourcc code.
func BigEndian(code uint32) uint32 {
	return code | bigEndianBit
}

func packFourCC(args [][]Token, bigEndian bool) (uint32, bool) {
	if len(args) != 4 {
		return 0, false
	}
	var c [4]uint32
	for i, arg := range args {
		if len(arg) != 1 || arg[0].Kind != TokChar {
			return 0, false
		}
		v, err := CharValue(arg[0].Text)
		if err != nil {
			return 0, false
		}
		c[i] = v
	}
	return PackFourCC(c[0], c[1], c[2], c[3], bigEndian), true
}

func packModifier(args [][]Token, vendors map[string]uint64) (uint64, bool) {
	if len(args) != 2 || len(args[0]) != 1 || len(args[1]) != 1 {
		return 0, false
	}
	if args[0][0].Kind != TokIdent || args[1][0].Kind != TokNumber {
		return 0, false
	}
	code, err := ParseInt(args[1][0].Text)
	if err != nil {
		return 0, false
	}
	// An unknown vendor is vendor 0, not an error.
	return PackModifier(vendors[args[0][0].Text], code), true
}

// LoadHeader reads a header file. A missing or unreadable file is logged and
// yields nil so that table building degrades to empty tables.
func LoadHeader(path string, logger *slog.Logger) []byte {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Header not found, continuing with an empty table", "path", path)
		} else {
			logger.Warn("Failed to read header, continuing with an empty table", "path", path, "error", err)
		}
		return nil
	}
	logger.Debug("Loaded header", "path", path, "bytes", len(data))
	return data
}
