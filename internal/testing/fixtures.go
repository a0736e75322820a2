package testing

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/Masterminds/semver/v3"
)

// Logger returns a logger that discards everything unless -v is set.
func Logger(t testing.TB) *slog.Logger {
	t.Helper()
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(&tLogWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type tLogWriter struct {
	t testing.TB
}

func (w *tLogWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// MustVersion parses a version or fails the test.
func MustVersion(t testing.TB, s string) *semver.Version {
	t.Helper()
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		t.Fatalf("parse version %q: %v", s, err)
	}
	return v
}

// DRMHeader is a trimmed system drm_fourcc.h.
const DRMHeader = `/* SPDX-License-Identifier: MIT */
#ifndef DRM_FOURCC_H
#define DRM_FOURCC_H

#define fourcc_code(a, b, c, d) ((__u32)(a) | ((__u32)(b) << 8) | \
				 ((__u32)(c) << 16) | ((__u32)(d) << 24))

#define DRM_FORMAT_BIG_ENDIAN (1U<<31) /* format is big endian instead of little endian */

/* 16 bpp RGB */
#define DRM_FORMAT_RGB565	fourcc_code('R', 'G', '1', '6') /* [15:0] R:G:B 5:6:5 little endian */

/*
 * 2 plane YCbCr
 */
#define DRM_FORMAT_NV12		fourcc_code('N', 'V', '1', '2') /* 2x2 subsampled Cr:Cb plane */
#define DRM_FORMAT_YUYV		fourcc_code('Y', 'U', 'Y', 'V') /* [31:0] Cr0:Y1:Cb0:Y0 8:8:8:8 little endian */

#define DRM_FORMAT_MOD_VENDOR_NONE    0
#define DRM_FORMAT_MOD_VENDOR_INTEL   0x01
#define DRM_FORMAT_MOD_VENDOR_BROADCOM 0x07

#define fourcc_mod_code(vendor, val) \
	((((__u64)DRM_FORMAT_MOD_VENDOR_## vendor) << 56) | ((val) & 0x00ffffffffffffffULL))

#define DRM_FORMAT_MOD_LINEAR	fourcc_mod_code(NONE, 0)
#define I915_FORMAT_MOD_X_TILED	fourcc_mod_code(INTEL, 1)

#endif
`

// LocalDRMHeader is the drm_fourcc.h libcamera ships in its own tree.
const LocalDRMHeader = `#define fourcc_code(a, b, c, d) ((__u32)(a) | ((__u32)(b) << 8) | \
				 ((__u32)(c) << 16) | ((__u32)(d) << 24))
#define DRM_FORMAT_SBGGR10	fourcc_code('B', 'G', '1', '0')
#define DRM_FORMAT_MOD_VENDOR_MIPI 0x0b
#define MIPI_FORMAT_MOD_CSI2_PACKED fourcc_mod_code(MIPI, 1)
`

// VideodevHeader is a trimmed linux/videodev2.h.
const VideodevHeader = `#define v4l2_fourcc(a, b, c, d)\
	((__u32)(a) | ((__u32)(b) << 8) | ((__u32)(c) << 16) | ((__u32)(d) << 24))
#define v4l2_fourcc_be(a, b, c, d)	(v4l2_fourcc(a, b, c, d) | (1U << 31))

#define V4L2_PIX_FMT_RGB565  v4l2_fourcc('R', 'G', 'B', 'P') /* 16  RGB-5-6-5     */
#define V4L2_PIX_FMT_NV12    v4l2_fourcc('N', 'V', '1', '2') /* 12  Y/CbCr 4:2:0  */
#define V4L2_PIX_FMT_SBGGR10P v4l2_fourcc('p', 'B', 'A', 'A')
#define V4L2_PIX_FMT_MJPEG    v4l2_fourcc('M', 'J', 'P', 'G') /* Motion-JPEG   */
`

// Expected codes for the headers above.
const (
	FourCCRGB565     uint32 = 0x36314752
	FourCCNV12       uint32 = 0x3231564E
	FourCCYUYV       uint32 = 0x56595559
	FourCCSBGGR10    uint32 = 0x30314742
	LegacyRGB565     uint32 = 0x50424752
	LegacySBGGR10P   uint32 = 0x41414270
	LegacyMJPEG      uint32 = 0x47504A4D
	ModCSI2Packed    uint64 = 0x0b00000000000001
	ModIntelXTiled   uint64 = 0x0100000000000001
	BigEndianBitMask uint32 = 1 << 31
)

// FormatsYAML is a formats.yaml catalogue.
const FormatsYAML = `# SPDX-License-Identifier: LGPL-2.1-or-later
%YAML 1.1
---
formats:
  - RGB565:
      fourcc: DRM_FORMAT_RGB565
  - RGB565_BE:
      fourcc: DRM_FORMAT_RGB565
      big_endian: true

  - NV12:
      fourcc: DRM_FORMAT_NV12
  - YUYV:
      fourcc: DRM_FORMAT_YUYV

  - SBGGR10_CSI2P:
      fourcc: DRM_FORMAT_SBGGR10
      mod: MIPI_FORMAT_MOD_CSI2_PACKED

  - MJPEG:
      fourcc: DRM_FORMAT_MJPEG
...
`

// FormatsCPP is a formats.cpp layout table. R10_CSI2P has no catalogue entry.
const FormatsCPP = `/* SPDX-License-Identifier: LGPL-2.1-or-later */
#include "libcamera/internal/formats.h"

namespace libcamera {

namespace {

const PixelFormatInfo pixelFormatInfoInvalid{};

const std::map<PixelFormat, PixelFormatInfo> pixelFormatInfo{
	/* RGB formats. */
	{ formats::RGB565, {
		.name = "RGB565",
		.format = formats::RGB565,
		.v4l2Formats = { V4L2PixelFormat(V4L2_PIX_FMT_RGB565), },
		.bitsPerPixel = 16,
		.colourEncoding = PixelFormatInfo::ColourEncodingRGB,
		.packed = false,
		.pixelsPerGroup = 1,
		.planes = {{ { 2, 1 }, { 0, 0 }, { 0, 0 } }},
	} },

	/* YUV planar formats. */
	{ formats::NV12, {
		.name = "NV12",
		.format = formats::NV12,
		.v4l2Formats = {
			V4L2PixelFormat(V4L2_PIX_FMT_NV12),
			V4L2PixelFormat(V4L2_PIX_FMT_NV12M),
		},
		.bitsPerPixel = 12,
		.colourEncoding = PixelFormatInfo::ColourEncodingYUV,
		.pixelsPerGroup = 2,
		.planes = {{ { 2, 1 }, { 2, 2 }, { 0, 0 } }},
	} },

	/* Bayer formats. */
	{ formats::R10_CSI2P, {
		.name = "R10_CSI2P",
		.format = formats::R10_CSI2P,
		.bitsPerPixel = 10,
		.colourEncoding = PixelFormatInfo::ColourEncodingYUV,
		.packed = true,
		.pixelsPerGroup = 4,
		.planes = {{ { 5, 1 }, { 0, 0 }, { 0, 0 } }},
	} },
	{ formats::SBGGR10_CSI2P, {
		.name = "SBGGR10_CSI2P",
		.format = formats::SBGGR10_CSI2P,
		.v4l2Formats = { V4L2PixelFormat(V4L2_PIX_FMT_SBGGR10P), },
		.bitsPerPixel = 10,
		.colourEncoding = PixelFormatInfo::ColourEncodingRAW,
		.packed = true,
		.pixelsPerGroup = 4,
		.planes = {{ { 5, 1 }, { 0, 0 }, { 0, 0 } }},
	} },

	/* Compressed formats. */
	{ formats::MJPEG, {
		.name = "MJPEG",
		.format = formats::MJPEG,
		.v4l2Formats = {
			V4L2PixelFormat(V4L2_PIX_FMT_MJPEG),
			V4L2PixelFormat(V4L2_PIX_FMT_JPEG),
		},
		.bitsPerPixel = 0,
		.colourEncoding = PixelFormatInfo::ColourEncodingYUV,
		.packed = false,
		.pixelsPerGroup = 1,
		.planes = {{ { 1, 1 }, { 0, 0 }, { 0, 0 } }},
	} },
};

} /* namespace */

} /* namespace libcamera */
`

// ControlsCoreYAML is a core control schema.
const ControlsCoreYAML = `# SPDX-License-Identifier: LGPL-2.1-or-later
%YAML 1.1
---
vendor: libcamera
controls:
  - AeEnable:
      type: bool
      direction: inout
      description: |
        Enable or disable the AEGC algorithm.

  - AeMeteringMode:
      type: int32_t
      direction: inout
      description: |
        Specify a metering mode for the AE algorithm to use.
      enum:
        - name: MeteringCentreWeighted
          value: 0
          description: Centre-weighted metering mode.
        - name: MeteringSpot
          value: 1
          description: Spot metering mode.

  - ColourGains:
      type: float
      direction: inout
      description: |
        Pair of gain values for the Red and Blue colour channels, in that
        order.
      size: [2]

  - ColourCorrectionMatrix:
      type: float
      direction: inout
      description: |
        The 3x3 matrix that converts camera RGB to sRGB.

          [ r' ]   [ m00 m01 m02 ]   [ r ]
          [ g' ] = [ m10 m11 m12 ] x [ g ]
          [ b' ]   [ m20 m21 m22 ]   [ b ]

        The matrix is applied after white balance.
      size: [3, 3]

  - AfWindows:
      type: Rectangle
      direction: inout
      description: |
        The focus windows used by the AF algorithm.
      size: [n]

  - FrameDuration:
      type: int64_t
      direction: out
      description: |
        The instantaneous frame duration from start of frame exposure to start
        of next exposure, expressed in microseconds.
...
`

// ControlsRPiYAML is a vendor control schema.
const ControlsRPiYAML = `%YAML 1.1
---
vendor: rpi
controls:
  - StatsOutputEnable:
      type: bool
      direction: in
      description: |
        Toggles the Raspberry Pi IPA to output the hardware generated statistics.
...
`

// PropertiesCoreYAML is a core property schema.
const PropertiesCoreYAML = `%YAML 1.1
---
vendor: libcamera
controls:
  - Location:
      type: int32_t
      description: |
        Camera mounting location.
      enum:
        - name: CameraLocationFront
          value: 0
          description: The camera is mounted on the front side.
        - name: CameraLocationBack
          value: 1
          description: The camera is mounted on the back side.

  - Model:
      type: string
      description: |
        The model name shall to the extent possible describe the sensor.

  - PixelArraySize:
      type: Size
      description: |
        The camera sensor pixel array readable area vertical and horizontal
        sizes, in pixels.
...
`

// ControlIDsHeader is an installed libcamera/control_ids.h.
const ControlIDsHeader = `/* SPDX-License-Identifier: LGPL-2.1-or-later */
#pragma once

#include <map>
#include <stdint.h>

#define LIBCAMERA_HAS_LIBCAMERA_VENDOR_CONTROLS
#define LIBCAMERA_HAS_DRAFT_VENDOR_CONTROLS
#define LIBCAMERA_HAS_RPI_VENDOR_CONTROLS

namespace libcamera {

namespace controls {

enum {
	AE_ENABLE = 1,
	AE_METERING_MODE = 2,
};

} /* namespace controls */

} /* namespace libcamera */
`

// FormatsHeader is an installed libcamera/formats.h.
const FormatsHeader = `/* SPDX-License-Identifier: LGPL-2.1-or-later */
#pragma once

#include <stdint.h>

#include <libcamera/pixel_format.h>

namespace libcamera {

namespace formats {

namespace {

constexpr uint32_t __fourcc(char a, char b, char c, char d)
{
	return (static_cast<uint32_t>(a) << 0) |
	       (static_cast<uint32_t>(b) << 8) |
	       (static_cast<uint32_t>(c) << 16) |
	       (static_cast<uint32_t>(d) << 24);
}

constexpr uint64_t __mod(unsigned int vendor, unsigned int mod)
{
	return (static_cast<uint64_t>(vendor) << 56) |
	       (static_cast<uint64_t>(mod) << 0);
}

} /* namespace */

constexpr PixelFormat RGB565{ __fourcc('R', 'G', '1', '6') };
constexpr PixelFormat NV12{ __fourcc('N', 'V', '1', '2') };
constexpr PixelFormat SBGGR10_CSI2P{ __fourcc('B', 'G', '1', '0'), __mod(11, 1) };

} /* namespace formats */

} /* namespace libcamera */
`

// SourceTree returns a libcamera source tree holding the fixtures above.
func SourceTree() fstest.MapFS {
	return fstest.MapFS{
		"src/libcamera/control_ids_core.yaml":  {Data: []byte(ControlsCoreYAML)},
		"src/libcamera/control_ids_rpi.yaml":   {Data: []byte(ControlsRPiYAML)},
		"src/libcamera/property_ids_core.yaml": {Data: []byte(PropertiesCoreYAML)},
		"src/libcamera/formats.yaml":           {Data: []byte(FormatsYAML)},
		"src/libcamera/formats.cpp":            {Data: []byte(FormatsCPP)},
		"src/libcamera/meson.build":            {Data: []byte("libcamera_sources = files([])\n")},
		"include/linux/drm_fourcc.h":           {Data: []byte(LocalDRMHeader)},
	}
}

// IncludeTree returns an installed include directory.
func IncludeTree() fstest.MapFS {
	return fstest.MapFS{
		"libcamera/control_ids.h": {Data: []byte(ControlIDsHeader)},
		"libcamera/formats.h":     {Data: []byte(FormatsHeader)},
	}
}

// WriteTree copies fsys into dir on disk.
func WriteTree(t testing.TB, dir string, fsys fs.FS) {
	t.Helper()
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		return os.WriteFile(dst, data, 0644)
	})
	if err != nil {
		t.Fatalf("write tree: %v", err)
	}
}
