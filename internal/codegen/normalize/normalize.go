package normalize

import (
	"fmt"

	"github.com/Alia5/camerameta/internal/codegen/harvest"
	"github.com/Alia5/camerameta/internal/codegen/meta"
	"github.com/Alia5/camerameta/internal/codegen/scanner"
)

// Normalize builds the model of one release. The tree's own drm_fourcc.h,
// when the bundle carries one, is overlaid on t for this release only.
func Normalize(b harvest.Bundle, t *scanner.Tables) (*meta.Model, error) {
	if len(b.LocalDRMHeader) > 0 {
		local := scanner.NewTables()
		local.AddDRM(b.LocalDRMHeader)
		t = t.Merge(local)
	}

	m := &meta.Model{Version: b.Version}
	var err error
	if m.Controls, err = Controls(b.Controls); err != nil {
		return nil, fmt.Errorf("controls: %w", err)
	}
	if m.Properties, err = Controls(b.Properties); err != nil {
		return nil, fmt.Errorf("properties: %w", err)
	}
	if m.Formats, err = FormatConstants(b.FormatsYAML, t); err != nil {
		return nil, fmt.Errorf("formats: %w", err)
	}
	m.PixelFormats = PixelFormats(b.FormatsCPP, m.Formats, t)
	return m, nil
}
