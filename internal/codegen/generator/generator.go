package generator

import (
	"fmt"
	"log/slog"
	"path"

	"github.com/Masterminds/semver/v3"

	"github.com/Alia5/camerameta/internal/artifact"
	"github.com/Alia5/camerameta/internal/codegen/generator/golang"
	"github.com/Alia5/camerameta/internal/codegen/harvest"
	"github.com/Alia5/camerameta/internal/codegen/normalize"
	"github.com/Alia5/camerameta/internal/codegen/scanner"
)

// Default system header locations.
const (
	DefaultDRMHeader      = "/usr/include/drm/drm_fourcc.h"
	DefaultVideodevHeader = "/usr/include/linux/videodev2.h"
)

// Generator runs the harvest, normalize, emit and store pipeline.
type Generator struct {
	Harvester *harvest.Harvester
	Emitter   *golang.Emitter
	Store     artifact.Store
	Tables    *scanner.Tables
	// KeepGoing logs and skips a version that fails instead of aborting.
	KeepGoing bool
	// Clean removes every stored set before writing.
	Clean bool

	logger *slog.Logger
}

func New(store artifact.Store, tables *scanner.Tables, logger *slog.Logger) *Generator {
	return &Generator{
		Harvester: harvest.New(logger),
		Emitter:   golang.New(logger),
		Store:     store,
		Tables:    tables,
		logger:    logger,
	}
}

// LoadTables builds the constant tables from the system headers. Missing
// headers are logged and yield empty tables.
func LoadTables(drmHeader, videodevHeader string, logger *slog.Logger) *scanner.Tables {
	t := scanner.BuildTables(
		scanner.LoadHeader(drmHeader, logger),
		scanner.LoadHeader(videodevHeader, logger),
	)
	logger.Info("Built constant tables",
		"fourcc", len(t.FourCC), "modifiers", len(t.Modifier), "legacy", len(t.Legacy))
	return t
}

// Run generates an artifact set for every eligible release in repo and
// returns the versions written, ascending.
func (g *Generator) Run(repo harvest.Repository) ([]*semver.Version, error) {
	if g.Clean {
		if err := g.Store.Reset(); err != nil {
			return nil, fmt.Errorf("clean artifact store: %w", err)
		}
	}

	g.Harvester.KeepGoing = g.KeepGoing
	bundles, err := g.Harvester.Harvest(repo)
	if err != nil {
		return nil, fmt.Errorf("harvest: %w", err)
	}
	g.logger.Info("Harvested releases", "count", len(bundles))

	var written []*semver.Version
	for _, b := range bundles {
		set, err := g.Build(b)
		if err != nil {
			if g.KeepGoing {
				g.logger.Warn("Skipping version", "version", b.Version.String(), "tag", b.Tag, "error", err)
				continue
			}
			return written, fmt.Errorf("version %s: %w", b.Version, err)
		}
		if err := g.Store.Write(set); err != nil {
			return written, fmt.Errorf("store version %s: %w", b.Version, err)
		}
		written = append(written, b.Version)
	}

	g.logger.Info("Generation complete", "versions", len(written))
	return written, nil
}

// Build turns one bundle into its artifact set: the generated files plus
// copies of the raw inputs under artifact.SourcesDir.
func (g *Generator) Build(b harvest.Bundle) (*artifact.Set, error) {
	g.logger.Debug("Normalizing", "version", b.Version.String())
	model, err := normalize.Normalize(b, g.Tables)
	if err != nil {
		return nil, err
	}
	g.logger.Info("Normalized release",
		"version", b.Version.String(),
		"controls", len(model.Controls),
		"properties", len(model.Properties),
		"formats", len(model.Formats),
		"pixelFormats", len(model.PixelFormats))

	files, err := g.Emitter.Generate(model)
	if err != nil {
		return nil, err
	}

	set := artifact.NewSet(b.Version, b.Tag)
	set.Generator = g.Emitter.ToolVersion
	for name, data := range files {
		set.Add(name, data)
		g.logger.Debug("Generated file", "version", b.Version.String(), "file", name)
	}
	for _, f := range b.Controls {
		set.Add(path.Join(artifact.SourcesDir, f.Name), f.Data)
	}
	for _, f := range b.Properties {
		set.Add(path.Join(artifact.SourcesDir, f.Name), f.Data)
	}
	set.Add(path.Join(artifact.SourcesDir, path.Base(g.Harvester.Paths.Catalogue)), b.FormatsYAML)
	set.Add(path.Join(artifact.SourcesDir, path.Base(g.Harvester.Paths.Layout)), b.FormatsCPP)
	if len(b.LocalDRMHeader) > 0 {
		set.Add(path.Join(artifact.SourcesDir, path.Base(g.Harvester.Paths.LocalDRMHeader)), b.LocalDRMHeader)
	}
	return set, nil
}
