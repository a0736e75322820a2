package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Alia5/camerameta/internal/artifact"
	"github.com/Alia5/camerameta/internal/codegen/compat"
	"github.com/Alia5/camerameta/internal/codegen/generator"
	"github.com/Alia5/camerameta/internal/codegen/harvest"
)

type Harvest struct {
	RepoURL        string `help:"libcamera git repository to clone" default:"https://git.libcamera.org/libcamera/libcamera.git" env:"CAMERAMETA_REPO_URL"`
	GitDir         string `help:"Local clone of the repository, created when missing" default:"./libcamera-git" env:"CAMERAMETA_GIT_DIR"`
	SourceDir      string `help:"Harvest this source tree as a single version instead of git tags" env:"CAMERAMETA_SOURCE_DIR"`
	SourceVersion  string `help:"Version of the tree given by --source-dir" env:"CAMERAMETA_SOURCE_VERSION"`
	Output         string `help:"Artifact store directory, one subdirectory per version" default:"./versioned_files" env:"CAMERAMETA_OUTPUT"`
	Floor          string `help:"Oldest version to generate" default:"0.4.0" env:"CAMERAMETA_FLOOR"`
	DRMHeader      string `name:"drm-header" help:"System drm_fourcc.h" default:"/usr/include/drm/drm_fourcc.h" env:"CAMERAMETA_DRM_HEADER"`
	VideodevHeader string `help:"System videodev2.h" default:"/usr/include/linux/videodev2.h" env:"CAMERAMETA_VIDEODEV_HEADER"`
	Package        string `help:"Package clause of the generated files" default:"libcamera" env:"CAMERAMETA_PACKAGE"`
	NativeHeader   string `help:"cgo preamble exposing the control id enumerators" default:"#include \"camerameta_ids.h\"" env:"CAMERAMETA_NATIVE_HEADER"`
	KeepGoing      bool   `help:"Skip versions that fail instead of aborting" env:"CAMERAMETA_KEEP_GOING"`
	Clean          bool   `help:"Remove every stored version before generating" env:"CAMERAMETA_CLEAN"`
}

// Run is called by Kong when the harvest command is executed.
func (h *Harvest) Run(logger *slog.Logger) error {
	floor, err := compat.ParseVersion(h.Floor)
	if err != nil {
		return fmt.Errorf("invalid floor: %w", err)
	}

	repo, err := h.repository(logger)
	if err != nil {
		return err
	}

	logger.Info("Starting harvest", "output", h.Output, "floor", floor.String())
	tables := generator.LoadTables(h.DRMHeader, h.VideodevHeader, logger)
	store := artifact.NewFSStore(h.Output, logger)

	gen := generator.New(store, tables, logger)
	gen.Harvester.Floor = floor
	gen.Emitter.Package = h.Package
	gen.Emitter.NativeHeader = h.NativeHeader
	gen.KeepGoing = h.KeepGoing
	gen.Clean = h.Clean

	written, err := gen.Run(repo)
	if err != nil {
		return err
	}
	if len(written) == 0 {
		logger.Warn("No versions generated", "floor", floor.String())
	}
	return nil
}

func (h *Harvest) repository(logger *slog.Logger) (harvest.Repository, error) {
	if h.SourceDir == "" {
		repo, err := harvest.OpenOrClone(h.GitDir, h.RepoURL, logger)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
	if h.SourceVersion == "" {
		return nil, errors.New("--source-dir requires --source-version")
	}
	v, err := compat.ParseVersion(h.SourceVersion)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(h.SourceDir); err != nil {
		return nil, fmt.Errorf("source tree: %w", err)
	}
	logger.Info("Harvesting source tree", "dir", h.SourceDir, "version", v.String())
	return harvest.FSRepository{"v" + v.String(): os.DirFS(h.SourceDir)}, nil
}
