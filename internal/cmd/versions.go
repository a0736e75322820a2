package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/fatih/color"
	"github.com/rodaine/table"
	"golang.org/x/term"

	"github.com/Alia5/camerameta/internal/artifact"
	"github.com/Alia5/camerameta/internal/codegen/compat"
	"github.com/Alia5/camerameta/internal/resolve"
)

type Versions struct {
	VersionsDir string `help:"Artifact store written by harvest" default:"./versioned_files" env:"CAMERAMETA_VERSIONS_DIR"`
	Runtime     string `help:"Mark the sets usable with this libcamera version" env:"CAMERAMETA_RUNTIME_VERSION"`
	Policy      string `help:"Version matching policy for --runtime" default:"exact" enum:"exact,caret" env:"CAMERAMETA_POLICY"`

	out io.Writer `kong:"-"`
}

// Run is called by Kong when the versions command is executed.
func (v *Versions) Run(logger *slog.Logger) error {
	w := v.out
	if w == nil {
		w = os.Stdout
		color.NoColor = os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd()))
	}

	policy, err := compat.ParsePolicy(v.Policy)
	if err != nil {
		return err
	}
	var runtime, selected *semver.Version
	if v.Runtime != "" {
		if runtime, err = semver.NewVersion(v.Runtime); err != nil {
			return fmt.Errorf("invalid runtime version: %w", err)
		}
	}

	store := artifact.NewFSStore(v.VersionsDir, logger)
	names, err := store.Names()
	if err != nil {
		return err
	}
	candidates := resolve.Candidates(names)
	if len(candidates) == 0 {
		logger.Warn("No artifact sets found", "dir", v.VersionsDir)
		return nil
	}
	if runtime != nil {
		selected, _ = resolve.Select(runtime, candidates, policy)
	}

	headerFmt := color.New(color.FgGreen, color.Bold).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()
	headers := []any{"Version", "Tag", "Generator", "Files", "Status"}
	if runtime != nil {
		headers = append(headers, "Runtime "+runtime.String())
	}
	tbl := table.New(headers...).WithWriter(w)
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)

	for _, c := range candidates {
		row := []any{c.String(), "-", "-", "-", "ok"}
		set, err := store.Read(c)
		var ierr *artifact.IntegrityError
		switch {
		case errors.As(err, &ierr):
			row[4] = "corrupt: " + ierr.File
		case err != nil:
			row[4] = "unreadable"
			logger.Debug("Failed to read artifact set", "version", c.String(), "error", err)
		default:
			row[1], row[2], row[3] = set.Tag, set.Generator, generatedCount(set)
		}
		if runtime != nil {
			row = append(row, compatibility(policy, c, runtime, selected))
		}
		tbl.AddRow(row...)
	}
	tbl.Print()
	return nil
}

func generatedCount(set *artifact.Set) int {
	n := 0
	for name := range set.Files {
		if !strings.HasPrefix(name, artifact.SourcesDir+"/") {
			n++
		}
	}
	return n
}

func compatibility(policy compat.Policy, candidate, runtime, selected *semver.Version) string {
	switch {
	case selected != nil && candidate.Equal(selected):
		return "selected"
	case policy.Matches(candidate, runtime):
		return "compatible"
	default:
		return ""
	}
}
