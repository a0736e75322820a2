package config

import (
	"github.com/alecthomas/kong"

	"github.com/Alia5/camerameta/internal/cmd"
	"github.com/Alia5/camerameta/internal/log"
)

// CLI is the root command line of camerameta.
type CLI struct {
	Version    kong.VersionFlag `help:"Print the version and exit"`
	Log        log.Config       `embed:"" prefix:"log."`
	ConfigFile string           `name:"config" help:"Configuration file (JSON, YAML or TOML)" type:"path" env:"CAMERAMETA_CONFIG"`

	Harvest  cmd.Harvest       `cmd:"" help:"Generate Go metadata for every libcamera release"`
	Resolve  cmd.Resolve       `cmd:"" help:"Install the metadata matching the local libcamera"`
	Versions cmd.Versions      `cmd:"" help:"List the stored metadata versions"`
	Config   cmd.ConfigCommand `cmd:"" help:"Configuration helpers"`
}
