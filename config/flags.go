package config

import (
	"github.com/urfave/cli/v2"
)

var (
	ConfigFileFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "TOML configuration file",
		EnvVars: []string{"P2PINDEX_CONFIG"},
	}
	LogLevelFlag = &cli.StringFlag{
		Name:    "log.level",
		Usage:   "log level (debug, info, warn, error)",
		EnvVars: []string{"P2PINDEX_LOG_LEVEL"},
	}
	LogFormatFlag = &cli.StringFlag{
		Name:  "log.format",
		Usage: "log encoding (console, json)",
	}
	LogFileFlag = &cli.StringFlag{
		Name:    "log.file",
		Usage:   "write logs to a rotated file instead of stderr",
		EnvVars: []string{"P2PINDEX_LOG_FILE"},
	}
)

var Flags = []cli.Flag{
	ConfigFileFlag,
	LogLevelFlag,
	LogFormatFlag,
	LogFileFlag,
}

// FromContext loads the config file named by --config and applies the log
// flags on top of it. Binaries apply their own flags afterwards.
func FromContext(c *cli.Context) (Config, error) {
	config, err := Load(c.String(ConfigFileFlag.Name))
	if err != nil {
		return config, err
	}

	if c.IsSet(LogLevelFlag.Name) {
		config.Log.Level = c.String(LogLevelFlag.Name)
	}
	if c.IsSet(LogFormatFlag.Name) {
		config.Log.Format = c.String(LogFormatFlag.Name)
	}
	if c.IsSet(LogFileFlag.Name) {
		config.Log.File = c.String(LogFileFlag.Name)
	}

	return config, nil
}
