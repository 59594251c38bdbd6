// Package config implements the config command, which prints the effective
// settings after defaults, config file, environment and flags are merged.
package config

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/deepscan/fakedetect/internal/conf"
)

const redacted = "[REDACTED]"

// Deps are supplied by the root command
type Deps struct {
	Settings   func() *conf.Settings
	ConfigFile func() string
	Stdout     io.Writer
}

// Command creates the config command
func Command(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := deps.ConfigFile()
			if source == "" {
				source = "none, defaults and environment"
			}

			data, err := yaml.Marshal(maskSecrets(*deps.Settings()))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(deps.Stdout, "# config file: %s\n%s", source, data)
			return err
		},
	}

	return cmd
}

func maskSecrets(settings conf.Settings) conf.Settings {
	if settings.Sentry.DSN != "" {
		settings.Sentry.DSN = redacted
	}
	return settings
}
