// Package info implements the info command, which prints what the loaded
// model expects and returns.
package info

import (
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/deepscan/fakedetect/internal/conf"
	"github.com/deepscan/fakedetect/internal/detector"
)

// Model is the part of a loaded detector the command needs
type Model interface {
	Info() detector.ModelInfo
	Close() error
}

// Deps are supplied by the root command
type Deps struct {
	Settings func() *conf.Settings
	Open     func(settings *conf.Settings) (Model, error)
	Stdout   io.Writer
}

type report struct {
	Model              string `yaml:"model"`
	detector.ModelInfo `yaml:",inline"`
}

// Command creates the info command
func Command(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the model backend and tensor shapes",
		Long:  "Load the configured model and print its backend, input and output shapes as YAML.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := deps.Settings()

			model, err := deps.Open(settings)
			if err != nil {
				return err
			}
			defer func() { _ = model.Close() }()

			data, err := yaml.Marshal(report{Model: settings.Model.Path, ModelInfo: model.Info()})
			if err != nil {
				return err
			}
			_, err = deps.Stdout.Write(data)
			return err
		},
	}

	return cmd
}
