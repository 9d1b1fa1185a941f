package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/fafquery/internal/cli/config"
	"github.com/leapstack-labs/fafquery/internal/cli/output"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the config file,
FAFQUERY_ environment variables and flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetConfig(cmd.Context())
			r := newRenderer(cmd)

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			if r.EffectiveMode() == output.ModeJSON {
				var m map[string]any
				if err := yaml.Unmarshal(data, &m); err != nil {
					return fmt.Errorf("failed to encode config: %w", err)
				}
				return r.JSON(m)
			}
			if file := config.GetConfigFileUsed(); file != "" {
				r.Printf("# config file: %s\n", file)
			}
			_, err = r.Writer().Write(data)
			return err
		},
	}
}
