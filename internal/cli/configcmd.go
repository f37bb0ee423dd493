package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/michael-lorenzo/pypi-dependency-graph/internal/config"
	perrors "github.com/michael-lorenzo/pypi-dependency-graph/pkg/errors"
)

// configCommand creates the config command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the configuration",
	}
	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configInitCommand())
	return cmd
}

// configShowCommand prints the effective configuration after defaults, file,
// environment and flags have been merged.
func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Encode(cmd.OutOrStdout(), c.cfg)
		},
	}
}

func (c *CLI) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Example: `  pypigraph config init
  pypigraph config init ~/.config/pypigraph/config.toml --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) == 1 {
				path = args[0]
			}

			err := config.WriteDefault(path, force)
			if errors.Is(err, config.ErrExists) {
				return perrors.New(perrors.ErrCodeInvalidInput, "%s already exists (use --force to overwrite)", path)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSuccess(out, "Wrote default configuration")
			printFile(out, path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
