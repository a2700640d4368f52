package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/storage"
)

// getConfigCommand returns the config command
func getConfigCommand() *cobra.Command {
	// path and set must work even when the file holds an invalid value
	var loadErr error
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, loadErr = storage.InitConfig()
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			if loadErr != nil {
				return loadErr
			}
			redacted := storage.GetConfig().Redacted()
			out, err := yaml.Marshal(&redacted)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := storage.ConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write one setting to the configuration file",
		Long: `Write one setting to the configuration file. List settings such as
security.dangerous_commands take a comma-separated value.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.SetValue(args[0], args[1]); err != nil {
				return err
			}
			if _, err := storage.InitConfig(); err != nil {
				return fmt.Errorf("setting saved but the configuration is now invalid: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the current settings, including defaults, to the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if loadErr != nil {
				return loadErr
			}
			if err := storage.SaveConfig(storage.GetConfig()); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			path, err := storage.ConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
			return nil
		},
	})

	return cmd
}
