package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/leshan-fleet/internal/config"
)

var forceInit bool

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the settings profile",
	Long: `Settings are read from a YAML profile, by default
$XDG_CONFIG_HOME/leshan-fleet/config.yaml. Flags given on the command line
override the profile.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a profile with the built-in defaults",
	// The existing profile may be the reason for running init
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	RunE:             runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing profile")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("profile %s already exists (use --force to overwrite)", path)
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := settings.Marshal()
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}
