package commands

import (
	"encoding/json"
	"fmt"

	"github.com/gerunddev/wikibridge/internal/config"
	"github.com/gerunddev/wikibridge/internal/styles"
	"github.com/spf13/cobra"
)

var configInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if configInit {
			cfg := config.DefaultConfig()
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Fprintln(out, styles.Success("wrote "+config.ConfigPath()))
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}

		fmt.Fprintln(out, styles.DimStyle.Render("Config file: "+config.ConfigPath()))
		fmt.Fprintln(out, styles.DimStyle.Render("State file:  "+config.StateFilePath()))
		fmt.Fprintln(out, string(data))
		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "write a config file with the defaults")

	rootCmd.AddCommand(configCmd)
}
