package commands

import (
	"fmt"
	"os"

	"github.com/gerunddev/wikibridge/internal/config"
	"github.com/gerunddev/wikibridge/internal/styles"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "wikibridge",
	Short: "Edit wiki pages as portable text",
	Long: `wikibridge converts wiki storage markup to portable text and back.

Pulled pages are written as page files: front matter describing the page,
followed by text in which every block is tagged with the storage node it came
from. Pushing a page file plans the smallest update that carries the edits,
replacing changed nodes in place when it can.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configFile != "" {
			path := configFile
			config.ConfigPath = func() string { return path }
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "also log to stderr")
}

// Execute runs the command line and returns the process exit code
func Execute(version string) int {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.Error(err.Error()))
		return 1
	}
	return 0
}
