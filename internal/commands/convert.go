package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/gerunddev/wikibridge/internal/config"
	"github.com/gerunddev/wikibridge/internal/convert"
	"github.com/gerunddev/wikibridge/internal/styles"
	"github.com/spf13/cobra"
)

var convertOpts struct {
	to  string
	out string
}

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert between storage markup and portable text",
	Long: `Convert translates a single document without touching the workspace.
--to text reads storage markup, --to storage reads portable text. Use "-" to
read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readInput(args[0])
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		conv := convert.New(convert.WithImageWidth(cfg.ImageWidth))

		switch convertOpts.to {
		case "text":
			result, err := conv.ToText(src)
			if err != nil {
				return err
			}
			if !result.Report.Empty() {
				fmt.Fprintln(os.Stderr, styles.Warning("not carried over: "+strings.Join(result.Report.Strings(), ", ")))
			}
			return writeOutput(cmd.OutOrStdout(), convertOpts.out, result.Text)
		case "storage":
			return writeOutput(cmd.OutOrStdout(), convertOpts.out, conv.ToStorage(src))
		default:
			return fmt.Errorf("unknown target %q: must be text or storage", convertOpts.to)
		}
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertOpts.to, "to", "text", "target format: text or storage")
	convertCmd.Flags().StringVarP(&convertOpts.out, "out", "o", "", "output file (default stdout)")

	rootCmd.AddCommand(convertCmd)
}
