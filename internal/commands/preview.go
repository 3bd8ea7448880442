package commands

import (
	"fmt"

	"github.com/gerunddev/wikibridge/internal/diff"
	"github.com/gerunddev/wikibridge/internal/nodemap"
	"github.com/gerunddev/wikibridge/internal/pagefile"
	"github.com/gerunddev/wikibridge/internal/styles"
	"github.com/spf13/cobra"
)

var previewWidth int

var previewCmd = &cobra.Command{
	Use:   "preview <page-file>",
	Short: "Render a page file in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := pagefile.Read(args[0])
		if err != nil {
			return err
		}

		rendered, err := diff.Preview(nodemap.StripTags(page.Body), previewWidth)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, styles.TitleStyle.Render(page.Meta.Title))
		fmt.Fprint(out, rendered)
		return nil
	},
}

func init() {
	previewCmd.Flags().IntVar(&previewWidth, "width", 100, "word wrap width")

	rootCmd.AddCommand(previewCmd)
}
