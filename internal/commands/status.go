package commands

import (
	"fmt"
	"time"

	"github.com/gerunddev/wikibridge/internal/styles"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List pulled pages and whether they have local edits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.close()

		out := cmd.OutOrStdout()
		pages := e.syncer.Status()
		if len(pages) == 0 {
			fmt.Fprintln(out, styles.DimStyle.Render("No pages pulled yet"))
			return nil
		}

		for _, p := range pages {
			var mark string
			switch {
			case p.Err != nil:
				mark = styles.Error(p.Err.Error())
			case p.Modified:
				mark = styles.WarningStyle.Render("modified")
			default:
				mark = styles.DimStyle.Render("clean")
			}

			line := fmt.Sprintf("%-10s v%-4d %s  %s", p.PageID, p.Version, mark, styles.PathStyle.Render(p.Path))
			if t, ok := LastPull(e.cfg.LogFile, p.PageID, 1000); ok {
				line += styles.DimStyle.Render("  pulled " + t.Format(time.DateTime))
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
