package commands

import (
	"fmt"
	"os"

	"github.com/gerunddev/wikibridge/internal/diff"
	"github.com/gerunddev/wikibridge/internal/pagefile"
	"github.com/gerunddev/wikibridge/internal/styles"
	"github.com/spf13/cobra"
)

var diffOpts struct {
	storage bool
	plain   bool
	width   int
}

var diffCmd = &cobra.Command{
	Use:   "diff <page-file>",
	Short: "Show local edits to a pulled page",
	Long: `Diff compares a page file with the text it had when it was pulled.
With --storage it compares the pulled storage with what push would submit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.close()

		var unified string
		if diffOpts.storage {
			plan, err := e.syncer.Push(args[0])
			if err != nil {
				return err
			}
			snapshot, err := os.ReadFile(e.syncer.SnapshotPath(plan.PageID))
			if err != nil {
				return fmt.Errorf("failed to read snapshot: %w", err)
			}
			unified = diff.Storage(
				diff.Side{Name: "snapshot", Content: string(snapshot)},
				diff.Side{Name: string(plan.Mode), Content: plan.Storage})
		} else {
			page, err := pagefile.Read(args[0])
			if err != nil {
				return err
			}
			pulled, err := e.syncer.Baseline(page.Meta.PageID)
			if err != nil {
				return err
			}
			unified = diff.Generate(
				diff.Side{Name: "pulled", Content: pulled},
				diff.Side{Name: args[0], Content: page.Body})
		}

		out := cmd.OutOrStdout()
		if unified == "" {
			fmt.Fprintln(out, styles.DimStyle.Render("No changes"))
			return nil
		}
		if diffOpts.plain {
			fmt.Fprint(out, unified)
			return nil
		}
		fmt.Fprint(out, diff.Render(unified, diffOpts.width))
		return nil
	},
}

func init() {
	diffCmd.Flags().BoolVar(&diffOpts.storage, "storage", false, "diff storage markup instead of text")
	diffCmd.Flags().BoolVar(&diffOpts.plain, "plain", false, "print the unified diff without rendering")
	diffCmd.Flags().IntVar(&diffOpts.width, "width", 120, "word wrap width")

	rootCmd.AddCommand(diffCmd)
}
