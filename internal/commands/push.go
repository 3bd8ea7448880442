package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/gerunddev/wikibridge/internal/styles"
	"github.com/spf13/cobra"
)

var pushOpts struct {
	out    string
	commit bool
}

var pushCmd = &cobra.Command{
	Use:   "push <page-file>",
	Short: "Plan the storage update for an edited page file",
	Long: `Push compares a page file with the snapshot taken when it was pulled.
Edits confined to tagged nodes are applied to the snapshot in place; anything
else is converted as a whole. The resulting storage is written to --out, or
to stdout. With --commit the result becomes the new snapshot.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.close()

		plan, err := e.syncer.Push(args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "%s %s\n", styles.Mode(string(plan.Mode)), plan.String())
		if len(plan.Changed) > 0 {
			fmt.Fprintln(os.Stderr, styles.DimStyle.Render("  changed: "+strings.Join(plan.Changed, ", ")))
		}
		if len(plan.Missing) > 0 {
			fmt.Fprintln(os.Stderr, styles.Warning("not found: "+strings.Join(plan.Missing, ", ")))
		}

		if err := writeOutput(cmd.OutOrStdout(), pushOpts.out, plan.Storage); err != nil {
			return err
		}

		if pushOpts.commit {
			if err := e.syncer.Commit(plan); err != nil {
				return err
			}
			if err := e.saveState(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, styles.Success(fmt.Sprintf("snapshot updated to version %d", plan.NextVersion)))
		}
		return nil
	},
}

func init() {
	pushCmd.Flags().StringVarP(&pushOpts.out, "out", "o", "", "file to write the storage to (default stdout)")
	pushCmd.Flags().BoolVar(&pushOpts.commit, "commit", false, "record the planned storage as the new snapshot")

	rootCmd.AddCommand(pushCmd)
}
