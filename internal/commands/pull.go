package commands

import (
	"fmt"
	"strings"

	"github.com/gerunddev/wikibridge/internal/styles"
	"github.com/gerunddev/wikibridge/internal/sync"
	"github.com/spf13/cobra"
)

var pullOpts struct {
	id      string
	title   string
	space   string
	version int
	out     string
}

var pullCmd = &cobra.Command{
	Use:   "pull <storage-file>",
	Short: "Write an exported page to the workspace as a page file",
	Long: `Pull converts the storage markup of a page into a page file and keeps
the storage as a snapshot, so a later push can update it node by node.
Use "-" to read the storage from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readInput(args[0])
		if err != nil {
			return err
		}

		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.close()

		result, err := e.syncer.Pull(&sync.RemotePage{
			ID:      pullOpts.id,
			Title:   pullOpts.title,
			Space:   pullOpts.space,
			Version: pullOpts.version,
			Storage: src,
		}, pullOpts.out)
		if err != nil {
			return err
		}
		if err := e.saveState(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, styles.Success(result.String()))
		fmt.Fprintln(out, styles.PathStyle.Render("  "+result.Path))
		if !result.Report.Empty() {
			fmt.Fprintln(out, styles.ReportStyle.Render(
				styles.WarningStyle.Render("Not carried over:")+"\n"+strings.Join(result.Report.Strings(), "\n")))
		}
		return nil
	},
}

func init() {
	pullCmd.Flags().StringVar(&pullOpts.id, "id", "", "page id (required)")
	pullCmd.Flags().StringVar(&pullOpts.title, "title", "", "page title")
	pullCmd.Flags().StringVar(&pullOpts.space, "space", "", "space key")
	pullCmd.Flags().IntVar(&pullOpts.version, "version", 1, "page version")
	pullCmd.Flags().StringVarP(&pullOpts.out, "out", "o", "", "page file to write (default <workspace>/<space>/<title>.md)")
	_ = pullCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(pullCmd)
}
