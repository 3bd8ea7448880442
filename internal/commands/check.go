package commands

import (
	"fmt"
	"strings"

	"github.com/gerunddev/wikibridge/internal/pagefile"
	"github.com/gerunddev/wikibridge/internal/styles"
	"github.com/gerunddev/wikibridge/internal/sync"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Report page files that lost content or cannot be read",
	Long: `Check scans a directory (the workspace by default) for page files and
lists the ones with unreadable front matter or with content that was not
carried over when they were pulled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.close()

		dir := e.cfg.WorkspaceDir
		if len(args) == 1 {
			dir = args[0]
		}

		files, err := sync.ScanDirectory(dir, ".md")
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", dir, err)
		}

		out := cmd.OutOrStdout()
		problems := 0
		for _, path := range files {
			page, err := pagefile.Read(path)
			if err != nil {
				problems++
				fmt.Fprintln(out, styles.Error(path+": "+err.Error()))
				continue
			}
			if len(page.Meta.Unsupported) > 0 {
				problems++
				fmt.Fprintln(out, styles.Warning(path+": "+strings.Join(page.Meta.Unsupported, ", ")))
			}
		}

		fmt.Fprintln(out, styles.DimStyle.Render(fmt.Sprintf("%d page files, %d with problems", len(files), problems)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
