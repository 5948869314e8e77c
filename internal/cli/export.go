package cli

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/youruser/spotdeck/internal/client"
)

func newExportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the export of the server's current deck",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFromContext(ctx)
			if dir == "" {
				dir = cfg.Client.ExportDir
			}
			nav := client.DownloadNavigator{
				Dir:    dir,
				Client: &http.Client{Timeout: cfg.Client.Timeout.Duration},
				Log:    loggerFromContext(ctx),
			}
			path, err := nav.Download(ctx, strings.TrimRight(cfg.Client.BaseURL, "/")+"/export")
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory to save the export into")
	return cmd
}
