package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/youruser/spotdeck/internal/client"
	"github.com/youruser/spotdeck/internal/layout"
	"github.com/youruser/spotdeck/internal/render"
)

func newSubmitCmd() *cobra.Command {
	var (
		layoutName string
		outPath    string
		export     bool
	)
	cmd := &cobra.Command{
		Use:   "submit <sticker>...",
		Short: "Upload stickers and write the rendered deck page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFromContext(ctx)
			log := loggerFromContext(ctx)

			if layoutName == "" {
				layoutName = cfg.Client.Layout
			}
			s, err := layout.ByName(layoutName)
			if err != nil {
				return err
			}
			if c, ok := s.(layout.Circular); ok && cfg.Client.Radius > 0 {
				c.Radius = cfg.Client.Radius
				s = c
			}

			form, err := client.FormFromPaths(args...)
			if err != nil {
				return err
			}
			page, err := render.NewPage()
			if err != nil {
				return err
			}

			httpClient := &http.Client{Timeout: cfg.Client.Timeout.Duration}
			opts := []client.Option{
				client.WithHTTPClient(httpClient),
				client.WithLayout(s),
				client.WithLogger(log),
				client.WithAlerter(client.WriterAlerter{W: cmd.ErrOrStderr()}),
				client.WithNavigator(client.DownloadNavigator{Dir: cfg.Client.ExportDir, Client: httpClient, Log: log}),
			}
			if !cfg.Client.ProbeImages {
				opts = append(opts, client.WithoutImageProbe())
			}
			r := client.New(cfg.Client.BaseURL, page, opts...)

			outcome, err := r.Submit(ctx, form)
			r.Wait()
			if outcome != client.Rendered {
				if err == nil {
					return fmt.Errorf("submit: %s", outcome)
				}
				return fmt.Errorf("submit: %w", err)
			}

			w := cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := page.Render(w); err != nil {
				return fmt.Errorf("write page: %w", err)
			}
			log.Debug("page written", zap.String("out", outPath))

			if export {
				return r.Export(ctx)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&layoutName, "layout", "l", "", "sticker layout: circular, grid or linear")
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "file to write the rendered page to")
	cmd.Flags().BoolVar(&export, "export", false, "download the deck export after rendering")
	return cmd
}
