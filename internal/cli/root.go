// Package cli implements the deckctl command-line interface: it submits
// sticker images to a deck server, writes the rendered deck page, and
// downloads the deck export.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/youruser/spotdeck/internal/config"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	configKey
)

func withLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func loggerFromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

func configFromContext(ctx context.Context) config.Config {
	if c, ok := ctx.Value(configKey).(config.Config); ok {
		return c
	}
	return config.Default()
}

// NewRootCmd builds the command tree writing command output to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	var (
		verbose    bool
		configPath string
		server     string
	)

	root := &cobra.Command{
		Use:          "deckctl",
		Short:        "Generate Spot-It sticker decks",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if server != "" {
				cfg.Client.BaseURL = server
			}
			logger, err := config.NewLogger(cfg.Log, verbose)
			if err != nil {
				return err
			}
			ctx := withLogger(cmd.Context(), logger)
			cmd.SetContext(context.WithValue(ctx, configKey, cfg))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = loggerFromContext(cmd.Context()).Sync()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	root.PersistentFlags().StringVarP(&server, "server", "s", "", "deck server base URL")

	root.AddCommand(newSubmitCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newGenerateCmd())
	return root
}

// Execute runs deckctl.
func Execute(out io.Writer) error {
	return NewRootCmd(out).ExecuteContext(context.Background())
}
