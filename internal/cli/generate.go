package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/youruser/spotdeck/internal/deck"
)

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <sticker>...",
		Short: "Print the deck the given sticker names would produce",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := make([]deck.StickerRef, len(args))
			for i, a := range args {
				names[i] = filepath.Base(a)
			}
			d, err := deck.Generate(names)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), deck.ExportText(d))
			return nil
		},
	}
}
