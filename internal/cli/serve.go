package cli

import (
	"github.com/spf13/cobra"

	"github.com/medialib-dev/medialib/internal/catalog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the medialib API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return catalog.App(cmd.Context())
	},
}
