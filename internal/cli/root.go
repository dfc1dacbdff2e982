// Package cli implements the medctl command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medialib-dev/medialib/internal/client"
	"github.com/medialib-dev/medialib/internal/version"
)

var (
	apiBaseURL string
	contentTyp string
)

var rootCmd = &cobra.Command{
	Use:   "medctl",
	Short: "Medialib admin CLI",
	Long:  `medctl manages the medialib content catalog: select items across pages, then apply bulk actions and watch their progress.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api", "", "API base URL (default $MEDIALIB_API_BASE_URL or http://localhost:8080/v0)")
	rootCmd.Version = version.Version

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(bulkCmd)
}

func apiClient() *client.Client {
	if apiBaseURL != "" {
		return client.NewClient(apiBaseURL)
	}
	return client.NewClientFromEnv()
}
