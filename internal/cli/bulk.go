package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/medialib-dev/medialib/internal/client"
	"github.com/medialib-dev/medialib/internal/client/selection"
)

var (
	bulkStatus  string
	bulkConfirm bool
	bulkTrack   bool
	bulkPollInt time.Duration
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Apply an action to many items at once",
	Long:  `Apply one action to a set of items. Ids may be given as arguments; without arguments the current selection for the content type is used. Tracked batches run on the server and are polled here until they finish. Interrupting the poll does not stop the batch.`,
}

var bulkStatusCmd = &cobra.Command{
	Use:   "status <id>...",
	Short: "Change the publication status of items",
	RunE: func(cmd *cobra.Command, args []string) error {
		if bulkStatus == "" {
			return fmt.Errorf("--status is required")
		}
		if !bulkConfirm {
			return fmt.Errorf("changing status is destructive, re-run with --yes")
		}
		return runBulk(cmd.Context(), "change-status", args)
	},
}

var bulkFeatureCmd = &cobra.Command{
	Use:   "feature <id>...",
	Short: "Toggle the featured flag of items",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulk(cmd.Context(), "toggle-featured", args)
	},
}

var bulkRefreshCmd = &cobra.Command{
	Use:   "refresh <id>...",
	Short: "Refresh item metadata from the provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Metadata refreshes are slow; always track them.
		bulkTrack = true
		return runBulk(cmd.Context(), "refresh-metadata", args)
	},
}

var bulkDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Permanently delete items",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !bulkConfirm {
			return fmt.Errorf("delete is permanent, re-run with --yes")
		}
		return runBulk(cmd.Context(), "delete", args)
	},
}

func init() {
	bulkCmd.PersistentFlags().StringVarP(&contentTyp, "type", "t", "movie", "content type (movie or series)")
	bulkCmd.PersistentFlags().BoolVar(&bulkTrack, "track", false, "run detached and poll for progress")
	bulkCmd.PersistentFlags().DurationVar(&bulkPollInt, "poll-interval", client.DefaultPollInterval, "progress poll interval")
	bulkStatusCmd.Flags().StringVar(&bulkStatus, "status", "", "target status value")
	bulkStatusCmd.Flags().BoolVarP(&bulkConfirm, "yes", "y", false, "confirm the status change")
	bulkDeleteCmd.Flags().BoolVarP(&bulkConfirm, "yes", "y", false, "confirm the deletion")

	bulkCmd.AddCommand(bulkStatusCmd)
	bulkCmd.AddCommand(bulkFeatureCmd)
	bulkCmd.AddCommand(bulkRefreshCmd)
	bulkCmd.AddCommand(bulkDeleteCmd)
}

func runBulk(ctx context.Context, action string, args []string) error {
	ids, fromSelection, err := resolveIDs(args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("nothing selected: pass ids or use 'medctl select add' first")
	}

	req := client.BulkRequest{
		Type:    contentTyp,
		IDs:     ids,
		Status:  bulkStatus,
		Confirm: bulkConfirm,
		Track:   bulkTrack,
	}

	c := apiClient()
	resp, err := c.SubmitBulk(ctx, action, req)
	if err != nil {
		return err
	}

	var failed int
	if resp.ProgressKey != "" {
		final, err := watchProgress(ctx, c, resp.ProgressKey, len(ids))
		if err != nil {
			return err
		}
		failed = final.Failed
		printOutcome(final)
	} else {
		failed = resp.Failed
		fmt.Println(resp.Message)
		for _, itemErr := range resp.Errors {
			fmt.Printf("  item %d: %s\n", itemErr.ID, itemErr.Error)
		}
	}

	// A destructive batch that went through cleanly invalidates the
	// selection it came from.
	if fromSelection && failed == 0 && (action == "delete" || action == "change-status") {
		if err := clearSelection(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to clear selection: %v\n", err)
		}
	}
	return nil
}

// watchProgress polls the batch and renders a progress bar. Ctrl-C stops
// watching; the server finishes the batch regardless.
func watchProgress(ctx context.Context, c *client.Client, key string, total int) (*client.Progress, error) {
	fmt.Printf("tracking batch %s\n", key)

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Processing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionFullWidth(),
	)

	poller := client.NewPoller(c, bulkPollInt)
	final, err := poller.Poll(ctx, key, func(p client.Progress) {
		_ = bar.Set(p.Processed)
	})
	fmt.Println()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("stopped watching batch %s; it keeps running on the server", key)
		}
		return nil, err
	}
	return final, nil
}

func printOutcome(p *client.Progress) {
	fmt.Printf("done: %d succeeded, %d failed of %d\n", p.Succeeded, p.Failed, p.Total)
	for _, itemErr := range p.Errors {
		fmt.Printf("  item %d: %s\n", itemErr.ID, itemErr.Error)
	}
}

// resolveIDs takes ids from the arguments, falling back to the persisted
// selection. The second return reports whether the selection was used.
func resolveIDs(args []string) ([]int64, bool, error) {
	if len(args) > 0 {
		ids, err := parseIDs(args)
		return ids, false, err
	}

	store, err := selection.Open("")
	if err != nil {
		return nil, false, err
	}
	defer store.Close()

	ids, err := store.IDs(contentTyp)
	if err != nil {
		return nil, false, err
	}
	return ids, true, nil
}

func clearSelection() error {
	store, err := selection.Open("")
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Clear(contentTyp)
}
