package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/medialib-dev/medialib/internal/client/selection"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Manage the local item selection",
	Long:  `Maintain the set of selected items per content type. The selection is stored locally, so it survives between invocations and across paginated listings.`,
}

var selectAddCmd = &cobra.Command{
	Use:   "add <id>...",
	Short: "Add items to the selection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		return withSelection(func(store *selection.Store) error {
			if err := store.Add(contentTyp, ids...); err != nil {
				return err
			}
			return printCount(store)
		})
	},
}

var selectRemoveCmd = &cobra.Command{
	Use:     "rm <id>...",
	Aliases: []string{"remove"},
	Short:   "Remove items from the selection",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		return withSelection(func(store *selection.Store) error {
			if err := store.Remove(contentTyp, ids...); err != nil {
				return err
			}
			return printCount(store)
		})
	},
}

var selectToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Toggle one item's selection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}
		return withSelection(func(store *selection.Store) error {
			selected, err := store.Toggle(contentTyp, id)
			if err != nil {
				return err
			}
			if selected {
				fmt.Printf("%d selected\n", id)
			} else {
				fmt.Printf("%d deselected\n", id)
			}
			return nil
		})
	},
}

var selectListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List the selected item ids",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSelection(func(store *selection.Store) error {
			ids, err := store.IDs(contentTyp)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			fmt.Printf("%d %s item(s) selected\n", len(ids), contentTyp)
			return nil
		})
	},
}

var selectClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSelection(func(store *selection.Store) error {
			if err := store.Clear(contentTyp); err != nil {
				return err
			}
			fmt.Printf("%s selection cleared\n", contentTyp)
			return nil
		})
	},
}

func init() {
	selectCmd.PersistentFlags().StringVarP(&contentTyp, "type", "t", "movie", "content type (movie or series)")

	selectCmd.AddCommand(selectAddCmd)
	selectCmd.AddCommand(selectRemoveCmd)
	selectCmd.AddCommand(selectToggleCmd)
	selectCmd.AddCommand(selectListCmd)
	selectCmd.AddCommand(selectClearCmd)
}

func withSelection(fn func(*selection.Store) error) error {
	store, err := selection.Open("")
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func printCount(store *selection.Store) error {
	n, err := store.Count(contentTyp)
	if err != nil {
		return err
	}
	fmt.Printf("%d %s item(s) selected\n", n, contentTyp)
	return nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", arg, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
