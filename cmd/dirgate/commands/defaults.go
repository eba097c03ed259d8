package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dirgate/dirgate/pkg/types"
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Manage the global capability defaults",
}

var defaultsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := setup()
		if err != nil {
			return err
		}
		defaults, err := store.GetDefaults(context.Background())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(defaults)
	},
}

var defaultsSetCmd = &cobra.Command{
	Use:   "set <capability> <mode>",
	Short: "Set the default mode for one capability",
	Long: `Set the fallback mode used when no scope rule covers a path.
Capabilities: content_scan, modification, ocr, indexing.
Modes: allow, ask, deny.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := setup()
		if err != nil {
			return err
		}
		ctx := context.Background()

		defaults, err := store.GetDefaults(ctx)
		if err != nil {
			return err
		}
		if !defaults.Set(types.Capability(args[0]), types.Mode(args[1])) {
			return fmt.Errorf("unknown capability %q", args[0])
		}
		return store.SetDefaults(ctx, defaults)
	},
}

func init() {
	defaultsCmd.AddCommand(defaultsGetCmd)
	defaultsCmd.AddCommand(defaultsSetCmd)
}
