package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dirgate/dirgate/internal/pathutil"
	"github.com/dirgate/dirgate/pkg/types"
)

var scopeCmd = &cobra.Command{
	Use:   "scope",
	Short: "Manage directory scope rules",
}

var scopeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all scope rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := setup()
		if err != nil {
			return err
		}
		scopes, err := store.GetScopes(context.Background())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(scopes)
	},
}

var (
	allowContentScan  bool
	allowModification bool
	allowOCR          bool
	allowIndexing     bool
)

var scopeAllowCmd = &cobra.Command{
	Use:   "allow <directory>",
	Short: "Allow capabilities on a directory",
	Long: `Create or update a scope rule for a directory. Flagged capabilities
are set to allow; the others keep the rule's existing modes, or the
defaults for a new rule. With no capability flags all four are allowed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := setup()
		if err != nil {
			return err
		}
		ctx := context.Background()

		// Start from the existing rule at this directory when there is one.
		modes, err := store.GetDefaults(ctx)
		if err != nil {
			return err
		}
		scopes, err := store.GetScopes(ctx)
		if err != nil {
			return err
		}
		dir := pathutil.NormalizePath(args[0])
		for _, sc := range scopes {
			if sc.DirectoryPath == dir {
				modes = sc.CapabilityModes
				break
			}
		}

		all := !allowContentScan && !allowModification && !allowOCR && !allowIndexing
		if all || allowContentScan {
			modes.ContentScan = types.ModeAllow
		}
		if all || allowModification {
			modes.Modification = types.ModeAllow
		}
		if all || allowOCR {
			modes.OCR = types.ModeAllow
		}
		if all || allowIndexing {
			modes.Indexing = types.ModeAllow
		}

		id, err := store.UpsertScope(ctx, dir, modes)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var scopeRmCmd = &cobra.Command{
	Use:   "rm <scope-id>",
	Short: "Delete a scope rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := setup()
		if err != nil {
			return err
		}
		return store.DeleteScope(context.Background(), args[0])
	},
}

var scopeNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Merge duplicate and redundant scope rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := setup()
		if err != nil {
			return err
		}
		result, err := store.NormalizeScopes(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("scanned %d, normalized %d, merged %d, skipped %d\n",
			result.Scanned, result.Normalized, result.Merged, result.Skipped)
		return nil
	},
}

func init() {
	scopeAllowCmd.Flags().BoolVar(&allowContentScan, "content-scan", false, "Allow content scanning")
	scopeAllowCmd.Flags().BoolVar(&allowModification, "modification", false, "Allow modification")
	scopeAllowCmd.Flags().BoolVar(&allowOCR, "ocr", false, "Allow OCR")
	scopeAllowCmd.Flags().BoolVar(&allowIndexing, "indexing", false, "Allow indexing")

	scopeCmd.AddCommand(scopeListCmd)
	scopeCmd.AddCommand(scopeAllowCmd)
	scopeCmd.AddCommand(scopeRmCmd)
	scopeCmd.AddCommand(scopeNormalizeCmd)
}
