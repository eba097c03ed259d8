package commands

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/dirgate/dirgate/internal/scope"
)

var checkCmd = &cobra.Command{
	Use:   "check <action> <path> [path...]",
	Short: "Run a one-shot permission check",
	Long: `Check an action against the stored scope rules and print the result
as JSON. No prompt is queued; an "ask" outcome is reported as-is.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, store, err := setup()
	if err != nil {
		return err
	}

	engine := scope.NewEngine(store, cfg.Rules)
	result, err := engine.CheckPermissionRequest(context.Background(), args[0], args[1:])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
