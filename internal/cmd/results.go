package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-debate/core/api"
	"github.com/koscakluka/ema-debate/internal/config"
	"github.com/koscakluka/ema-debate/internal/viewer"
	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results <session-id>",
	Short: "Print the summary of a finished debate",
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

var (
	resultsJSON  bool
	resultsWidth int
)

func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.Flags().BoolVar(&resultsJSON, "json", false, "print the results as JSON")
	resultsCmd.Flags().IntVarP(&resultsWidth, "width", "w", 80, "wrap text at this width")
}

func runResults(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	results, err := client.FetchResults(cmd.Context(), args[0])
	if errors.Is(err, api.ErrResultsNotReady) {
		return fmt.Errorf("results for %s are not ready yet, try again shortly: %w", args[0], err)
	} else if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if resultsJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}
	_, err = fmt.Fprintln(out, viewer.RenderResults(results, resultsWidth))
	return err
}
