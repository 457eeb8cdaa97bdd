package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/spf13/cobra"
)

// schemaTypes maps stream frame names, plus the results body, to their wire
// types.
var schemaTypes = map[string]any{
	"debate_started":  debate.WireStarted{},
	"model_thinking":  debate.WireThinking{},
	"message":         debate.WireTurn{},
	"round_complete":  debate.WireRoundComplete{},
	"debate_complete": debate.WireSessionComplete{},
	"error":           debate.WireError{},
	"results":         debate.WireResults{},
}

var schemaCmd = &cobra.Command{
	Use:       "schema <frame>",
	Short:     "Print the JSON schema of a stream frame",
	Long:      "Print the JSON schema of a stream frame or of the results body.\n\nFrames: " + strings.Join(schemaNames(), ", "),
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: schemaNames(),
	RunE:      runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func schemaNames() []string {
	names := make([]string, 0, len(schemaTypes))
	for name := range schemaTypes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func runSchema(cmd *cobra.Command, args []string) error {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(schemaTypes[args[0]])

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
