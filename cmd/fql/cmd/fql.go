package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/segmentio/action-destinations-sub030/internal/fql"
	"github.com/segmentio/action-destinations-sub030/internal/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse [fql|-]",
	Short: "Parse subscription text and print its condition tree as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runParse,
}

var generateCmd = &cobra.Command{
	Use:   "generate [file|-]",
	Short: "Render a JSON condition tree as subscription text",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGenerate,
}

var validateCmd = &cobra.Command{
	Use:   "validate [fql|-]",
	Short: "Report whether an event matches a subscription",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

var sampleCmd = &cobra.Command{
	Use:   "sample [fql|-]",
	Short: "Print an event that satisfies a subscription",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSample,
}

func init() {
	rootCmd.AddCommand(parseCmd, generateCmd, validateCmd, sampleCmd)

	validateCmd.Flags().String("event", "", "event JSON file, - for stdin")
	_ = validateCmd.MarkFlagRequired("event")

	sampleCmd.Flags().String("source", "javascript", "source type for the base event ("+strings.Join(fql.SourceTypes(), ", ")+")")
}

func runParse(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	tree, err := fql.Parse(text)
	if err != nil {
		return err
	}
	return printJSON(cmd, tree)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) > 0 {
		path = args[0]
	}
	data, err := readFile(cmd, path)
	if err != nil {
		return err
	}
	text, err := fql.Generate(fql.DecodeTree(data))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	eventPath, _ := cmd.Flags().GetString("event")
	if eventPath == "-" && (len(args) == 0 || args[0] == "-") {
		return fmt.Errorf("subscription and event cannot both come from stdin")
	}
	data, err := readFile(cmd, eventPath)
	if err != nil {
		return err
	}
	var event types.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	matched, err := fql.NewEngine().Match(text, event)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), matched)
	return nil
}

func runSample(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	tree, err := fql.Parse(text)
	if err != nil {
		return err
	}
	source, _ := cmd.Flags().GetString("source")
	event, err := fql.SampleEvent(tree, fql.BaseEvent(source))
	if err != nil {
		return err
	}
	return printJSON(cmd, event)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
