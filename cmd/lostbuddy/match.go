package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nirojbhetuwal/lostbuddy/internal/config"
)

var matchCmd = &cobra.Command{
	Use:   "match <item-id>",
	Short: "List candidate matches for an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold := matchThreshold(cmd, cfg)
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx := context.Background()
		a, err := openApp(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		matches, err := a.finder.FindMatches(ctx, args[0], threshold)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), matches)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SCORE\tITEM\tTITLE\tLOCATION\tDATE")
		for _, m := range matches {
			fmt.Fprintf(tw, "%.3f\t%s\t%s\t%s\t%s\n", m.Score, m.Item.ID, m.Item.Title, m.Item.Location, m.Item.Date.Format("2006-01-02"))
		}
		return tw.Flush()
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <user-id>",
	Short: "List match suggestions across a user's open items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx := context.Background()
		a, err := openApp(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		suggestions, err := a.finder.Suggestions(ctx, args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), suggestions)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SCORE\tYOUR ITEM\tMATCH\tTITLE")
		for _, s := range suggestions {
			fmt.Fprintf(tw, "%.3f\t%s\t%s\t%s\n", s.Score, s.UserItem.ID, s.Item.ID, s.Item.Title)
		}
		return tw.Flush()
	},
}

func init() {
	matchCmd.Flags().Float64P("threshold", "t", 0, "minimum score (default: matching.suggest_threshold)")
	matchCmd.Flags().Bool("json", false, "print JSON")
	suggestCmd.Flags().Bool("json", false, "print JSON")
}

// matchThreshold returns --threshold when given, else the configured
// suggestion threshold.
func matchThreshold(cmd *cobra.Command, c *config.Config) float64 {
	if cmd.Flags().Changed("threshold") {
		t, _ := cmd.Flags().GetFloat64("threshold")
		return t
	}
	return c.Matching.SuggestThreshold
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
