package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"resume-review/internal/records"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored review as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reviews",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runList(cmd, false)
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List records saved without feedback",
	Long:  "List records whose analysis never completed. The report is read-only; nothing is deleted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runList(cmd, true)
	},
}

func init() {
	rootCmd.AddCommand(showCmd, listCmd, pendingCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	app, ctx, err := session(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	view, err := app.Loader.Load(ctx, args[0])
	if err != nil {
		return err
	}
	missing := make([]string, 0, len(view.Missing))
	for _, p := range view.Missing {
		missing = append(missing, string(p))
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Record  records.Record `json:"record"`
		Missing []string       `json:"missing"`
	}{view.Record, missing})
}

func runList(cmd *cobra.Command, pendingOnly bool) error {
	app, ctx, err := session(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	var recs []records.Record
	if pendingOnly {
		recs, err = app.Records.Pending(ctx)
	} else {
		recs, err = app.Records.List(ctx)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMPANY\tTITLE\tSCORE")
	for _, rec := range recs {
		score := "-"
		if rec.Feedback != nil {
			score = fmt.Sprint(rec.Feedback.OverallScore)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ID, rec.CompanyName, rec.JobTitle, score)
	}
	return tw.Flush()
}
