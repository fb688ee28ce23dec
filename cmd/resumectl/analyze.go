package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"resume-review/internal/documents"
	"resume-review/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <pdf>",
	Short: "Run the full analysis pipeline for a local PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var (
	analyzeCompany     string
	analyzeTitle       string
	analyzeDescription string
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCompany, "company", "", "company name")
	analyzeCmd.Flags().StringVar(&analyzeTitle, "title", "", "job title")
	analyzeCmd.Flags().StringVar(&analyzeDescription, "description", "", "job description")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err != nil {
		return err
	}
	app, ctx, err := session(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	w := cmd.OutOrStdout()
	ctrl := *app.Pipeline
	ctrl.Gate = &pipeline.Gate{}
	ctrl.Status = pipeline.StatusFunc(func(u pipeline.Update) {
		fmt.Fprintln(w, u.Message)
	})
	ctrl.Navigator = pipeline.NavigatorFunc(func(_ context.Context, location string) {
		fmt.Fprintf(w, "review: %s\n", location)
	})

	out := ctrl.Run(ctx, pipeline.Submission{
		File:           documents.DiskFile(args[0], "application/pdf"),
		CompanyName:    analyzeCompany,
		JobTitle:       analyzeTitle,
		JobDescription: analyzeDescription,
	})
	if out.Err != nil {
		return out.Err
	}
	fmt.Fprintf(w, "id: %s\n", out.ID)
	return nil
}
