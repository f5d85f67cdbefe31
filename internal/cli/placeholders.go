package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-finiquito/pkg/merge"
)

func newPlaceholdersCommand(a *app) *cobra.Command {
	var template string
	cmd := &cobra.Command{
		Use:   "placeholders",
		Short: "List the placeholders a template may contain",
		Long: `Placeholders prints the fixed set of template tokens with the workbook
column that fills each one. With --template it also reports which tokens the
template uses and the ones Word split across runs, which are never replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOKEN\tCOLUMNA\tREGLA")
			for _, p := range merge.Placeholders {
				rule := "-"
				if p.Rule != nil {
					rule = p.Rule.Name
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Token, p.Field, rule)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if template == "" {
				return nil
			}
			return reportTemplate(cmd, template)
		},
	}
	cmd.Flags().StringVarP(&template, "template", "t", "", "inspect a Word template")
	return cmd
}

func reportTemplate(cmd *cobra.Command, path string) error {
	tmpl, err := merge.LoadTemplateFile(path)
	if err != nil {
		return err
	}
	report := tmpl.Report()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\nPlantilla %s\n", tmpl.Name)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tAPARICIONES\tEN TABLAS")
	for _, use := range report.Used {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", use.Token, use.Occurrences, use.InTables)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(report.Missing) > 0 {
		fmt.Fprintf(out, "\nNo usados: %d\n", len(report.Missing))
		for _, token := range report.Missing {
			fmt.Fprintf(out, "  %s\n", token)
		}
	}
	if len(report.Issues) > 0 {
		fmt.Fprintf(out, "\nProblemas:\n")
		for _, issue := range report.Issues {
			fmt.Fprintf(out, "  [%s] %s %s: %s\n", issue.Severity, issue.Token, issue.Location, issue.Message)
		}
	}
	return tmpl.Validate()
}
