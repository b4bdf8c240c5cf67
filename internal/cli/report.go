package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spec-kit/sla-governance/internal/api/dto"
	"github.com/spec-kit/sla-governance/internal/governance"
)

func newReportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the governance report (compliance, breaches, flags)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withServices(cmd, func(ctx context.Context) error {
				report, err := app.governance.Refresh(ctx)
				if err != nil {
					return err
				}
				if app.output() == "json" {
					return app.writeJSON(cmd.OutOrStdout(), dto.NewGovernanceReportResponse(report))
				}
				return printReport(cmd.OutOrStdout(), report)
			})
		},
	}
}

func printReport(out io.Writer, report governance.Report) error {
	w := newTable(out)
	fmt.Fprintf(w, "Generated\t%s\n", report.GeneratedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(w, "Tickets\t%d\n", report.TotalTickets)
	fmt.Fprintf(w, "Compliance\t%.1f%%\n", report.ComplianceRate)
	fmt.Fprintf(w, "Active breaches\t%d\n", report.ActiveBreaches)
	fmt.Fprintf(w, "At risk\t%d\n", len(report.AtRisk))
	if err := w.Flush(); err != nil {
		return err
	}

	if len(report.AtRisk) > 0 {
		fmt.Fprintln(out, "\nAT RISK")
		w = newTable(out)
		fmt.Fprintln(w, "TICKET\tPRIORITY\tSTATUS\tREMAINING\tTITLE")
		for _, item := range report.AtRisk {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", item.Ticket.ID, item.Ticket.Priority, item.Ticket.Status, formatRemaining(item.Remaining), item.Ticket.Title)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if len(report.FrequentRequesters) > 0 {
		fmt.Fprintln(out, "\nFREQUENT REQUESTERS")
		w = newTable(out)
		fmt.Fprintln(w, "USER\tDEPARTMENT\tTICKETS")
		for _, row := range report.FrequentRequesters {
			fmt.Fprintf(w, "%s\t%s\t%d\n", row.User.Email, row.User.Department, row.Count)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if len(report.Flags) > 0 {
		fmt.Fprintln(out, "\nFLAGS")
		w = newTable(out)
		fmt.Fprintln(w, "USER\tTYPE\tTICKETS")
		for _, flag := range report.Flags {
			fmt.Fprintf(w, "%s\t%s\t%d\n", flag.User.Email, flag.Type, flag.Count)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if len(report.CriticalView) > 0 {
		fmt.Fprintln(out, "\nCRITICAL / ESCALATED")
		w = newTable(out)
		fmt.Fprintln(w, "TICKET\tPRIORITY\tSTATUS\tASSIGNEE\tTITLE")
		for _, ticket := range report.CriticalView {
			assignee := "-"
			if ticket.IsAssigned() {
				assignee = *ticket.AssignedTo
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ticket.ID, ticket.Priority, ticket.Status, assignee, ticket.Title)
		}
		return w.Flush()
	}
	return nil
}
