package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/sla-governance/internal/api/dto"
	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/service"
	"github.com/spec-kit/sla-governance/internal/sla"
)

// operator is the viewer the CLI reads as; it sees every ticket.
var operator = domain.User{ID: "slactl", Name: "slactl", Role: domain.RoleAdmin}

func newEvaluateCmd(app *App) *cobra.Command {
	var (
		at     string
		states []string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Classify every ticket against its SLA at an instant",
		Example: strings.TrimSpace(`
slactl evaluate
slactl evaluate --at 2025-06-03T09:00:00Z --state AT_RISK,BREACHED
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			instant := app.now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				instant = parsed
			}
			wanted := make([]sla.State, 0, len(states))
			for _, raw := range states {
				state := sla.State(strings.ToUpper(strings.TrimSpace(raw)))
				switch state {
				case sla.StateOnTrack, sla.StateAtRisk, sla.StateBreached, sla.StateMet:
				default:
					return fmt.Errorf("unknown state %q", raw)
				}
				wanted = append(wanted, state)
			}

			return app.withServices(cmd, func(ctx context.Context) error {
				views, err := app.tickets.List(ctx, operator, service.TicketFilter{})
				if err != nil {
					return err
				}
				rows := make([]service.TicketView, 0, len(views))
				for _, view := range views {
					eval := app.tickets.EvaluateSLA(view.Ticket, instant)
					if len(wanted) > 0 && !slices.Contains(wanted, eval.State) {
						continue
					}
					rows = append(rows, service.TicketView{Ticket: view.Ticket, SLA: eval})
				}
				return app.printViews(cmd, rows)
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluation instant (RFC3339, default now)")
	cmd.Flags().StringSliceVar(&states, "state", nil, "only show these SLA states")
	return cmd
}

func (a *App) printViews(cmd *cobra.Command, views []service.TicketView) error {
	if a.output() == "json" {
		items := make([]dto.TicketSummary, 0, len(views))
		for i := range views {
			items = append(items, dto.NewTicketSummary(views[i].Ticket, &views[i].SLA))
		}
		return a.writeJSON(cmd.OutOrStdout(), items)
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "TICKET\tSTATUS\tPRIORITY\tSLA\tREMAINING\tDEADLINE\tTITLE")
	for _, view := range views {
		remaining := "-"
		if view.SLA.HasRemaining() {
			remaining = formatRemaining(view.SLA.Remaining)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			view.Ticket.ID,
			view.Ticket.Status,
			view.Ticket.Priority,
			view.SLA.State,
			remaining,
			view.SLA.Deadline.Format("2006-01-02 15:04"),
			view.Ticket.Title)
	}
	return w.Flush()
}
