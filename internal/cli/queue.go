package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/service"
)

func newQueueCmd(app *App) *cobra.Command {
	var technicianID string
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show the unassigned work queue, or one technician's active tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withServices(cmd, func(ctx context.Context) error {
				var (
					views []service.TicketView
					err   error
				)
				if technicianID == "" {
					views, err = app.tickets.Queue(ctx, domain.User{ID: operator.ID, Role: domain.RoleTechnician})
				} else {
					var technician domain.User
					technician, err = app.users.Get(ctx, technicianID)
					if err != nil {
						return err
					}
					if technician.Role != domain.RoleTechnician {
						return fmt.Errorf("user %s is a %s, not a technician", technician.ID, technician.Role)
					}
					views, err = app.tickets.MyActive(ctx, technician)
				}
				if err != nil {
					return err
				}
				return app.printViews(cmd, views)
			})
		},
	}
	cmd.Flags().StringVar(&technicianID, "technician", "", "show active tickets assigned to this technician id")
	return cmd
}
