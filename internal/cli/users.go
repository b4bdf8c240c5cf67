package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/sla-governance/internal/api/dto"
	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/service"
)

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List or provision users",
	}
	cmd.AddCommand(newUsersListCmd(app))
	cmd.AddCommand(newUsersAddCmd(app))
	return cmd
}

func newUsersListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List users",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withServices(cmd, func(ctx context.Context) error {
				users, err := app.users.List(ctx)
				if err != nil {
					return err
				}
				if app.output() == "json" {
					items := make([]dto.UserResponse, 0, len(users))
					for _, user := range users {
						items = append(items, dto.NewUserResponse(user))
					}
					return app.writeJSON(cmd.OutOrStdout(), items)
				}
				w := newTable(cmd.OutOrStdout())
				fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tDEPARTMENT")
				for _, user := range users {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", user.ID, user.Name, user.Email, user.Role, user.Department)
				}
				return w.Flush()
			})
		},
	}
}

func newUsersAddCmd(app *App) *cobra.Command {
	var input service.ProvisionInput
	var role, department string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create or update a user with an explicit role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Role = domain.Role(role)
			input.Department = domain.Department(department)
			return app.withServices(cmd, func(ctx context.Context) error {
				user, err := app.users.Provision(ctx, input)
				if err != nil {
					return err
				}
				if app.output() == "json" {
					return app.writeJSON(cmd.OutOrStdout(), dto.NewUserResponse(user))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s, %s)\n", user.ID, user.Email, user.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&input.ID, "id", "", "user id (generated when empty)")
	cmd.Flags().StringVar(&input.Name, "name", "", "display name")
	cmd.Flags().StringVar(&input.Email, "email", "", "email address")
	cmd.Flags().StringVar(&input.Password, "password", "", "login password (optional)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleEmployee), "employee, manager, technician or admin")
	cmd.Flags().StringVar(&department, "department", string(domain.DepartmentIT), "department")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
