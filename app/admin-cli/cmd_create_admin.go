package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yoockh/skillradar/internal/models"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/services"
)

// newCreateAdminCmd bootstraps the first super admin; the password is set
// through the reset mail like any other account.
func newCreateAdminCmd() *cobra.Command {
	var in services.CreateUserInput

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a super admin profile and send its password reset mail",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			in.Role = models.RoleSuperAdmin
			db := e.db
			users := services.NewUserService(pgrepo.NewProfileRepo(db), pgrepo.NewLocationRepo(db), pgrepo.NewJobProfileRepo(db), e.auth(), e.log)
			p, err := users.Create(cmd.Context(), cliCaller, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", p.Email, p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "Email (required)")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "First name (required)")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "Last name (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	return cmd
}
