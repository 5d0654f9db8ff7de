package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/utils"
)

// newTokenCmd mints an access token for an existing profile, for ops and
// smoke tests against a running API.
func newTokenCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print an access token for an active profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			p, err := pgrepo.NewProfileRepo(e.db).GetByEmail(cmd.Context(), utils.NormalizeEmail(email))
			if err != nil {
				return fmt.Errorf("profile %s: %w", email, err)
			}
			if !p.IsActive {
				return errors.New("profile is inactive")
			}
			tok, exp, err := e.auth().IssueToken(p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			fmt.Fprintf(cmd.ErrOrStderr(), "role=%s expires=%s\n", p.Role, exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Profile email (required)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
