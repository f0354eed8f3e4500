package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/finportal/internal/services/auth"
)

const minPasswordLen = 6

func newCreateAdminCmd(opts *options) *cobra.Command {
	var in auth.RegisterInput

	cmd := &cobra.Command{
		Use:     "create-admin",
		Short:   "Create a user with the admin role",
		Example: `  portalctl create-admin --username ops --email ops@example.com --password s3cret!`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !strings.Contains(in.Email, "@") {
				return fmt.Errorf("invalid email address: %q", in.Email)
			}
			if len(in.Password) < minPasswordLen {
				return fmt.Errorf("password must be at least %d characters", minPasswordLen)
			}

			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			user, err := e.users.CreateAdmin(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "admin username (required)")
	cmd.Flags().StringVar(&in.Email, "email", "", "admin email address (required)")
	cmd.Flags().StringVar(&in.Password, "password", "", "admin password (required)")
	cmd.Flags().StringVar(&in.DisplayName, "name", "", "display name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newIssueTokenCmd(opts *options) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Issue an access token for an existing user",
		Long:  "Issue an access token for an existing user. The token carries the user's current role.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			res, err := e.users.IssueToken(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "token for %s (%s) expires at %s\n",
				res.User.Username, res.User.Role, res.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))
			fmt.Fprintln(cmd.OutOrStdout(), res.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user ID (required)")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}
