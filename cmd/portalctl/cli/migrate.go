package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/finportal/internal/migrations"
)

func newMigrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if err := migrations.Run(e.db.DB); err != nil {
				return err
			}
			return printVersion(cmd, e)
		},
	})

	var confirm bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all portal data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return fmt.Errorf("refusing to drop the schema without --yes")
			}
			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if err := migrations.Down(e.db.DB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema dropped")
			return nil
		},
	}
	down.Flags().BoolVar(&confirm, "yes", false, "confirm dropping the schema")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			return printVersion(cmd, e)
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, e *env) error {
	version, dirty, err := migrations.Version(e.db.DB)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}
