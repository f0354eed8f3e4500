package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSubscriptionsCmd(opts *options) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "Print the subscription history of a user, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			subs, err := e.db.ListSubscriptions(cmd.Context(), userID)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPLAN\tACTIVE\tSTART\tEND\tPAYMENT")
			for _, s := range subs {
				end := "-"
				if s.EndDate != nil {
					end = s.EndDate.Format("2006-01-02")
				}
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n",
					s.ID, s.Plan, s.Active, s.StartDate.Format("2006-01-02"), end, s.PaymentRef)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user ID (required)")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}
