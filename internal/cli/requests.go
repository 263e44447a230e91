package cli

import (
	"fmt"
	"io"
	"strings"

	"bloom-backend/internal/models"

	"github.com/spf13/cobra"
)

// NewRequestsCommand creates the requests command group.
func NewRequestsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Manage couple requests",
	}

	cmd.AddCommand(newRequestsListCommand(rootOpts))
	cmd.AddCommand(newRequestsSendCommand(rootOpts))
	cmd.AddCommand(newRequestTransitionCommand(rootOpts, "accept", "Accept an incoming request"))
	cmd.AddCommand(newRequestTransitionCommand(rootOpts, "decline", "Decline an incoming request"))
	cmd.AddCommand(newRequestTransitionCommand(rootOpts, "cancel", "Cancel a request you sent"))

	return cmd
}

func newRequestsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List incoming, outgoing and past requests",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			views, err := opts.client().ListRequests(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "list failed", err)
			}
			return NewOutputFormatter(opts.Format, cmd.OutOrStdout()).Print(views, func(w io.Writer) {
				printRequests(w, "Incoming", views.Incoming)
				printRequests(w, "Outgoing", views.Outgoing)
				printRequests(w, "History", views.History)
			})
		},
	}
}

func printRequests(w io.Writer, title string, rows []*models.CoupleRequest) {
	fmt.Fprintf(w, "%s (%d)\n", title, len(rows))
	for _, r := range rows {
		line := fmt.Sprintf("  %s  %-8s  from %s to %s", r.ID, r.Status, r.RequesterID, r.RecipientID)
		if r.Message != nil {
			line += "  " + *r.Message
		}
		fmt.Fprintln(w, line)
	}
}

func newRequestsSendCommand(opts *RootOptions) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:           "send <handle>",
		Short:         "Send a couple request to a partner's handle",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			var msg *string
			if strings.TrimSpace(message) != "" {
				msg = &message
			}
			req, err := opts.client().SendRequest(cmd.Context(), args[0], msg)
			if err != nil {
				return WrapExitError(ExitFailure, "send failed", err)
			}
			return NewOutputFormatter(opts.Format, cmd.OutOrStdout()).Print(req, func(w io.Writer) {
				fmt.Fprintf(w, "Sent request %s\n", req.ID)
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "optional note for the recipient")

	return cmd
}

func newRequestTransitionCommand(opts *RootOptions, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:           action + " <request-id>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			c := opts.client()
			result := map[string]string{"request_id": args[0], "action": action}

			var err error
			switch action {
			case "accept":
				var coupleID string
				coupleID, err = c.AcceptRequest(cmd.Context(), args[0])
				result["couple_id"] = coupleID
			case "decline":
				err = c.DeclineRequest(cmd.Context(), args[0])
			case "cancel":
				err = c.CancelRequest(cmd.Context(), args[0])
			}
			if err != nil {
				return WrapExitError(ExitFailure, action+" failed", err)
			}

			return NewOutputFormatter(opts.Format, cmd.OutOrStdout()).Print(result, func(w io.Writer) {
				if id := result["couple_id"]; id != "" {
					fmt.Fprintf(w, "Accepted; couple %s\n", id)
					return
				}
				fmt.Fprintf(w, "Request %s: %s ok\n", args[0], action)
			})
		},
	}
}
