package cli

import (
	"fmt"
	"io"

	"bloom-backend/internal/services"

	"github.com/spf13/cobra"
)

// NewSummarizeCommand creates the summarize command.
func NewSummarizeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "summarize <journal-id>",
		Short:         "Generate an AI summary for one of your journals",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			resp, err := opts.client().Summarize(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "summarize failed", err)
			}
			return NewOutputFormatter(opts.Format, cmd.OutOrStdout()).Print(resp, func(w io.Writer) {
				fmt.Fprintln(w, resp.Summary)
			})
		},
	}
}

// FinalizeOptions holds flags for the finalize command.
type FinalizeOptions struct {
	*RootOptions
	FrontKey string
	BackKey  string
	IsLate   bool
}

// NewFinalizeCommand creates the finalize command.
func NewFinalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FinalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "finalize <prompt-id>",
		Short: "Stitch the two uploaded photos of a prompt into a post",
		Long: `Stitch the two uploaded photos of a prompt into a post.

Example:
  bloomctl finalize p-123 --front raw/c/p-123/front-u1-x --back raw/c/p-123/back-u2-y`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			post, err := opts.client().Finalize(cmd.Context(), services.FinalizeRequest{
				PromptID: args[0],
				IsLate:   opts.IsLate,
				FrontKey: opts.FrontKey,
				BackKey:  opts.BackKey,
			})
			if err != nil {
				return WrapExitError(ExitFailure, "finalize failed", err)
			}
			return NewOutputFormatter(opts.Format, cmd.OutOrStdout()).Print(post, func(w io.Writer) {
				fmt.Fprintf(w, "Post %s\n  %s\n", post.ID, post.ImageURL)
			})
		},
	}

	cmd.Flags().StringVar(&opts.FrontKey, "front", "", "object key of the front photo")
	cmd.Flags().StringVar(&opts.BackKey, "back", "", "object key of the back photo")
	cmd.Flags().BoolVar(&opts.IsLate, "late", false, "mark the post as late")
	_ = cmd.MarkFlagRequired("front")
	_ = cmd.MarkFlagRequired("back")

	return cmd
}
