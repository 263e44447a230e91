package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"bloom-backend/internal/models"
	"bloom-backend/internal/services"

	"github.com/spf13/cobra"
)

// NewTodayCommand creates the today command.
func NewTodayCommand(opts *RootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:           "today",
		Short:         "Show the couple's question of the day",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			resp, err := opts.client().Today(cmd.Context(), date)
			if err != nil {
				return WrapExitError(ExitFailure, "today failed", err)
			}
			return NewOutputFormatter(opts.Format, cmd.OutOrStdout()).Print(resp, func(w io.Writer) {
				if resp.Question == nil {
					fmt.Fprintf(w, "No question for %s\n", resp.Date)
					return
				}
				fmt.Fprintf(w, "%s  %s\n  %s\n", resp.Date, resp.Question.ID, resp.Question.Text)
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "calendar date YYYY-MM-DD (default: server today)")

	return cmd
}

// NewAnswersCommand creates the answers command.
func NewAnswersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "answers <question-id>",
		Short:         "Show your answer and, once you answered, your partner's",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			view, err := opts.client().Answers(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "answers failed", err)
			}
			return NewOutputFormatter(opts.Format, cmd.OutOrStdout()).Print(view, func(w io.Writer) {
				printAnswerView(w, view)
			})
		},
	}
}

// NewAnswerCommand creates the answer command.
func NewAnswerCommand(opts *RootOptions) *cobra.Command {
	var mood string

	cmd := &cobra.Command{
		Use:           "answer <question-id> <content>",
		Short:         "Submit or update your answer",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			var moodMap map[string]any
			if mood != "" {
				if err := json.Unmarshal([]byte(mood), &moodMap); err != nil {
					return WrapExitError(ExitCommandError, "invalid --mood JSON", err)
				}
			}
			view, err := opts.client().Answer(cmd.Context(), args[0], args[1], moodMap)
			if err != nil {
				return WrapExitError(ExitFailure, "answer failed", err)
			}
			return NewOutputFormatter(opts.Format, cmd.OutOrStdout()).Print(view, func(w io.Writer) {
				printAnswerView(w, view)
			})
		},
	}

	cmd.Flags().StringVar(&mood, "mood", "", `mood as a JSON object, e.g. '{"emoji":"🙂"}'`)

	return cmd
}

func printAnswerView(w io.Writer, view *services.AnswerView) {
	fmt.Fprintf(w, "Question %s\n", view.QuestionID)
	printAnswer(w, "You", view.Mine, "not answered yet")
	if !view.PartnerRevealed {
		fmt.Fprintln(w, "  Partner: hidden until you answer")
		return
	}
	printAnswer(w, "Partner", view.Partner, "not answered yet")
}

func printAnswer(w io.Writer, who string, a *models.Answer, empty string) {
	if a == nil {
		fmt.Fprintf(w, "  %s: %s\n", who, empty)
		return
	}
	fmt.Fprintf(w, "  %s: %s\n", who, a.Content)
}
