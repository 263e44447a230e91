package cli

import (
	"context"
	"fmt"
	"io"

	"bloom-backend/internal/client"
	"bloom-backend/internal/services"

	"github.com/spf13/cobra"
)

// AuthOptions holds flags for signup and signin.
type AuthOptions struct {
	*RootOptions
	Email    string
	Password string
}

// NewSignUpCommand creates the signup command.
func NewSignUpCommand(rootOpts *RootOptions) *cobra.Command {
	return newAuthCommand(rootOpts, "signup", "Create an account and print its token",
		func(ctx context.Context, c *client.Client, email, password string) (*services.AuthResponse, error) {
			return c.SignUp(ctx, email, password)
		})
}

// NewSignInCommand creates the signin command.
func NewSignInCommand(rootOpts *RootOptions) *cobra.Command {
	return newAuthCommand(rootOpts, "signin", "Sign in and print a token",
		func(ctx context.Context, c *client.Client, email, password string) (*services.AuthResponse, error) {
			return c.SignIn(ctx, email, password)
		})
}

type authFunc func(ctx context.Context, c *client.Client, email, password string) (*services.AuthResponse, error)

func newAuthCommand(rootOpts *RootOptions, use, short string, call authFunc) *cobra.Command {
	opts := &AuthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

Export the printed token to use the other commands:
  export BLOOM_TOKEN=$(bloomctl ` + use + ` --email me@example.com --password secret123)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := call(cmd.Context(), opts.client(), opts.Email, opts.Password)
			if err != nil {
				return WrapExitError(ExitFailure, use+" failed", err)
			}
			return NewOutputFormatter(opts.Format, cmd.OutOrStdout()).Print(resp, func(w io.Writer) {
				fmt.Fprintln(w, resp.Token)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
