package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "Account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
}

// resolvePassword returns the flag value or the first line of stdin.
func (f *credentialFlags) resolvePassword(cmd *cobra.Command) (string, error) {
	if f.password != "" {
		return f.password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr())
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("a password is required")
	}
	return password, nil
}

func registerCmd(opts *rootOptions) *cobra.Command {
	var creds credentialFlags
	var name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := creds.resolvePassword(cmd)
			if err != nil {
				return err
			}
			app, err := opts.app(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.session.SignUp(cmd.Context(), name, creds.email, password); err != nil {
				return err
			}
			p := app.session.Principal()
			fmt.Fprintf(app.out, "Registered and signed in as %s <%s>\n", p.Name, p.Email)
			return nil
		},
	}
	creds.register(cmd)
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	return cmd
}

func loginCmd(opts *rootOptions) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := creds.resolvePassword(cmd)
			if err != nil {
				return err
			}
			app, err := opts.app(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.session.SignIn(cmd.Context(), creds.email, password); err != nil {
				return err
			}
			p := app.session.Principal()
			fmt.Fprintf(app.out, "Signed in as %s <%s>\n", p.Name, p.Email)
			return nil
		},
	}
	creds.register(cmd)
	return cmd
}

func logoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.app(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			app.session.Initialize(cmd.Context())
			if !app.session.IsAuthenticated() {
				fmt.Fprintln(app.out, "Not signed in")
				return nil
			}
			app.session.SignOut(cmd.Context())
			fmt.Fprintln(app.out, "Signed out")
			return nil
		},
	}
}

func whoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.app(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			p, err := app.requireSession(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "%s <%s>\nrole: %s\nid:   %s\n", p.Name, p.Email, orDash(p.Role), p.ID)
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
