package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/streamhive/watchparty/internal/api"
)

// prompt reads one line from in when value is empty.
func prompt(in *bufio.Reader, out io.Writer, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}

	fmt.Fprintf(out, "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}

	return strings.TrimSpace(line), nil
}

func newLoginCmd() *cobra.Command {
	var params api.LoginParams

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			var err error
			if params.Email, err = prompt(in, out, "Email", params.Email); err != nil {
				return err
			}
			if params.Password, err = prompt(in, out, "Password", params.Password); err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.Login(cmd.Context(), &params)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "logged in as %s\n", displayName(sess.Name, params.Email))
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&params.Password, "password", "", "Account password, prompted when empty")

	return cmd
}

func newRegisterCmd() *cobra.Command {
	var params api.RegisterParams

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and store the session locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			var err error
			if params.Name, err = prompt(in, out, "Name", params.Name); err != nil {
				return err
			}
			if params.Email, err = prompt(in, out, "Email", params.Email); err != nil {
				return err
			}
			if params.Password, err = prompt(in, out, "Password", params.Password); err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.Register(cmd.Context(), &params)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "registered as %s\n", displayName(sess.Name, params.Name))
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&params.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&params.Password, "password", "", "Account password, prompted when empty")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Logout(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func displayName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
