package cli

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/spf13/cobra"
)

type credentialsFlags struct {
	email string
	role  string
}

func promptCredentials(cmd *cobra.Command, in *bufio.Reader, email string) (string, []byte, error) {
	var err error
	if email == "" {
		email, err = GetSimpleText(in, "-Enter email", cmd.ErrOrStderr())
		if err != nil {
			return "", nil, err
		}
	}

	password, err := GetPassword(in, cmd.ErrOrStderr())
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

func newRegisterCmd() *cobra.Command {
	f := &credentialsFlags{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := connect(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			email, password, err := promptCredentials(cmd, input(cmd), f.email)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			if err := c.Register(cmd.Context(), email, string(password), f.role); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Registered", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.email, "email", "", "account email (prompted when empty)")
	cmd.Flags().StringVar(&f.role, "role", "", "role label (server default when empty)")

	return cmd
}

func newLoginCmd() *cobra.Command {
	f := &credentialsFlags{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print the session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := connect(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			email, password, err := promptCredentials(cmd, input(cmd), f.email)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			token, err := c.Login(cmd.Context(), email, string(password))
			if err != nil {
				if errors.Is(err, client.ErrNotFound) {
					return errors.New("no account with that email")
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.email, "email", "", "account email (prompted when empty)")

	return cmd
}

func newWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity carried by --token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := connect(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			id, err := c.WhoAmI(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "id:   %s\nrole: %s\n", id.ID, id.Role)
			return nil
		},
	}
}
