package main

import (
	"fmt"

	"github.com/spf13/cobra"

	jwttoken "warden/internal/jwt_token"
	"warden/pkg/domain"
)

// newTokenCmd mints bearer tokens for local testing.
func newTokenCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "token <principal>",
		Short: "Mint a bearer token for a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			principal, err := domain.ParsePrincipal(args[0])
			if err != nil {
				return err
			}
			jwt := jwttoken.NewJWTService(c.cfg.Auth.JWTSigningKey, c.cfg.Auth.JWTIssuer)
			token, err := jwt.Issue(principal, c.cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
