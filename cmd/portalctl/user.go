package main

import (
	"fmt"
	"strings"

	"github.com/communityportal/backend/internal/repository"
	"github.com/communityportal/backend/internal/service"
	"github.com/communityportal/backend/internal/validation"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage operator accounts",
	}

	var username, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an operator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := validation.UserInput{Username: strings.TrimSpace(username), Password: password}
			if err := validation.Struct(in); err != nil {
				return err
			}
			ctx := cmd.Context()
			return withPool(ctx, func(pool *pgxpool.Pool) error {
				u, err := service.NewUserService(repository.NewPgUserRepository(pool)).Create(ctx, username, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %q (id %d)\n", u.Username, u.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&username, "username", "", "login name")
	create.Flags().StringVar(&password, "password", "", "password (at least 8 characters)")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}
