package main

import (
	"fmt"
	"strconv"

	"github.com/communityportal/backend/internal/repository"
	"github.com/communityportal/backend/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "list donations|requests|contacts",
		Short:     "Print stored records as JSON, most recent first",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"donations", "requests", "contacts"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withPool(ctx, func(pool *pgxpool.Pool) error {
				var (
					records any
					err     error
				)
				switch args[0] {
				case "donations":
					records, err = service.NewDonationService(repository.NewPgDonationRepository(pool), nil, "").List(ctx)
				case "requests":
					records, err = service.NewRequestService(repository.NewPgRequestRepository(pool), nil).List(ctx)
				case "contacts":
					records, err = service.NewContactService(repository.NewPgContactRepository(pool)).List(ctx)
				}
				if err != nil {
					return fmt.Errorf("list %s: %w", args[0], err)
				}
				return printJSON(cmd.OutOrStdout(), records)
			})
		},
	}
}

func eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <donation-id>",
		Short: "Print recorded payment webhook events for a donation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid donation id %q", args[0])
			}
			ctx := cmd.Context()
			return withPool(ctx, func(pool *pgxpool.Pool) error {
				svc := service.NewReconcileService(nil, repository.NewPgDonationRepository(pool), repository.NewPgPaymentEventRepository(pool))
				events, err := svc.Events(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), events)
			})
		},
	}
}
