package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/communityportal/backend/internal/donateflow"
	"github.com/communityportal/backend/internal/validation"
	"github.com/spf13/cobra"
)

type donateOptions struct {
	server    string
	form      validation.DonationForm
	anonymous bool
}

func donateCmd() *cobra.Command {
	opts := donateOptions{form: validation.NewDonationForm()}
	cmd := &cobra.Command{
		Use:   "donate",
		Short: "Run the donation flow against a running server",
		Long: `Submits a donation the way the donation page does.

Without a payment provider the server records it in development mode and
the flow completes. With a provider the flow stops once the intent is
issued, since confirmation needs the browser payment widget.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.form.Anonymous = opts.anonymous
			return runDonate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", "http://localhost:8080", "portal API base URL")
	cmd.Flags().StringVar(&opts.form.PredefinedAmount, "amount", validation.DefaultPreset, "preset amount: 25, 50, 100 or custom")
	cmd.Flags().StringVar(&opts.form.CustomAmount, "custom", "", "custom amount in whole units (with --amount custom)")
	cmd.Flags().StringVar(&opts.form.DonorName, "name", "", "donor name")
	cmd.Flags().StringVar(&opts.form.DonorEmail, "email", "", "donor email")
	cmd.Flags().StringVar(&opts.form.Frequency, "frequency", opts.form.Frequency, "one-time, monthly, quarterly or yearly")
	cmd.Flags().BoolVar(&opts.anonymous, "anonymous", false, "hide the donor name publicly")
	return cmd
}

// browserHandoff stands in for the payment widget. The CLI stops before
// confirmation, so it is never asked to confirm.
type browserHandoff struct{}

func (browserHandoff) ConfirmPayment(context.Context, string) error {
	return errors.New("payment confirmation requires the browser payment widget")
}

func runDonate(ctx context.Context, out io.Writer, opts donateOptions) error {
	client := donateflow.NewAPIClient(opts.server)
	cc, err := client.ClientConfig(ctx)
	if err != nil {
		return err
	}

	flow := donateflow.New(client, browserHandoff{}, cc.WidgetAvailable())
	if err := flow.Submit(ctx, opts.form); err != nil {
		return fmt.Errorf("create donation: %w", err)
	}

	switch flow.State() {
	case donateflow.DevSuccess:
		fmt.Fprintln(out, "Development Mode")
		fmt.Fprintf(out, "Donation #%d recorded without payment processing (%s)\n", flow.DonationID(), flow.MockPaymentID())
	case donateflow.AwaitingPaymentWidget:
		fmt.Fprintf(out, "Donation #%d awaiting payment. Complete it in the browser payment widget.\n", flow.DonationID())
	default:
		return fmt.Errorf("unexpected donation state %s", flow.State())
	}
	return nil
}
