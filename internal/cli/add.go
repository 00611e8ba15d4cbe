package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tejasvimys/rama-sync/internal/donation"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions

	DonorName        string
	OrganizationName string
	IsOrganization   bool
	Email            string
	Phone            string
	Address1         string
	Address2         string
	City             string
	State            string
	Country          string
	PostalCode       string

	Amount         string
	DonationType   string
	PaymentMethod  string
	Reference      string
	Notes          string
	CollectorEmail string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a donation locally",
		Long: `Record a donation in the local queue.

The donation gets a provisional receipt number immediately and is synced
to the server on the next pass. Non-cash payments must carry a payment
reference.

Example:
  ramasyncd add --donor "Anil Kumar" --amount 101 --type Annadanam --method Cash
  ramasyncd add --donor "Lakshmi S" --amount 250.50 --type General --method Check --reference CHK-2041`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DonorName, "donor", "", "donor full name")
	cmd.Flags().StringVar(&opts.OrganizationName, "organization", "", "organization name (for organization donors)")
	cmd.Flags().BoolVar(&opts.IsOrganization, "is-organization", false, "donor is an organization")
	cmd.Flags().StringVar(&opts.Email, "email", "", "donor email")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "donor phone")
	cmd.Flags().StringVar(&opts.Address1, "address1", "", "address line 1")
	cmd.Flags().StringVar(&opts.Address2, "address2", "", "address line 2")
	cmd.Flags().StringVar(&opts.City, "city", "", "city")
	cmd.Flags().StringVar(&opts.State, "state", "", "state")
	cmd.Flags().StringVar(&opts.Country, "country", "", "country")
	cmd.Flags().StringVar(&opts.PostalCode, "postal-code", "", "postal code")

	cmd.Flags().StringVar(&opts.Amount, "amount", "", "donation amount (required)")
	cmd.Flags().StringVar(&opts.DonationType, "type", "General", "donation type")
	cmd.Flags().StringVar(&opts.PaymentMethod, "method", donation.PaymentMethodCash, "payment method")
	cmd.Flags().StringVar(&opts.Reference, "reference", "", "payment reference (check number, transaction id)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	cmd.Flags().StringVar(&opts.CollectorEmail, "collector", "", "collector email")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runAdd(opts *AddOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	amount, err := donation.ParseAmount(opts.Amount)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid amount", err)
	}

	rec, err := st.Create(cmd.Context(), donation.Input{
		DonorName:        opts.DonorName,
		OrganizationName: opts.OrganizationName,
		IsOrganization:   opts.IsOrganization,
		DonorEmail:       opts.Email,
		DonorPhone:       opts.Phone,
		Address1:         opts.Address1,
		Address2:         opts.Address2,
		City:             opts.City,
		State:            opts.State,
		Country:          opts.Country,
		PostalCode:       opts.PostalCode,
		Amount:           amount,
		DonationType:     opts.DonationType,
		PaymentMethod:    opts.PaymentMethod,
		PaymentReference: opts.Reference,
		Notes:            opts.Notes,
		CollectorEmail:   opts.CollectorEmail,
	})
	if err != nil {
		if donation.IsValidationError(err) {
			return WrapExitError(ExitFailure, "validation failed", err)
		}
		return WrapExitError(ExitCommandError, "failed to record donation", err)
	}

	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
	if opts.Format == "json" {
		return formatter.Success(rec)
	}
	return formatter.Success(fmt.Sprintf("Recorded donation %s (receipt %s, amount %s)",
		rec.ID, rec.ReceiptNumber, rec.Amount.Text('f')))
}
