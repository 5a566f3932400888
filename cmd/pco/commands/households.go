package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/steeplehq/pco-go/internal/constants"
	"github.com/steeplehq/pco-go/pkg/pco"
)

// NewHouseholdsCommand creates the households command group.
func NewHouseholdsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "households",
		Aliases: []string{"household", "hh"},
		Short:   "Manage households",
		Long:    "List households and their members",
	}

	cmd.AddCommand(newHouseholdsListCommand())
	cmd.AddCommand(newHouseholdsGetCommand())
	cmd.AddCommand(newHouseholdsPeopleCommand())

	return cmd
}

func newHouseholdsListCommand() *cobra.Command {
	var (
		allPages bool
		perPage  int
		order    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List households",
		Long:  "List all households",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHouseholdsListCommand(allPages, perPage, order)
		},
	}

	cmd.Flags().BoolVar(&allPages, "all", false, "fetch all pages")
	cmd.Flags().IntVar(&perPage, "per-page", constants.DefaultPerPage, "results per page")
	cmd.Flags().StringVar(&order, "order", "", "sort order, prefix with - for descending")

	return cmd
}

func runHouseholdsListCommand(allPages bool, perPage int, order string) error {
	client, err := CreateClient()
	if err != nil {
		return err
	}

	ctx := context.Background()

	params := pco.NewQueryParams().WithPerPage(perPage)
	if order != "" {
		params.WithOrder(order)
	}

	if allPages {
		households, err := client.Households().ListAll(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to list households: %w", err)
		}

		return outputHouseholds(households, len(households), allPages)
	}

	households, err := client.Households().List(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to list households: %w", err)
	}

	totalCount := len(households.Data)
	if households.Meta != nil {
		totalCount = households.Meta.TotalCount
	}

	return outputHouseholds(households.Data, totalCount, allPages)
}

func outputHouseholds(households []pco.Household, totalCount int, allPages bool) error {
	rendered, err := renderStructured(households)
	if rendered {
		return err
	}

	return renderHouseholdTable(households, totalCount, allPages)
}

func renderHouseholdTable(households []pco.Household, totalCount int, allPages bool) error {
	if len(households) == 0 {
		_, _ = os.Stdout.WriteString("No households found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "ID", "Members", "Primary Contact")

	for i := range households {
		household := &households[i]
		attrs := &household.Attributes

		_ = table.Append(attrs.Name, household.ID, strconv.Itoa(attrs.MemberCount),
			valueOrDefault(attrs.PrimaryContactName, NotAvailable))
	}

	_ = table.Render()

	if !allPages && totalCount > len(households) {
		_, _ = fmt.Fprintf(os.Stdout, "\nShowing %d of %d households. Use --all to fetch all pages.\n",
			len(households), totalCount)
	}

	return nil
}

func newHouseholdsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get HOUSEHOLD_ID",
		Short: "Get household details",
		Long:  "Display detailed information about a specific household",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			household, err := client.Households().Get(context.Background(), args[0], nil)
			if err != nil {
				return fmt.Errorf("failed to get household: %w", err)
			}

			rendered, err := renderStructured(household.Data)
			if rendered {
				return err
			}

			return renderHouseholdDetailsTable(&household.Data)
		},
	}
}

func renderHouseholdDetailsTable(household *pco.Household) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	attrs := &household.Attributes

	_ = table.Append("Name", attrs.Name)
	_ = table.Append("ID", household.ID)
	_ = table.Append("Members", strconv.Itoa(attrs.MemberCount))
	_ = table.Append("Primary Contact", valueOrDefault(attrs.PrimaryContactName, NotAvailable))

	if attrs.CreatedAt != nil {
		_ = table.Append("Created", attrs.CreatedAt.Format(dateTimeFormat))
	}

	if attrs.UpdatedAt != nil {
		_ = table.Append("Updated", attrs.UpdatedAt.Format(dateTimeFormat))
	}

	_, _ = os.Stdout.WriteString("Household details:\n\n")

	_ = table.Render()

	return nil
}

func newHouseholdsPeopleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "people HOUSEHOLD_ID",
		Short: "List household members",
		Long:  "List the people belonging to a household",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			people, err := client.Households().ListPeople(context.Background(), args[0], nil)
			if err != nil {
				return fmt.Errorf("failed to list household people: %w", err)
			}

			totalCount := len(people.Data)
			if people.Meta != nil {
				totalCount = people.Meta.TotalCount
			}

			return outputPeople(people.Data, totalCount, false)
		},
	}
}
