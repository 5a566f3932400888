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

// NewPeopleCommand creates the people command group.
func NewPeopleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "people",
		Aliases: []string{"person", "p"},
		Short:   "Manage people",
		Long:    "List, create, update, and delete people in Planning Center",
	}

	cmd.AddCommand(newPeopleListCommand())
	cmd.AddCommand(newPeopleGetCommand())
	cmd.AddCommand(newPeopleCreateCommand())
	cmd.AddCommand(newPeopleUpdateCommand())
	cmd.AddCommand(newPeopleDeleteCommand())
	cmd.AddCommand(newPeopleEmailsCommand())
	cmd.AddCommand(newPeopleSetFieldCommand())

	return cmd
}

func newPeopleListCommand() *cobra.Command {
	var (
		allPages bool
		perPage  int
		search   string
		order    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List people",
		Long:  "List people, optionally filtered by a name or email search",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPeopleListCommand(allPages, perPage, search, order)
		},
	}

	cmd.Flags().BoolVar(&allPages, "all", false, "fetch all pages")
	cmd.Flags().IntVar(&perPage, "per-page", constants.DefaultPerPage, "results per page")
	cmd.Flags().StringVar(&search, "search", "", "filter by name or email")
	cmd.Flags().StringVar(&order, "order", "", "sort order, prefix with - for descending")

	return cmd
}

func runPeopleListCommand(allPages bool, perPage int, search, order string) error {
	client, err := CreateClient()
	if err != nil {
		return err
	}

	ctx := context.Background()

	params := pco.NewQueryParams().WithPerPage(perPage)
	if search != "" {
		params.WithWhere("search_name_or_email", search)
	}

	if order != "" {
		params.WithOrder(order)
	}

	if allPages {
		people, err := client.People().ListAll(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to list people: %w", err)
		}

		return outputPeople(people, len(people), allPages)
	}

	people, err := client.People().List(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to list people: %w", err)
	}

	totalCount := len(people.Data)
	if people.Meta != nil {
		totalCount = people.Meta.TotalCount
	}

	return outputPeople(people.Data, totalCount, allPages)
}

func outputPeople(people []pco.Person, totalCount int, allPages bool) error {
	rendered, err := renderStructured(people)
	if rendered {
		return err
	}

	return renderPersonTable(people, totalCount, allPages)
}

func renderPersonTable(people []pco.Person, totalCount int, allPages bool) error {
	if len(people) == 0 {
		_, _ = os.Stdout.WriteString("No people found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "ID", "Status", "Created")

	for i := range people {
		person := &people[i]

		created := NotAvailable
		if person.Attributes.CreatedAt != nil {
			created = person.Attributes.CreatedAt.Format(dateFormat)
		}

		_ = table.Append(personDisplayName(person), person.ID, person.Attributes.Status, created)
	}

	_ = table.Render()

	if !allPages && totalCount > len(people) {
		_, _ = fmt.Fprintf(os.Stdout, "\nShowing %d of %d people. Use --all to fetch all pages.\n", len(people), totalCount)
	}

	return nil
}

func newPeopleGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get PERSON_ID_OR_NAME",
		Short: "Get person details",
		Long:  "Display detailed information about a specific person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			person, err := findPersonByIDOrSearch(context.Background(), client, args[0])
			if err != nil {
				return err
			}

			rendered, err := renderStructured(person)
			if rendered {
				return err
			}

			return renderPersonDetailsTable(person)
		},
	}
}

func renderPersonDetailsTable(person *pco.Person) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	attrs := &person.Attributes

	_ = table.Append("Name", personDisplayName(person))
	_ = table.Append("ID", person.ID)
	_ = table.Append("Status", valueOrDefault(attrs.Status, NotAvailable))
	_ = table.Append("Membership", valueOrDefault(attrs.MembershipStatus, NotAvailable))

	if attrs.Birthdate != "" {
		_ = table.Append("Birthdate", attrs.Birthdate)
	}

	if attrs.Anniversary != "" {
		_ = table.Append("Anniversary", attrs.Anniversary)
	}

	if attrs.Gender != "" {
		_ = table.Append("Gender", attrs.Gender)
	}

	if attrs.Grade != nil {
		_ = table.Append("Grade", strconv.Itoa(*attrs.Grade))
	}

	if attrs.Child {
		_ = table.Append("Child", "yes")
	}

	if attrs.CreatedAt != nil {
		_ = table.Append("Created", attrs.CreatedAt.Format(dateTimeFormat))
	}

	if attrs.UpdatedAt != nil {
		_ = table.Append("Updated", attrs.UpdatedAt.Format(dateTimeFormat))
	}

	_, _ = os.Stdout.WriteString("Person details:\n\n")

	_ = table.Render()

	return nil
}

func newPeopleCreateCommand() *cobra.Command {
	request := &pco.PersonCreateRequest{}

	var (
		grade int
		child bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new person",
		Long:  "Create a new person in Planning Center",
		RunE: func(cmd *cobra.Command, args []string) error {
			if request.FirstName == "" && request.LastName == "" {
				return ErrNameRequired
			}

			if cmd.Flags().Changed("grade") {
				request.Grade = &grade
			}

			if cmd.Flags().Changed("child") {
				request.Child = &child
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			person, err := client.People().Create(context.Background(), request)
			if err != nil {
				return fmt.Errorf("failed to create person: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Successfully created person '%s' with ID %s\n",
				personDisplayName(&person.Data), person.Data.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&request.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&request.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&request.MiddleName, "middle-name", "", "middle name")
	cmd.Flags().StringVar(&request.Nickname, "nickname", "", "nickname")
	cmd.Flags().StringVar(&request.Birthdate, "birthdate", "", "birthdate (YYYY-MM-DD)")
	cmd.Flags().StringVar(&request.Anniversary, "anniversary", "", "anniversary (YYYY-MM-DD)")
	cmd.Flags().StringVar(&request.Gender, "gender", "", "gender")
	cmd.Flags().StringVar(&request.Status, "status", "", "status (active or inactive)")
	cmd.Flags().IntVar(&grade, "grade", 0, "school grade")
	cmd.Flags().BoolVar(&child, "child", false, "mark as child")

	return cmd
}

func newPeopleUpdateCommand() *cobra.Command {
	request := &pco.PersonUpdateRequest{}

	var (
		grade int
		child bool
	)

	cmd := &cobra.Command{
		Use:   "update PERSON_ID_OR_NAME",
		Short: "Update a person",
		Long:  "Update attributes of an existing person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("grade") {
				request.Grade = &grade
			}

			if cmd.Flags().Changed("child") {
				request.Child = &child
			}

			// Inherited global flags count toward NFlag, so emptiness is
			// judged on the request itself.
			if *request == (pco.PersonUpdateRequest{}) {
				return ErrNoFieldsToUpdate
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			person, err := findPersonByIDOrSearch(ctx, client, args[0])
			if err != nil {
				return err
			}

			updated, err := client.People().Update(ctx, person.ID, request)
			if err != nil {
				return fmt.Errorf("failed to update person: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Successfully updated person '%s'\n", personDisplayName(&updated.Data))

			return nil
		},
	}

	cmd.Flags().StringVar(&request.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&request.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&request.MiddleName, "middle-name", "", "middle name")
	cmd.Flags().StringVar(&request.Nickname, "nickname", "", "nickname")
	cmd.Flags().StringVar(&request.Birthdate, "birthdate", "", "birthdate (YYYY-MM-DD)")
	cmd.Flags().StringVar(&request.Anniversary, "anniversary", "", "anniversary (YYYY-MM-DD)")
	cmd.Flags().StringVar(&request.Gender, "gender", "", "gender")
	cmd.Flags().StringVar(&request.Status, "status", "", "status (active or inactive)")
	cmd.Flags().IntVar(&grade, "grade", 0, "school grade")
	cmd.Flags().BoolVar(&child, "child", false, "mark as child")

	return cmd
}

func newPeopleDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete PERSON_ID_OR_NAME",
		Short: "Delete a person",
		Long:  "Delete a person from Planning Center",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPeopleDeleteCommand(args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force deletion without confirmation")

	return cmd
}

func runPeopleDeleteCommand(idOrQuery string, force bool) error {
	client, err := CreateClient()
	if err != nil {
		return err
	}

	ctx := context.Background()

	person, err := findPersonByIDOrSearch(ctx, client, idOrQuery)
	if err != nil {
		return err
	}

	if !force {
		_, _ = fmt.Fprintf(os.Stdout, "Really delete person '%s'? (y/N): ", personDisplayName(person))

		var response string

		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			_, _ = os.Stdout.WriteString("Cancelled\n")

			return nil
		}
	}

	err = client.People().Delete(ctx, person.ID)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Successfully deleted person '%s'\n", personDisplayName(person))

	return nil
}

func newPeopleEmailsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "emails PERSON_ID_OR_NAME",
		Short: "List a person's email addresses",
		Long:  "List all email addresses attached to a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			person, err := findPersonByIDOrSearch(ctx, client, args[0])
			if err != nil {
				return err
			}

			emails, err := client.People().ListEmails(ctx, person.ID, nil)
			if err != nil {
				return fmt.Errorf("failed to list emails: %w", err)
			}

			rendered, err := renderStructured(emails.Data)
			if rendered {
				return err
			}

			return renderEmailTable(emails.Data)
		},
	}
}

func renderEmailTable(emails []pco.Email) error {
	if len(emails) == 0 {
		_, _ = os.Stdout.WriteString("No email addresses found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Address", "Location", "Primary")

	for i := range emails {
		email := &emails[i]

		primary := "no"
		if email.Attributes.Primary {
			primary = "yes"
		}

		_ = table.Append(email.Attributes.Address, valueOrDefault(email.Attributes.Location, NotAvailable), primary)
	}

	_ = table.Render()

	return nil
}

func newPeopleSetFieldCommand() *cobra.Command {
	var fileURL string

	cmd := &cobra.Command{
		Use:   "set-field PERSON_ID_OR_NAME FIELD_DEFINITION_ID [VALUE]",
		Short: "Set a custom field value",
		Long: `Set a custom field value on a person.

Pass the value as the third argument, or --file with a source URL to upload
a file and attach it as the field value.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			hasValue := len(args) == 3

			if hasValue && fileURL != "" {
				return ErrValueAndFileExclusive
			}

			if !hasValue && fileURL == "" {
				return ErrValueOrFileRequired
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			person, err := findPersonByIDOrSearch(ctx, client, args[0])
			if err != nil {
				return err
			}

			var datum *pco.FieldDatumDocument
			if hasValue {
				datum, err = client.People().SetFieldValue(ctx, person.ID, args[1], args[2])
			} else {
				datum, err = client.People().SetFileFieldValue(ctx, person.ID, args[1], fileURL)
			}

			if err != nil {
				return fmt.Errorf("failed to set field value: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Set field %s to %q for '%s'\n",
				args[1], datum.Data.Attributes.Value, personDisplayName(person))

			return nil
		},
	}

	cmd.Flags().StringVar(&fileURL, "file", "", "source URL of a file to upload as the value")

	return cmd
}
