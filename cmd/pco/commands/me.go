package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewMeCommand creates the me command.
func NewMeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the authenticated person",
		Long:  "Display the person the configured credentials belong to",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			person, err := client.People().Me(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get current person: %w", err)
			}

			rendered, err := renderStructured(person.Data)
			if rendered {
				return err
			}

			return renderPersonDetailsTable(&person.Data)
		},
	}
}
