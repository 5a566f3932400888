package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"github.com/steeplehq/pco-go/pkg/pco"
	"gopkg.in/yaml.v3"
)

// Common string constants used throughout the commands package.
const (
	NotAvailable = "N/A"

	// Output formats.
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"

	// YAML formatting.
	defaultYAMLIndent = 2

	// Sensitive config values are masked in table output.
	Masked = "***"

	dateFormat     = "2006-01-02"
	dateTimeFormat = "2006-01-02 15:04:05"
)

// Common static errors used throughout the commands package.
var (
	ErrPersonNotFound        = errors.New("person not found")
	ErrHouseholdNotFound     = errors.New("household not found")
	ErrNoCredentials         = errors.New("no credentials configured. Use 'pco login' first")
	ErrConfigKeyUnknown      = errors.New("unknown configuration key")
	ErrAppIDRequired         = errors.New("application ID is required")
	ErrNameRequired          = errors.New("at least one of --first-name or --last-name is required")
	ErrNoFieldsToUpdate      = errors.New("no fields to update; pass at least one flag")
	ErrValueOrFileRequired   = errors.New("either VALUE or --file is required")
	ErrValueAndFileExclusive = errors.New("VALUE and --file are mutually exclusive")
)

// StandardJSONRenderer encodes data as indented JSON on stdout.
func StandardJSONRenderer[T any](data T) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to JSON: %w", err)
	}

	return nil
}

// StandardYAMLRenderer encodes data as YAML on stdout.
func StandardYAMLRenderer[T any](data T) error {
	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(defaultYAMLIndent)

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to YAML: %w", err)
	}

	return nil
}

// renderStructured writes data in the requested non-table format, returning
// false when the format is table and the caller should render it instead.
func renderStructured[T any](data T) (bool, error) {
	switch viper.GetString("output") {
	case OutputFormatJSON:
		return true, StandardJSONRenderer(data)
	case OutputFormatYAML:
		return true, StandardYAMLRenderer(data)
	default:
		return false, nil
	}
}

// findPersonByIDOrSearch resolves a person by ID first, falling back to a
// name or email search when the direct lookup misses.
func findPersonByIDOrSearch(ctx context.Context, client pco.Client, idOrQuery string) (*pco.Person, error) {
	peopleClient := client.People()

	doc, err := peopleClient.Get(ctx, idOrQuery, nil)
	if err == nil {
		return &doc.Data, nil
	}

	params := pco.NewQueryParams().WithWhere("search_name_or_email", idOrQuery)

	people, err := peopleClient.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to find person: %w", err)
	}

	if len(people.Data) == 0 {
		return nil, fmt.Errorf("person '%s': %w", idOrQuery, ErrPersonNotFound)
	}

	return &people.Data[0], nil
}

// personDisplayName prefers the server-computed full name.
func personDisplayName(person *pco.Person) string {
	if person.Attributes.Name != "" {
		return person.Attributes.Name
	}

	name := person.Attributes.FirstName
	if person.Attributes.LastName != "" {
		if name != "" {
			name += " "
		}

		name += person.Attributes.LastName
	}

	if name == "" {
		return NotAvailable
	}

	return name
}
