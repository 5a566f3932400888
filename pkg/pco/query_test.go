package pco_test

import (
	"net/url"
	"testing"

	"github.com/steeplehq/pco-go/pkg/pco"
	"github.com/stretchr/testify/assert"
)

//nolint:funlen // Test functions can be longer for detailed testing
func TestQueryParams_ToValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		params   *pco.QueryParams
		expected url.Values
	}{
		{
			name:     "empty params",
			params:   pco.NewQueryParams(),
			expected: url.Values{},
		},
		{
			name:     "nil params",
			params:   nil,
			expected: url.Values{},
		},
		{
			name: "with pagination",
			params: &pco.QueryParams{
				Page:    2,
				PerPage: 50,
			},
			expected: url.Values{
				"page":     []string{"2"},
				"per_page": []string{"50"},
			},
		},
		{
			name: "with ordering",
			params: &pco.QueryParams{
				Order: "-created_at",
			},
			expected: url.Values{
				"order": []string{"-created_at"},
			},
		},
		{
			name: "with includes",
			params: &pco.QueryParams{
				Include: []string{"emails", "households"},
			},
			expected: url.Values{
				"include": []string{"emails,households"},
			},
		},
		{
			name: "with filters",
			params: &pco.QueryParams{
				Where: map[string][]string{
					"first_name": {"Jane"},
					"status":     {"active"},
				},
			},
			expected: url.Values{
				"where[first_name]": []string{"Jane"},
				"where[status]":     []string{"active"},
			},
		},
		{
			name: "with fields",
			params: &pco.QueryParams{
				Fields: map[string][]string{
					"Person": {"first_name", "last_name"},
				},
			},
			expected: url.Values{
				"fields[Person]": []string{"first_name,last_name"},
			},
		},
		{
			name: "with all options",
			params: &pco.QueryParams{
				Page:    3,
				PerPage: 25,
				Order:   "last_name",
				Include: []string{"emails"},
				Where: map[string][]string{
					"last_name": {"Doe"},
				},
				Fields: map[string][]string{
					"Person": {"first_name"},
				},
			},
			expected: url.Values{
				"page":             []string{"3"},
				"per_page":         []string{"25"},
				"order":            []string{"last_name"},
				"include":          []string{"emails"},
				"where[last_name]": []string{"Doe"},
				"fields[Person]":   []string{"first_name"},
			},
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := tt.params.ToValues()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestQueryParams_Builders(t *testing.T) {
	t.Parallel()
	t.Run("chaining methods", func(t *testing.T) {
		t.Parallel()

		params := pco.NewQueryParams().
			WithPage(2).
			WithPerPage(100).
			WithOrder("-updated_at").
			WithInclude("emails", "addresses").
			WithWhere("status", "active").
			WithWhere("first_name", "Jane", "John").
			WithFields("Person", "first_name", "last_name")

		values := params.ToValues()

		assert.Equal(t, "2", values.Get("page"))
		assert.Equal(t, "100", values.Get("per_page"))
		assert.Equal(t, "-updated_at", values.Get("order"))
		assert.Equal(t, "emails,addresses", values.Get("include"))
		assert.Equal(t, "active", values.Get("where[status]"))
		assert.Equal(t, "Jane,John", values.Get("where[first_name]"))
		assert.Equal(t, "first_name,last_name", values.Get("fields[Person]"))
	})

	t.Run("WithInclude appends", func(t *testing.T) {
		t.Parallel()

		params := pco.NewQueryParams().
			WithInclude("emails").
			WithInclude("addresses", "households")

		assert.Equal(t, []string{"emails", "addresses", "households"}, params.Include)
	})

	t.Run("WithWhere appends", func(t *testing.T) {
		t.Parallel()

		params := pco.NewQueryParams().
			WithWhere("status", "active").
			WithWhere("status", "inactive")

		assert.Equal(t, []string{"active", "inactive"}, params.Where["status"])
	})

	t.Run("WithFields replaces", func(t *testing.T) {
		t.Parallel()

		params := pco.NewQueryParams().
			WithFields("Person", "first_name").
			WithFields("Person", "last_name", "status")

		assert.Equal(t, []string{"last_name", "status"}, params.Fields["Person"])
	})
}

func TestNewQueryParams(t *testing.T) {
	t.Parallel()

	params := pco.NewQueryParams()

	assert.NotNil(t, params)
	assert.NotNil(t, params.Where)
	assert.NotNil(t, params.Fields)
	assert.Equal(t, 0, params.Page)
	assert.Equal(t, 0, params.PerPage)
	assert.Empty(t, params.Order)
	assert.Nil(t, params.Include)
}
