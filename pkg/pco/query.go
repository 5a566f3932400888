package pco

import (
	"net/url"
	"strconv"
	"strings"
)

// QueryParams represents query parameters for list and get requests. Filters
// follow the JSON:API convention of the API: where[field]=value for filters,
// comma-joined include lists, and fields[type] for sparse fieldsets.
type QueryParams struct {
	Page    int
	PerPage int
	Order   string
	Include []string
	Where   map[string][]string
	Fields  map[string][]string
}

// NewQueryParams creates an empty QueryParams.
func NewQueryParams() *QueryParams {
	return &QueryParams{
		Where:  make(map[string][]string),
		Fields: make(map[string][]string),
	}
}

// WithPage sets the page number.
func (q *QueryParams) WithPage(page int) *QueryParams {
	q.Page = page

	return q
}

// WithPerPage sets the page size.
func (q *QueryParams) WithPerPage(perPage int) *QueryParams {
	q.PerPage = perPage

	return q
}

// WithOrder sets the sort order. Prefix a field with "-" for descending.
func (q *QueryParams) WithOrder(order string) *QueryParams {
	q.Order = order

	return q
}

// WithInclude appends related resource types to side-load.
func (q *QueryParams) WithInclude(includes ...string) *QueryParams {
	q.Include = append(q.Include, includes...)

	return q
}

// WithWhere appends filter values for a field.
func (q *QueryParams) WithWhere(field string, values ...string) *QueryParams {
	if q.Where == nil {
		q.Where = make(map[string][]string)
	}

	q.Where[field] = append(q.Where[field], values...)

	return q
}

// WithFields replaces the sparse fieldset for a resource type.
func (q *QueryParams) WithFields(resourceType string, fields ...string) *QueryParams {
	if q.Fields == nil {
		q.Fields = make(map[string][]string)
	}

	q.Fields[resourceType] = fields

	return q
}

// ToValues converts the params to url.Values for a request.
func (q *QueryParams) ToValues() url.Values {
	values := url.Values{}

	if q == nil {
		return values
	}

	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}

	if q.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(q.PerPage))
	}

	if q.Order != "" {
		values.Set("order", q.Order)
	}

	if len(q.Include) > 0 {
		values.Set("include", strings.Join(q.Include, ","))
	}

	for field, filterValues := range q.Where {
		if len(filterValues) > 0 {
			values.Set("where["+field+"]", strings.Join(filterValues, ","))
		}
	}

	for resourceType, fields := range q.Fields {
		if len(fields) > 0 {
			values.Set("fields["+resourceType+"]", strings.Join(fields, ","))
		}
	}

	return values
}
