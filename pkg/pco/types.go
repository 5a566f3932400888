package pco

import (
	"encoding/json"
	"time"
)

// Links holds the link section of a JSON:API document or resource. The
// People API serves link values as plain URL strings.
type Links map[string]string

// Self returns the document's self link, or "" when absent.
func (l Links) Self() string {
	return l["self"]
}

// Next returns the next-page link, or "" when absent.
func (l Links) Next() string {
	return l["next"]
}

// Prev returns the previous-page link, or "" when absent.
func (l Links) Prev() string {
	return l["prev"]
}

// HasNext reports whether a next-page link is present.
func (l Links) HasNext() bool {
	return l["next"] != ""
}

// ResourceIdentifier identifies a related resource by type and id.
type ResourceIdentifier struct {
	Type string `json:"type" yaml:"type"`
	ID   string `json:"id"   yaml:"id"`
}

// Relationship represents a to-one relationship.
type Relationship struct {
	Data *ResourceIdentifier `json:"data,omitempty" yaml:"data,omitempty"`
}

// ToManyRelationship represents a to-many relationship.
type ToManyRelationship struct {
	Data []ResourceIdentifier `json:"data" yaml:"data"`
}

// Meta carries the meta section of a list response.
type Meta struct {
	TotalCount int                 `json:"total_count,omitempty"  yaml:"total_count,omitempty"`
	Count      int                 `json:"count,omitempty"        yaml:"count,omitempty"`
	CanOrderBy []string            `json:"can_order_by,omitempty" yaml:"can_order_by,omitempty"`
	CanQueryBy []string            `json:"can_query_by,omitempty" yaml:"can_query_by,omitempty"`
	CanInclude []string            `json:"can_include,omitempty"  yaml:"can_include,omitempty"`
	Parent     *ResourceIdentifier `json:"parent,omitempty"       yaml:"parent,omitempty"`
}

// Resource is one JSON:API resource with typed attributes.
type Resource[T any] struct {
	Type          string                  `json:"type"                    yaml:"type"`
	ID            string                  `json:"id"                      yaml:"id"`
	Attributes    T                       `json:"attributes"              yaml:"attributes"`
	Relationships map[string]Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty"`
	Links         Links                   `json:"links,omitempty"         yaml:"links,omitempty"`
}

// ResourceObject is an untyped resource, used for included side-loads whose
// concrete type is not known until inspected.
type ResourceObject = Resource[json.RawMessage]

// Document is a single-resource JSON:API response envelope.
type Document[T any] struct {
	Data     Resource[T]      `json:"data"               yaml:"data"`
	Included []ResourceObject `json:"included,omitempty" yaml:"included,omitempty"`
	Links    Links            `json:"links,omitempty"    yaml:"links,omitempty"`
	Meta     *Meta            `json:"meta,omitempty"     yaml:"meta,omitempty"`
}

// ListDocument is a multi-resource JSON:API response envelope. Its
// links.next URL, when present, is the absolute URL of the following page.
type ListDocument[T any] struct {
	Data     []Resource[T]    `json:"data"               yaml:"data"`
	Included []ResourceObject `json:"included,omitempty" yaml:"included,omitempty"`
	Links    Links            `json:"links,omitempty"    yaml:"links,omitempty"`
	Meta     *Meta            `json:"meta,omitempty"     yaml:"meta,omitempty"`
}

// Envelope is the request body convention for writes: attributes wrapped
// under data.
type Envelope struct {
	Data EnvelopeData `json:"data" yaml:"data"`
}

// EnvelopeData holds the attributes of a write request body.
type EnvelopeData struct {
	Attributes interface{} `json:"attributes" yaml:"attributes"`
}

// NewEnvelope wraps a payload in the data/attributes request body shape.
func NewEnvelope(attributes interface{}) *Envelope {
	return &Envelope{Data: EnvelopeData{Attributes: attributes}}
}

// PersonAttributes holds the attributes of a Person resource.
type PersonAttributes struct {
	FirstName         string     `json:"first_name,omitempty"         yaml:"first_name,omitempty"`
	LastName          string     `json:"last_name,omitempty"          yaml:"last_name,omitempty"`
	MiddleName        string     `json:"middle_name,omitempty"        yaml:"middle_name,omitempty"`
	Nickname          string     `json:"nickname,omitempty"           yaml:"nickname,omitempty"`
	GivenName         string     `json:"given_name,omitempty"         yaml:"given_name,omitempty"`
	Name              string     `json:"name,omitempty"               yaml:"name,omitempty"`
	Birthdate         string     `json:"birthdate,omitempty"          yaml:"birthdate,omitempty"`
	Anniversary       string     `json:"anniversary,omitempty"        yaml:"anniversary,omitempty"`
	Gender            string     `json:"gender,omitempty"             yaml:"gender,omitempty"`
	Grade             *int       `json:"grade,omitempty"              yaml:"grade,omitempty"`
	Child             bool       `json:"child,omitempty"              yaml:"child,omitempty"`
	Status            string     `json:"status,omitempty"             yaml:"status,omitempty"`
	MembershipStatus  string     `json:"membership,omitempty"         yaml:"membership,omitempty"`
	Avatar            string     `json:"avatar,omitempty"             yaml:"avatar,omitempty"`
	SiteAdministrator bool       `json:"site_administrator,omitempty" yaml:"site_administrator,omitempty"`
	PeoplePermissions string     `json:"people_permissions,omitempty" yaml:"people_permissions,omitempty"`
	RemoteID          *int       `json:"remote_id,omitempty"          yaml:"remote_id,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty"         yaml:"created_at,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"         yaml:"updated_at,omitempty"`
	InactivatedAt     *time.Time `json:"inactivated_at,omitempty"     yaml:"inactivated_at,omitempty"`
}

// Person is a Person resource.
type Person = Resource[PersonAttributes]

// PersonDocument is a single-person response.
type PersonDocument = Document[PersonAttributes]

// PersonCollection is a paginated list of people.
type PersonCollection = ListDocument[PersonAttributes]

// PersonCreateRequest holds the writable attributes for creating a person.
// At least one of FirstName or LastName must be set.
type PersonCreateRequest struct {
	FirstName   string `json:"first_name,omitempty"  yaml:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"   yaml:"last_name,omitempty"`
	MiddleName  string `json:"middle_name,omitempty" yaml:"middle_name,omitempty"`
	Nickname    string `json:"nickname,omitempty"    yaml:"nickname,omitempty"`
	Birthdate   string `json:"birthdate,omitempty"   yaml:"birthdate,omitempty"`
	Anniversary string `json:"anniversary,omitempty" yaml:"anniversary,omitempty"`
	Gender      string `json:"gender,omitempty"      yaml:"gender,omitempty"`
	Grade       *int   `json:"grade,omitempty"       yaml:"grade,omitempty"`
	Child       *bool  `json:"child,omitempty"       yaml:"child,omitempty"`
	Status      string `json:"status,omitempty"      yaml:"status,omitempty"`
}

// PersonUpdateRequest holds the writable attributes for updating a person.
// Nil and zero-valued fields are omitted from the request body.
type PersonUpdateRequest struct {
	FirstName   string `json:"first_name,omitempty"  yaml:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"   yaml:"last_name,omitempty"`
	MiddleName  string `json:"middle_name,omitempty" yaml:"middle_name,omitempty"`
	Nickname    string `json:"nickname,omitempty"    yaml:"nickname,omitempty"`
	Birthdate   string `json:"birthdate,omitempty"   yaml:"birthdate,omitempty"`
	Anniversary string `json:"anniversary,omitempty" yaml:"anniversary,omitempty"`
	Gender      string `json:"gender,omitempty"      yaml:"gender,omitempty"`
	Grade       *int   `json:"grade,omitempty"       yaml:"grade,omitempty"`
	Child       *bool  `json:"child,omitempty"       yaml:"child,omitempty"`
	Status      string `json:"status,omitempty"      yaml:"status,omitempty"`
}

// HouseholdAttributes holds the attributes of a Household resource.
type HouseholdAttributes struct {
	Name               string     `json:"name,omitempty"                 yaml:"name,omitempty"`
	MemberCount        int        `json:"member_count,omitempty"         yaml:"member_count,omitempty"`
	PrimaryContactName string     `json:"primary_contact_name,omitempty" yaml:"primary_contact_name,omitempty"`
	Avatar             string     `json:"avatar,omitempty"               yaml:"avatar,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"           yaml:"created_at,omitempty"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"           yaml:"updated_at,omitempty"`
}

// Household is a Household resource.
type Household = Resource[HouseholdAttributes]

// HouseholdDocument is a single-household response.
type HouseholdDocument = Document[HouseholdAttributes]

// HouseholdCollection is a paginated list of households.
type HouseholdCollection = ListDocument[HouseholdAttributes]

// FieldDatumAttributes holds the attributes of a FieldDatum resource, the
// value of one custom field on one person.
type FieldDatumAttributes struct {
	Value             string `json:"value,omitempty"               yaml:"value,omitempty"`
	File              string `json:"file,omitempty"                yaml:"file,omitempty"`
	FileContentType   string `json:"file_content_type,omitempty"   yaml:"file_content_type,omitempty"`
	FileName          string `json:"file_name,omitempty"           yaml:"file_name,omitempty"`
	FileSize          *int   `json:"file_size,omitempty"           yaml:"file_size,omitempty"`
	FieldDefinitionID string `json:"field_definition_id,omitempty" yaml:"field_definition_id,omitempty"`
}

// FieldDatum is a FieldDatum resource.
type FieldDatum = Resource[FieldDatumAttributes]

// FieldDatumDocument is a single-field-datum response.
type FieldDatumDocument = Document[FieldDatumAttributes]

// EmailAttributes holds the attributes of an Email resource.
type EmailAttributes struct {
	Address  string `json:"address,omitempty"  yaml:"address,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
	Primary  bool   `json:"primary,omitempty"  yaml:"primary,omitempty"`
	Blocked  bool   `json:"blocked,omitempty"  yaml:"blocked,omitempty"`
}

// Email is an Email resource.
type Email = Resource[EmailAttributes]

// EmailCollection is a paginated list of emails.
type EmailCollection = ListDocument[EmailAttributes]
