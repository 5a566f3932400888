package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/steeplehq/pco-go/internal/constants"
	"github.com/steeplehq/pco-go/internal/http"
	"github.com/steeplehq/pco-go/pkg/pco"
)

// PeopleClient implements the pco.PeopleClient interface.
type PeopleClient struct {
	httpClient    *http.Client
	fileTransport pco.FileTransport
}

// NewPeopleClient creates a new people client.
func NewPeopleClient(httpClient *http.Client, fileTransport pco.FileTransport) *PeopleClient {
	return &PeopleClient{
		httpClient:    httpClient,
		fileTransport: fileTransport,
	}
}

// Create implements pco.PeopleClient.Create.
func (c *PeopleClient) Create(ctx context.Context, request *pco.PersonCreateRequest) (*pco.PersonDocument, error) {
	resp, err := c.httpClient.Post(ctx, "/people", pco.NewEnvelope(request))
	if err != nil {
		return nil, fmt.Errorf("creating person: %w", err)
	}

	var person pco.PersonDocument

	err = json.Unmarshal(resp.Body, &person)
	if err != nil {
		return nil, fmt.Errorf("parsing person response: %w", err)
	}

	return &person, nil
}

// Get implements pco.PeopleClient.Get.
func (c *PeopleClient) Get(ctx context.Context, personID string, params *pco.QueryParams) (*pco.PersonDocument, error) {
	path := fmt.Sprintf("/people/%s", personID)

	resp, err := c.httpClient.Get(ctx, path, params.ToValues())
	if err != nil {
		return nil, fmt.Errorf("getting person: %w", err)
	}

	var person pco.PersonDocument

	err = json.Unmarshal(resp.Body, &person)
	if err != nil {
		return nil, fmt.Errorf("parsing person response: %w", err)
	}

	return &person, nil
}

// List implements pco.PeopleClient.List.
func (c *PeopleClient) List(ctx context.Context, params *pco.QueryParams) (*pco.PersonCollection, error) {
	return c.ListWithPath(ctx, "/people", params)
}

// ListWithPath implements pco.PeopleClient.ListWithPath. The path may be a
// relative endpoint or an absolute next link from a previous page.
func (c *PeopleClient) ListWithPath(ctx context.Context, path string, params *pco.QueryParams) (*pco.PersonCollection, error) {
	resp, err := c.httpClient.Get(ctx, path, params.ToValues())
	if err != nil {
		return nil, fmt.Errorf("listing people: %w", err)
	}

	var people pco.PersonCollection

	err = json.Unmarshal(resp.Body, &people)
	if err != nil {
		return nil, fmt.Errorf("parsing people list response: %w", err)
	}

	return &people, nil
}

// ListAll implements pco.PeopleClient.ListAll. It follows next links until
// the listing is exhausted.
func (c *PeopleClient) ListAll(ctx context.Context, params *pco.QueryParams) ([]pco.Person, error) {
	return pco.FetchAllPages[pco.PersonAttributes](ctx, c, "/people", params, nil)
}

// Update implements pco.PeopleClient.Update.
func (c *PeopleClient) Update(ctx context.Context, personID string, request *pco.PersonUpdateRequest) (*pco.PersonDocument, error) {
	path := fmt.Sprintf("/people/%s", personID)

	resp, err := c.httpClient.Patch(ctx, path, pco.NewEnvelope(request))
	if err != nil {
		return nil, fmt.Errorf("updating person: %w", err)
	}

	var person pco.PersonDocument

	err = json.Unmarshal(resp.Body, &person)
	if err != nil {
		return nil, fmt.Errorf("parsing person response: %w", err)
	}

	return &person, nil
}

// Delete implements pco.PeopleClient.Delete.
func (c *PeopleClient) Delete(ctx context.Context, personID string) error {
	path := fmt.Sprintf("/people/%s", personID)

	_, err := c.httpClient.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("deleting person: %w", err)
	}

	return nil
}

// Me implements pco.PeopleClient.Me. It returns the person tied to the
// authenticated credentials.
func (c *PeopleClient) Me(ctx context.Context) (*pco.PersonDocument, error) {
	resp, err := c.httpClient.Get(ctx, "/me", nil)
	if err != nil {
		return nil, fmt.Errorf("getting current person: %w", err)
	}

	var person pco.PersonDocument

	err = json.Unmarshal(resp.Body, &person)
	if err != nil {
		return nil, fmt.Errorf("parsing person response: %w", err)
	}

	return &person, nil
}

// ListEmails implements pco.PeopleClient.ListEmails.
func (c *PeopleClient) ListEmails(ctx context.Context, personID string, params *pco.QueryParams) (*pco.EmailCollection, error) {
	path := fmt.Sprintf("/people/%s/emails", personID)

	resp, err := c.httpClient.Get(ctx, path, params.ToValues())
	if err != nil {
		return nil, fmt.Errorf("listing emails: %w", err)
	}

	var emails pco.EmailCollection

	err = json.Unmarshal(resp.Body, &emails)
	if err != nil {
		return nil, fmt.Errorf("parsing emails list response: %w", err)
	}

	return &emails, nil
}

// SetFieldValue implements pco.PeopleClient.SetFieldValue. It writes a
// custom field value for the person.
func (c *PeopleClient) SetFieldValue(ctx context.Context, personID, fieldDefinitionID, value string) (*pco.FieldDatumDocument, error) {
	path := fmt.Sprintf("/people/%s/field_data", personID)

	attributes := &pco.FieldDatumAttributes{
		FieldDefinitionID: fieldDefinitionID,
		Value:             value,
	}

	resp, err := c.httpClient.Post(ctx, path, pco.NewEnvelope(attributes))
	if err != nil {
		return nil, fmt.Errorf("setting field value: %w", err)
	}

	var datum pco.FieldDatumDocument

	err = json.Unmarshal(resp.Body, &datum)
	if err != nil {
		return nil, fmt.Errorf("parsing field datum response: %w", err)
	}

	return &datum, nil
}

// SetFileFieldValue implements pco.PeopleClient.SetFileFieldValue. The file
// at sourceURL is pushed through the file transport first and the assigned
// identifier becomes the field value.
func (c *PeopleClient) SetFileFieldValue(ctx context.Context, personID, fieldDefinitionID, sourceURL string) (*pco.FieldDatumDocument, error) {
	if c.fileTransport == nil {
		return nil, constants.ErrNoFileTransport
	}

	result, err := c.fileTransport.Upload(ctx, &pco.UploadRequest{SourceURL: sourceURL})
	if err != nil {
		return nil, fmt.Errorf("uploading file: %w", err)
	}

	return c.SetFieldValue(ctx, personID, fieldDefinitionID, result.ID)
}
