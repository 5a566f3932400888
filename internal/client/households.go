package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/steeplehq/pco-go/internal/http"
	"github.com/steeplehq/pco-go/pkg/pco"
)

// HouseholdsClient implements the pco.HouseholdsClient interface.
type HouseholdsClient struct {
	httpClient *http.Client
}

// NewHouseholdsClient creates a new households client.
func NewHouseholdsClient(httpClient *http.Client) *HouseholdsClient {
	return &HouseholdsClient{httpClient: httpClient}
}

// Get implements pco.HouseholdsClient.Get.
func (c *HouseholdsClient) Get(ctx context.Context, householdID string, params *pco.QueryParams) (*pco.HouseholdDocument, error) {
	path := fmt.Sprintf("/households/%s", householdID)

	resp, err := c.httpClient.Get(ctx, path, params.ToValues())
	if err != nil {
		return nil, fmt.Errorf("getting household: %w", err)
	}

	var household pco.HouseholdDocument

	err = json.Unmarshal(resp.Body, &household)
	if err != nil {
		return nil, fmt.Errorf("parsing household response: %w", err)
	}

	return &household, nil
}

// List implements pco.HouseholdsClient.List.
func (c *HouseholdsClient) List(ctx context.Context, params *pco.QueryParams) (*pco.HouseholdCollection, error) {
	return c.ListWithPath(ctx, "/households", params)
}

// ListWithPath implements pco.HouseholdsClient.ListWithPath. The path may
// be a relative endpoint or an absolute next link from a previous page.
func (c *HouseholdsClient) ListWithPath(ctx context.Context, path string, params *pco.QueryParams) (*pco.HouseholdCollection, error) {
	resp, err := c.httpClient.Get(ctx, path, params.ToValues())
	if err != nil {
		return nil, fmt.Errorf("listing households: %w", err)
	}

	var households pco.HouseholdCollection

	err = json.Unmarshal(resp.Body, &households)
	if err != nil {
		return nil, fmt.Errorf("parsing households list response: %w", err)
	}

	return &households, nil
}

// ListAll implements pco.HouseholdsClient.ListAll. It follows next links
// until the listing is exhausted.
func (c *HouseholdsClient) ListAll(ctx context.Context, params *pco.QueryParams) ([]pco.Household, error) {
	return pco.FetchAllPages[pco.HouseholdAttributes](ctx, c, "/households", params, nil)
}

// ListPeople implements pco.HouseholdsClient.ListPeople. It lists the
// members of a household.
func (c *HouseholdsClient) ListPeople(ctx context.Context, householdID string, params *pco.QueryParams) (*pco.PersonCollection, error) {
	path := fmt.Sprintf("/households/%s/people", householdID)

	resp, err := c.httpClient.Get(ctx, path, params.ToValues())
	if err != nil {
		return nil, fmt.Errorf("listing household people: %w", err)
	}

	var people pco.PersonCollection

	err = json.Unmarshal(resp.Body, &people)
	if err != nil {
		return nil, fmt.Errorf("parsing people list response: %w", err)
	}

	return &people, nil
}
