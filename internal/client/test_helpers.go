package client

import (
	"encoding/json"
	nethttp "net/http"

	internalhttp "github.com/steeplehq/pco-go/internal/http"
	"github.com/steeplehq/pco-go/pkg/pco"
)

// NewTestClient creates a client for tests: the given base URL, no token
// manager, and the default resource clients.
func NewTestClient(baseURL string) *Client {
	httpClient := internalhttp.NewClient(baseURL, nil)

	client := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}

	client.initializeResourceClients(&pco.Config{})

	return client
}

// personResource builds a person for canned responses.
func personResource(id, firstName, lastName string) pco.Person {
	return pco.Person{
		Type: "Person",
		ID:   id,
		Attributes: pco.PersonAttributes{
			FirstName: firstName,
			LastName:  lastName,
			Name:      firstName + " " + lastName,
			Status:    "active",
		},
	}
}

// householdResource builds a household for canned responses.
func householdResource(id, name string, memberCount int) pco.Household {
	return pco.Household{
		Type: "Household",
		ID:   id,
		Attributes: pco.HouseholdAttributes{
			Name:        name,
			MemberCount: memberCount,
		},
	}
}

// writeJSON writes payload as a JSON response with the given status code.
func writeJSON(writer nethttp.ResponseWriter, status int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}
