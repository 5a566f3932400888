package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalhttp "github.com/steeplehq/pco-go/internal/http"
	"github.com/steeplehq/pco-go/pkg/pco"
)

func newTestHouseholds(serverURL string) *HouseholdsClient {
	return NewHouseholdsClient(internalhttp.NewClient(serverURL, nil))
}

func TestHouseholdsClient_Get(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/households/7", request.URL.Path)
		assert.Equal(t, "GET", request.Method)

		writeJSON(writer, http.StatusOK, pco.HouseholdDocument{
			Data: householdResource("7", "Valjean Household", 2),
		})
	}))
	defer server.Close()

	households := newTestHouseholds(server.URL)

	household, err := households.Get(context.Background(), "7", nil)
	require.NoError(t, err)
	assert.Equal(t, "7", household.Data.ID)
	assert.Equal(t, "Valjean Household", household.Data.Attributes.Name)
	assert.Equal(t, 2, household.Data.Attributes.MemberCount)
}

func TestHouseholdsClient_List(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/households", request.URL.Path)
		assert.Equal(t, "name", request.URL.Query().Get("order"))

		writeJSON(writer, http.StatusOK, pco.HouseholdCollection{
			Data: []pco.Household{
				householdResource("7", "Valjean Household", 2),
				householdResource("8", "Pontmercy Household", 3),
			},
			Meta: &pco.Meta{TotalCount: 2, Count: 2},
		})
	}))
	defer server.Close()

	households := newTestHouseholds(server.URL)

	list, err := households.List(context.Background(), pco.NewQueryParams().WithOrder("name"))
	require.NoError(t, err)
	require.Len(t, list.Data, 2)
	assert.Equal(t, "Pontmercy Household", list.Data[1].Attributes.Name)
}

func TestHouseholdsClient_ListAll_FollowsNextLinks(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Query().Get("offset") == "" {
			writeJSON(writer, http.StatusOK, pco.HouseholdCollection{
				Data:  []pco.Household{householdResource("7", "Valjean Household", 2)},
				Links: pco.Links{"next": server.URL + "/households?offset=1"},
			})

			return
		}

		writeJSON(writer, http.StatusOK, pco.HouseholdCollection{
			Data: []pco.Household{householdResource("8", "Pontmercy Household", 3)},
		})
	}))
	defer server.Close()

	households := newTestHouseholds(server.URL)

	all, err := households.ListAll(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "8", all[1].ID)
}

func TestHouseholdsClient_ListPeople(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/households/7/people", request.URL.Path)

		writeJSON(writer, http.StatusOK, pco.PersonCollection{
			Data: []pco.Person{
				personResource("1", "Jean", "Valjean"),
				personResource("2", "Cosette", "Fauchelevent"),
			},
		})
	}))
	defer server.Close()

	households := newTestHouseholds(server.URL)

	people, err := households.ListPeople(context.Background(), "7", nil)
	require.NoError(t, err)
	require.Len(t, people.Data, 2)
	assert.Equal(t, "Cosette", people.Data[1].Attributes.FirstName)
}

func TestHouseholdsClient_Get_Error(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, http.StatusNotFound, map[string]interface{}{
			"errors": []map[string]interface{}{
				{"status": "404", "title": "Not Found", "detail": "Household not found"},
			},
		})
	}))
	defer server.Close()

	households := newTestHouseholds(server.URL)

	household, err := households.Get(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Nil(t, household)
	assert.Contains(t, err.Error(), "getting household")
	assert.True(t, pco.IsNotFound(err))
}
