package pco_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/steeplehq/pco-go/pkg/pco"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personDoc(id string) *pco.PersonDocument {
	return &pco.PersonDocument{
		Data: pco.Person{Type: "Person", ID: id},
	}
}

// fakePeopleClient counts writes and fails creates for people named Bad.
type fakePeopleClient struct {
	mu      sync.Mutex
	created int
	updated []string
	deleted []string
}

func (f *fakePeopleClient) Create(_ context.Context, request *pco.PersonCreateRequest) (*pco.PersonDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if request.FirstName == "Bad" {
		return nil, pco.ClassifyResponse(422, []byte(`{"errors":[{"detail":"first_name is invalid"}]}`))
	}

	f.created++

	return personDoc(fmt.Sprintf("person-%d", f.created)), nil
}

func (f *fakePeopleClient) Get(_ context.Context, personID string, _ *pco.QueryParams) (*pco.PersonDocument, error) {
	return personDoc(personID), nil
}

func (f *fakePeopleClient) List(context.Context, *pco.QueryParams) (*pco.PersonCollection, error) {
	return &pco.PersonCollection{}, nil
}

func (f *fakePeopleClient) ListWithPath(context.Context, string, *pco.QueryParams) (*pco.PersonCollection, error) {
	return &pco.PersonCollection{}, nil
}

func (f *fakePeopleClient) ListAll(context.Context, *pco.QueryParams) ([]pco.Person, error) {
	return nil, nil
}

func (f *fakePeopleClient) Update(_ context.Context, personID string, _ *pco.PersonUpdateRequest) (*pco.PersonDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updated = append(f.updated, personID)

	return personDoc(personID), nil
}

func (f *fakePeopleClient) Delete(_ context.Context, personID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, personID)

	return nil
}

func (f *fakePeopleClient) Me(context.Context) (*pco.PersonDocument, error) {
	return personDoc("me"), nil
}

func (f *fakePeopleClient) ListEmails(context.Context, string, *pco.QueryParams) (*pco.EmailCollection, error) {
	return &pco.EmailCollection{}, nil
}

func (f *fakePeopleClient) SetFieldValue(context.Context, string, string, string) (*pco.FieldDatumDocument, error) {
	return &pco.FieldDatumDocument{}, nil
}

func (f *fakePeopleClient) SetFileFieldValue(context.Context, string, string, string) (*pco.FieldDatumDocument, error) {
	return &pco.FieldDatumDocument{}, nil
}

func (f *fakePeopleClient) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.deleted...)
}

type fakeHouseholdsClient struct{}

func (f *fakeHouseholdsClient) Get(_ context.Context, householdID string, _ *pco.QueryParams) (*pco.HouseholdDocument, error) {
	return &pco.HouseholdDocument{
		Data: pco.Household{Type: "Household", ID: householdID},
	}, nil
}

func (f *fakeHouseholdsClient) List(context.Context, *pco.QueryParams) (*pco.HouseholdCollection, error) {
	return &pco.HouseholdCollection{}, nil
}

func (f *fakeHouseholdsClient) ListWithPath(context.Context, string, *pco.QueryParams) (*pco.HouseholdCollection, error) {
	return &pco.HouseholdCollection{}, nil
}

func (f *fakeHouseholdsClient) ListAll(context.Context, *pco.QueryParams) ([]pco.Household, error) {
	return nil, nil
}

func (f *fakeHouseholdsClient) ListPeople(context.Context, string, *pco.QueryParams) (*pco.PersonCollection, error) {
	return &pco.PersonCollection{}, nil
}

type fakeClient struct {
	people     *fakePeopleClient
	households *fakeHouseholdsClient
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		people:     &fakePeopleClient{},
		households: &fakeHouseholdsClient{},
	}
}

func (f *fakeClient) People() pco.PeopleClient         { return f.people }
func (f *fakeClient) Households() pco.HouseholdsClient { return f.households }
func (f *fakeClient) RateLimit() pco.RateLimitInfo     { return pco.RateLimitInfo{} }

func TestBatchExecutor_Execute(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	executor := pco.NewBatchExecutor(client, 2)

	operations := pco.NewBatchBuilder().
		AddCreatePerson("op-1", &pco.PersonCreateRequest{FirstName: "Jane", LastName: "Doe"}).
		AddGetPerson("op-2", "person-42").
		AddGetHousehold("op-3", "household-7").
		AddDeletePerson("op-4", "person-9").
		Build()

	results, err := executor.Execute(context.Background(), operations)
	require.NoError(t, err)
	require.Len(t, results, 4)

	// Results keep operation order regardless of completion order
	for i, id := range []string{"op-1", "op-2", "op-3", "op-4"} {
		assert.Equal(t, id, results[i].ID)
		assert.True(t, results[i].Success, "operation %s should succeed", id)
		assert.NoError(t, results[i].Error)
	}

	doc, ok := results[1].Data.(*pco.PersonDocument)
	require.True(t, ok)
	assert.Equal(t, "person-42", doc.Data.ID)

	assert.Equal(t, []string{"person-9"}, client.people.deletedIDs())
}

func TestBatchExecutor_Callback(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	executor := pco.NewBatchExecutor(client, 1)

	var callbackResult *pco.BatchResult

	operations := []pco.BatchOperation{
		{
			ID:       "op-1",
			Type:     "get",
			Resource: "person",
			Data:     "person-1",
			Callback: func(result *pco.BatchResult) {
				callbackResult = result
			},
		},
	}

	_, err := executor.Execute(context.Background(), operations)
	require.NoError(t, err)

	require.NotNil(t, callbackResult)
	assert.Equal(t, "op-1", callbackResult.ID)
	assert.True(t, callbackResult.Success)
}

func TestBatchExecutor_InvalidData(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	executor := pco.NewBatchExecutor(client, 1)

	operations := []pco.BatchOperation{
		{ID: "op-1", Type: "create", Resource: "person", Data: "not a request"},
	}

	results, err := executor.Execute(context.Background(), operations)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.False(t, results[0].Success)
	assert.ErrorIs(t, results[0].Error, pco.ErrInvalidDataTypePerson)
}

func TestBatchExecutor_UnsupportedResource(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	executor := pco.NewBatchExecutor(client, 1)

	operations := []pco.BatchOperation{
		{ID: "op-1", Type: "get", Resource: "workflow", Data: "workflow-1"},
	}

	results, err := executor.Execute(context.Background(), operations)
	require.NoError(t, err)

	assert.False(t, results[0].Success)
	assert.ErrorIs(t, results[0].Error, pco.ErrUnsupportedResourceType)
}

func TestBatchExecutor_HouseholdsAreReadOnly(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	executor := pco.NewBatchExecutor(client, 1)

	operations := []pco.BatchOperation{
		{ID: "op-1", Type: "delete", Resource: "household", Data: "household-1"},
	}

	results, err := executor.Execute(context.Background(), operations)
	require.NoError(t, err)

	assert.False(t, results[0].Success)
	assert.ErrorIs(t, results[0].Error, pco.ErrUnsupportedOperationType)
}

func TestBatchExecutor_DefaultConcurrency(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	executor := pco.NewBatchExecutor(client, 0)

	operations := pco.NewBatchBuilder().
		AddGetPerson("op-1", "person-1").
		AddGetPerson("op-2", "person-2").
		Build()

	results, err := executor.Execute(context.Background(), operations)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestBatchBuilder(t *testing.T) {
	t.Parallel()

	operations := pco.NewBatchBuilder().
		AddCreatePerson("op-1", &pco.PersonCreateRequest{FirstName: "Jane"}).
		AddUpdatePerson("op-2", "person-1", &pco.PersonUpdateRequest{LastName: "Doe"}).
		AddDeletePerson("op-3", "person-2").
		AddGetHousehold("op-4", "household-1").
		AddOperation(pco.BatchOperation{ID: "op-5", Type: "get", Resource: "person", Data: "person-3"}).
		Build()

	require.Len(t, operations, 5)
	assert.Equal(t, "create", operations[0].Type)
	assert.Equal(t, "person", operations[0].Resource)
	assert.Equal(t, "update", operations[1].Type)
	assert.Equal(t, "delete", operations[2].Type)
	assert.Equal(t, "household", operations[3].Resource)
	assert.Equal(t, "op-5", operations[4].ID)
}

func TestBatchTransaction_RollbackOnFailure(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	executor := pco.NewBatchExecutor(client, 1)

	transaction := pco.NewBatchTransaction(executor).
		Add(pco.BatchOperation{
			ID:       "op-1",
			Type:     "create",
			Resource: "person",
			Data:     &pco.PersonCreateRequest{FirstName: "Jane"},
		}).
		Add(pco.BatchOperation{
			ID:       "op-2",
			Type:     "create",
			Resource: "person",
			Data:     &pco.PersonCreateRequest{FirstName: "Bad"},
		})

	results, err := transaction.Execute(context.Background())
	require.ErrorIs(t, err, pco.ErrTransactionFailed)
	require.Len(t, results, 2)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)

	// The successful create was rolled back
	assert.Equal(t, []string{"person-1"}, client.people.deletedIDs())
}

func TestBatchTransaction_RollbackDisabled(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	executor := pco.NewBatchExecutor(client, 1)

	transaction := pco.NewBatchTransaction(executor).
		SetRollback(false).
		Add(pco.BatchOperation{
			ID:       "op-1",
			Type:     "create",
			Resource: "person",
			Data:     &pco.PersonCreateRequest{FirstName: "Jane"},
		}).
		Add(pco.BatchOperation{
			ID:       "op-2",
			Type:     "create",
			Resource: "person",
			Data:     &pco.PersonCreateRequest{FirstName: "Bad"},
		})

	results, err := transaction.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Empty(t, client.people.deletedIDs())
}
