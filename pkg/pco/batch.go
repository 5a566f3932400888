package pco

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/steeplehq/pco-go/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrUnsupportedResourceType  = errors.New("unsupported resource type")
	ErrUnsupportedOperationType = errors.New("unsupported operation type")
	ErrInvalidDataTypePerson    = errors.New("invalid data type for person operation")
	ErrInvalidDataTypeHousehold = errors.New("invalid data type for household operation")
	ErrTransactionFailed        = errors.New("transaction failed")
)

// UpdateDataWrapper wraps update data with the resource ID for consistent
// handling.
type UpdateDataWrapper[T any] struct {
	ID      string
	Request *T
}

// BatchOperation represents a single operation in a batch.
type BatchOperation struct {
	ID       string
	Type     string // "create", "update", "delete", "get"
	Resource string // "person", "household"
	Data     interface{}
	Callback func(result *BatchResult)
}

// BatchResult represents the result of a batch operation.
type BatchResult struct {
	ID       string
	Success  bool
	Data     interface{}
	Error    error
	Duration time.Duration
}

// BatchExecutor executes batch operations with bounded concurrency. The
// shared rate limiter still governs the actual request rate, so concurrency
// only controls how many operations are in flight at once.
type BatchExecutor struct {
	client      Client
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(client Client, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrencyLimit
	}

	return &BatchExecutor{
		client:      client,
		concurrency: concurrency,
		timeout:     constants.DefaultHTTPTimeout,
	}
}

// SetTimeout sets the timeout for each batch operation.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs a batch of operations. Results are returned in operation
// order regardless of completion order.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	results := make([]BatchResult, len(operations))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, operation := range operations {
		waitGroup.Add(1)

		go func(index int, operation BatchOperation) {
			defer waitGroup.Done()

			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			opCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			result := b.executeOperation(opCtx, operation)
			result.Duration = time.Since(start)
			results[index] = *result

			if operation.Callback != nil {
				operation.Callback(result)
			}
		}(index, operation)
	}

	waitGroup.Wait()

	return results, nil
}

// executeOperation executes a single operation.
func (b *BatchExecutor) executeOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	switch operation.Resource {
	case "person":
		return b.executePersonOperation(ctx, operation)
	case "household":
		return b.executeHouseholdOperation(ctx, operation)
	default:
		return &BatchResult{
			ID:    operation.ID,
			Error: fmt.Errorf("%w: %s", ErrUnsupportedResourceType, operation.Resource),
		}
	}
}

// handleCrudOperation is a helper that handles the common CRUD pattern.
func handleCrudOperation(
	operation BatchOperation,
	createFunc func() (interface{}, error),
	updateFunc func() (interface{}, error),
	deleteFunc func() (interface{}, error),
	getFunc func() (interface{}, error),
) *BatchResult {
	result := &BatchResult{ID: operation.ID}

	switch operation.Type {
	case "create":
		data, err := createFunc()
		result.Success = err == nil
		result.Data = data
		result.Error = err
	case "update":
		data, err := updateFunc()
		result.Success = err == nil
		result.Data = data
		result.Error = err
	case "delete":
		data, err := deleteFunc()
		result.Success = err == nil
		result.Data = data
		result.Error = err
	case "get":
		data, err := getFunc()
		result.Success = err == nil
		result.Data = data
		result.Error = err
	default:
		result.Error = fmt.Errorf("%w: %s", ErrUnsupportedOperationType, operation.Type)
	}

	return result
}

// executePersonOperation handles person operations using the common CRUD
// helper.
func (b *BatchExecutor) executePersonOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	return handleCrudOperation(operation,
		func() (interface{}, error) {
			if req, ok := operation.Data.(*PersonCreateRequest); ok {
				return b.client.People().Create(ctx, req)
			}

			return nil, fmt.Errorf("%w create", ErrInvalidDataTypePerson)
		},
		func() (interface{}, error) {
			if data, ok := operation.Data.(*UpdateDataWrapper[PersonUpdateRequest]); ok {
				return b.client.People().Update(ctx, data.ID, data.Request)
			}

			return nil, fmt.Errorf("%w update", ErrInvalidDataTypePerson)
		},
		func() (interface{}, error) {
			if personID, ok := operation.Data.(string); ok {
				err := b.client.People().Delete(ctx, personID)
				if err != nil {
					return nil, fmt.Errorf("failed to delete person: %w", err)
				}

				return nil, nil
			}

			return nil, fmt.Errorf("%w delete", ErrInvalidDataTypePerson)
		},
		func() (interface{}, error) {
			if personID, ok := operation.Data.(string); ok {
				return b.client.People().Get(ctx, personID, nil)
			}

			return nil, fmt.Errorf("%w get", ErrInvalidDataTypePerson)
		},
	)
}

// executeHouseholdOperation handles household operations. Households are
// read-only through this API, so only get is supported.
func (b *BatchExecutor) executeHouseholdOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	result := &BatchResult{ID: operation.ID}

	if operation.Type != "get" {
		result.Error = fmt.Errorf("%w: %s", ErrUnsupportedOperationType, operation.Type)

		return result
	}

	householdID, ok := operation.Data.(string)
	if !ok {
		result.Error = fmt.Errorf("%w get", ErrInvalidDataTypeHousehold)

		return result
	}

	data, err := b.client.Households().Get(ctx, householdID, nil)
	result.Success = err == nil
	result.Data = data
	result.Error = err

	return result
}

// BatchBuilder helps build batch operations.
type BatchBuilder struct {
	operations []BatchOperation
}

// NewBatchBuilder creates a new batch builder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{
		operations: make([]BatchOperation, 0),
	}
}

// AddCreatePerson adds a person creation operation.
func (b *BatchBuilder) AddCreatePerson(id string, request *PersonCreateRequest) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:       id,
		Type:     "create",
		Resource: "person",
		Data:     request,
	})

	return b
}

// AddUpdatePerson adds a person update operation.
func (b *BatchBuilder) AddUpdatePerson(id, personID string, request *PersonUpdateRequest) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:       id,
		Type:     "update",
		Resource: "person",
		Data: &UpdateDataWrapper[PersonUpdateRequest]{
			ID:      personID,
			Request: request,
		},
	})

	return b
}

// AddDeletePerson adds a person deletion operation.
func (b *BatchBuilder) AddDeletePerson(id, personID string) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:       id,
		Type:     "delete",
		Resource: "person",
		Data:     personID,
	})

	return b
}

// AddGetPerson adds a person get operation.
func (b *BatchBuilder) AddGetPerson(id, personID string) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:       id,
		Type:     "get",
		Resource: "person",
		Data:     personID,
	})

	return b
}

// AddGetHousehold adds a household get operation.
func (b *BatchBuilder) AddGetHousehold(id, householdID string) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:       id,
		Type:     "get",
		Resource: "household",
		Data:     householdID,
	})

	return b
}

// AddOperation adds a custom operation.
func (b *BatchBuilder) AddOperation(operation BatchOperation) *BatchBuilder {
	b.operations = append(b.operations, operation)

	return b
}

// Build returns the built operations.
func (b *BatchBuilder) Build() []BatchOperation {
	return b.operations
}

// BatchTransaction represents a batch of operations where a failure rolls
// back the creations that succeeded. Updates and deletes cannot be reversed
// and are left for manual intervention.
type BatchTransaction struct {
	operations []BatchOperation
	results    []BatchResult
	executor   *BatchExecutor
	rollback   bool
}

// NewBatchTransaction creates a new batch transaction.
func NewBatchTransaction(executor *BatchExecutor) *BatchTransaction {
	return &BatchTransaction{
		executor:   executor,
		operations: make([]BatchOperation, 0),
		rollback:   true,
	}
}

// Add adds an operation to the transaction.
func (t *BatchTransaction) Add(operation BatchOperation) *BatchTransaction {
	t.operations = append(t.operations, operation)

	return t
}

// SetRollback sets whether to roll back created resources on failure.
func (t *BatchTransaction) SetRollback(rollback bool) *BatchTransaction {
	t.rollback = rollback

	return t
}

// Execute executes the transaction.
func (t *BatchTransaction) Execute(ctx context.Context) ([]BatchResult, error) {
	results, err := t.executor.Execute(ctx, t.operations)
	t.results = results

	var failedOps []string

	for _, result := range results {
		if !result.Success {
			failedOps = append(failedOps, result.ID)
		}
	}

	if len(failedOps) > 0 && t.rollback {
		t.performRollback(ctx)

		return results, fmt.Errorf("%w, %d operations failed: %v", ErrTransactionFailed, len(failedOps), failedOps)
	}

	return results, err
}

// performRollback deletes the resources created by successful operations.
func (t *BatchTransaction) performRollback(ctx context.Context) {
	var rollbackOps []BatchOperation

	for i, result := range t.results {
		if !result.Success {
			continue
		}

		original := t.operations[i]
		if original.Type != "create" || original.Resource != "person" {
			continue
		}

		doc, ok := result.Data.(*PersonDocument)
		if !ok || doc.Data.ID == "" {
			continue
		}

		rollbackOps = append(rollbackOps, BatchOperation{
			ID:       "rollback_" + original.ID,
			Type:     "delete",
			Resource: "person",
			Data:     doc.Data.ID,
		})
	}

	if len(rollbackOps) > 0 {
		_, _ = t.executor.Execute(ctx, rollbackOps)
	}
}
