package pco_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/steeplehq/pco-go/pkg/pco"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	key string
}

func (s *stubClient) People() pco.PeopleClient         { return nil }
func (s *stubClient) Households() pco.HouseholdsClient { return nil }
func (s *stubClient) RateLimit() pco.RateLimitInfo     { return pco.RateLimitInfo{} }

var errFactoryBroken = errors.New("factory broken")

func TestRegistry_Get(t *testing.T) {
	t.Parallel()

	t.Run("builds once per key", func(t *testing.T) {
		t.Parallel()

		registry := pco.NewRegistry()
		built := 0

		factory := func(key string) (pco.Client, error) {
			built++

			return &stubClient{key: key}, nil
		}

		first, err := registry.Get("tenant-a", factory)
		require.NoError(t, err)

		second, err := registry.Get("tenant-a", factory)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 1, built)
	})

	t.Run("separate keys get separate clients", func(t *testing.T) {
		t.Parallel()

		registry := pco.NewRegistry()

		factory := func(key string) (pco.Client, error) {
			return &stubClient{key: key}, nil
		}

		first, err := registry.Get("tenant-a", factory)
		require.NoError(t, err)

		second, err := registry.Get("tenant-b", factory)
		require.NoError(t, err)

		assert.NotSame(t, first, second)
		assert.Equal(t, 2, registry.Len())
	})

	t.Run("empty key", func(t *testing.T) {
		t.Parallel()

		registry := pco.NewRegistry()

		_, err := registry.Get("", func(string) (pco.Client, error) { return &stubClient{}, nil })
		assert.ErrorIs(t, err, pco.ErrEmptyRegistryKey)
	})

	t.Run("nil factory", func(t *testing.T) {
		t.Parallel()

		registry := pco.NewRegistry()

		_, err := registry.Get("tenant-a", nil)
		assert.ErrorIs(t, err, pco.ErrNilFactory)
	})

	t.Run("factory error is not cached", func(t *testing.T) {
		t.Parallel()

		registry := pco.NewRegistry()
		calls := 0

		factory := func(key string) (pco.Client, error) {
			calls++
			if calls == 1 {
				return nil, errFactoryBroken
			}

			return &stubClient{key: key}, nil
		}

		_, err := registry.Get("tenant-a", factory)
		require.ErrorIs(t, err, errFactoryBroken)
		assert.Equal(t, 0, registry.Len())

		client, err := registry.Get("tenant-a", factory)
		require.NoError(t, err)
		assert.NotNil(t, client)
		assert.Equal(t, 2, calls)
	})
}

func TestRegistry_RemoveAndClear(t *testing.T) {
	t.Parallel()

	registry := pco.NewRegistry()

	factory := func(key string) (pco.Client, error) {
		return &stubClient{key: key}, nil
	}

	_, err := registry.Get("tenant-a", factory)
	require.NoError(t, err)
	_, err = registry.Get("tenant-b", factory)
	require.NoError(t, err)

	registry.Remove("tenant-a")
	assert.Equal(t, 1, registry.Len())

	// Removing an unknown key is a no-op
	registry.Remove("tenant-z")
	assert.Equal(t, 1, registry.Len())

	registry.Clear()
	assert.Equal(t, 0, registry.Len())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	registry := pco.NewRegistry()
	built := 0

	factory := func(key string) (pco.Client, error) {
		built++

		return &stubClient{key: key}, nil
	}

	var waitGroup sync.WaitGroup

	clients := make([]pco.Client, 10)

	for i := range clients {
		waitGroup.Add(1)

		go func(i int) {
			defer waitGroup.Done()

			client, err := registry.Get("tenant-a", factory)
			require.NoError(t, err)

			clients[i] = client
		}(i)
	}

	waitGroup.Wait()

	assert.Equal(t, 1, built, "factory must run once per key")

	for _, client := range clients {
		assert.Same(t, clients[0], client)
	}
}
