package database_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dontkillit/backend/internal/adapters/database"
	"github.com/dontkillit/backend/internal/domain/entities"
	apperrors "github.com/dontkillit/backend/pkg/errors"
)

type MockSpeciesCacheRepository struct {
	mock.Mock
}

func (m *MockSpeciesCacheRepository) GetByPerenualID(ctx context.Context, perenualID int) (*entities.SpeciesCacheEntry, error) {
	args := m.Called(ctx, perenualID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SpeciesCacheEntry), args.Error(1)
}

func (m *MockSpeciesCacheRepository) FindByScientificName(ctx context.Context, name string) (*entities.SpeciesCacheEntry, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SpeciesCacheEntry), args.Error(1)
}

func (m *MockSpeciesCacheRepository) FindByCommonName(ctx context.Context, name string) (*entities.SpeciesCacheEntry, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SpeciesCacheEntry), args.Error(1)
}

func (m *MockSpeciesCacheRepository) Create(ctx context.Context, entry *entities.SpeciesCacheEntry) (bool, error) {
	args := m.Called(ctx, entry)
	return args.Bool(0), args.Error(1)
}

func (m *MockSpeciesCacheRepository) List(ctx context.Context, search string, limit int) ([]*entities.SpeciesCacheEntry, error) {
	args := m.Called(ctx, search, limit)
	return args.Get(0).([]*entities.SpeciesCacheEntry), args.Error(1)
}

func (m *MockSpeciesCacheRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	args := m.Called(ctx, key, value, expirationSeconds)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func monstera() *entities.SpeciesCacheEntry {
	return &entities.SpeciesCacheEntry{
		ID: 1,
		CareData: entities.CareData{
			PerenualID:     42,
			ScientificName: "Monstera deliciosa",
			CommonName:     "Swiss cheese plant",
			Watering:       "Average",
		},
	}
}

func TestCachedSpeciesCacheAdapter_FindByScientificName(t *testing.T) {
	ctx := context.Background()

	t.Run("served from redis", func(t *testing.T) {
		repo := new(MockSpeciesCacheRepository)
		cache := new(MockCacheProvider)
		data, _ := json.Marshal(monstera())
		cache.On("Get", ctx, "species:sci:monstera deliciosa").Return(data, nil)

		adapter := database.NewCachedSpeciesCacheAdapter(repo, cache, nil)
		entry, err := adapter.FindByScientificName(ctx, "Monstera Deliciosa")

		require.NoError(t, err)
		assert.Equal(t, 42, entry.PerenualID)
		repo.AssertNotCalled(t, "FindByScientificName", mock.Anything, mock.Anything)
	})

	t.Run("miss loads and caches under every key", func(t *testing.T) {
		repo := new(MockSpeciesCacheRepository)
		cache := new(MockCacheProvider)
		cache.On("Get", ctx, "species:sci:monstera deliciosa").Return(nil, apperrors.NewNotFoundError("miss"))
		repo.On("FindByScientificName", ctx, "monstera deliciosa").Return(monstera(), nil)
		cache.On("Set", ctx, "species:perenual:42", mock.Anything, 86400).Return(nil)
		cache.On("Set", ctx, "species:sci:monstera deliciosa", mock.Anything, 86400).Return(nil)
		cache.On("Set", ctx, "species:common:swiss cheese plant", mock.Anything, 86400).Return(errors.New("redis down"))

		adapter := database.NewCachedSpeciesCacheAdapter(repo, cache, nil)
		entry, err := adapter.FindByScientificName(ctx, "monstera deliciosa")

		require.NoError(t, err)
		assert.Equal(t, "Average", entry.Watering)
		cache.AssertExpectations(t)
	})

	t.Run("padded names share the trimmed key", func(t *testing.T) {
		repo := new(MockSpeciesCacheRepository)
		cache := new(MockCacheProvider)
		data, _ := json.Marshal(monstera())
		cache.On("Get", ctx, "species:sci:monstera deliciosa").Return(data, nil)

		adapter := database.NewCachedSpeciesCacheAdapter(repo, cache, nil)
		entry, err := adapter.FindByScientificName(ctx, "  Monstera deliciosa\t")

		require.NoError(t, err)
		assert.Equal(t, 42, entry.PerenualID)
		cache.AssertExpectations(t)
	})

	t.Run("blank names skip redis", func(t *testing.T) {
		repo := new(MockSpeciesCacheRepository)
		cache := new(MockCacheProvider)
		repo.On("FindByCommonName", ctx, "  ").Return(nil, apperrors.NewNotFoundError("empty name"))

		adapter := database.NewCachedSpeciesCacheAdapter(repo, cache, nil)
		_, err := adapter.FindByCommonName(ctx, "  ")

		assert.True(t, apperrors.IsNotFound(err))
		cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("negative lookups are not cached", func(t *testing.T) {
		repo := new(MockSpeciesCacheRepository)
		cache := new(MockCacheProvider)
		cache.On("Get", ctx, "species:sci:unknownia").Return(nil, apperrors.NewNotFoundError("miss"))
		repo.On("FindByScientificName", ctx, "unknownia").Return(nil, apperrors.NewNotFoundError("no species"))

		adapter := database.NewCachedSpeciesCacheAdapter(repo, cache, nil)
		_, err := adapter.FindByScientificName(ctx, "unknownia")

		assert.True(t, apperrors.IsNotFound(err))
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("corrupt entry is evicted", func(t *testing.T) {
		repo := new(MockSpeciesCacheRepository)
		cache := new(MockCacheProvider)
		cache.On("Get", ctx, "species:perenual:42").Return([]byte("{not json"), nil)
		cache.On("Delete", ctx, "species:perenual:42").Return(nil)
		repo.On("GetByPerenualID", ctx, 42).Return(monstera(), nil)
		cache.On("Set", ctx, mock.Anything, mock.Anything, 86400).Return(nil)

		adapter := database.NewCachedSpeciesCacheAdapter(repo, cache, nil)
		entry, err := adapter.GetByPerenualID(ctx, 42)

		require.NoError(t, err)
		assert.Equal(t, int64(1), entry.ID)
		cache.AssertCalled(t, "Delete", ctx, "species:perenual:42")
	})
}

func TestCachedSpeciesCacheAdapter_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("primes cache for new species", func(t *testing.T) {
		repo := new(MockSpeciesCacheRepository)
		cache := new(MockCacheProvider)
		entry := monstera()
		repo.On("Create", ctx, entry).Return(true, nil)
		cache.On("Set", ctx, mock.Anything, mock.Anything, 86400).Return(nil)

		created, err := database.NewCachedSpeciesCacheAdapter(repo, cache, nil).Create(ctx, entry)

		require.NoError(t, err)
		assert.True(t, created)
		cache.AssertNumberOfCalls(t, "Set", 3)
	})

	t.Run("existing species leaves cache alone", func(t *testing.T) {
		repo := new(MockSpeciesCacheRepository)
		cache := new(MockCacheProvider)
		entry := monstera()
		repo.On("Create", ctx, entry).Return(false, nil)

		created, err := database.NewCachedSpeciesCacheAdapter(repo, cache, nil).Create(ctx, entry)

		require.NoError(t, err)
		assert.False(t, created)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
