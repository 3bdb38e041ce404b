package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/domain/repositories"
)

type MockFacilityRepository struct {
	mock.Mock
}

func (m *MockFacilityRepository) SearchFiltered(ctx context.Context, filter repositories.CandidateFilter) ([]*entities.Facility, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

func (m *MockFacilityRepository) FindByNamePrefix(ctx context.Context, keyword string, limit int) ([]*entities.Facility, error) {
	args := m.Called(ctx, keyword, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

func (m *MockFacilityRepository) ListForIndexing(ctx context.Context, afterID int64, limit int) ([]*entities.Facility, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

type MockTagRepository struct {
	mock.Mock
}

func (m *MockTagRepository) FindIDsByNames(ctx context.Context, names []string) ([]int64, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type MockSuggestionRepository struct {
	mock.Mock
}

func (m *MockSuggestionRepository) FindByNamePrefix(ctx context.Context, keyword string, limit int) ([]entities.Suggestion, error) {
	args := m.Called(ctx, keyword, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Suggestion), args.Error(1)
}

type MockPopularityCounter struct {
	mock.Mock
}

func (m *MockPopularityCounter) Get(ctx context.Context, keyword string) (int64, error) {
	args := m.Called(ctx, keyword)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPopularityCounter) Increment(ctx context.Context, keyword string) (int64, error) {
	args := m.Called(ctx, keyword)
	return args.Get(0).(int64), args.Error(1)
}

func float64Ptr(v float64) *float64 {
	return &v
}
