package mocks

import (
	"context"
	"time"

	"entryapi/internal/model"
	"entryapi/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) Create(ctx context.Context, e *model.Entry) (*model.Entry, error) {
	args := m.Called(ctx, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if f, ok := args.Get(0).(func(context.Context, *model.Entry) *model.Entry); ok {
		return f(ctx, e), args.Error(1)
	}
	return args.Get(0).(*model.Entry), args.Error(1)
}

func (m *MockEntryRepository) FindByID(ctx context.Context, id string) (*model.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Entry), args.Error(1)
}

func (m *MockEntryRepository) FindChildren(ctx context.Context, parentID string) ([]model.Entry, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Entry), args.Error(1)
}

func (m *MockEntryRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Entry], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Entry]), args.Error(1)
}

func (m *MockEntryRepository) SetAttachment(ctx context.Context, id, path string, at time.Time) error {
	args := m.Called(ctx, id, path, at)
	return args.Error(0)
}

func (m *MockEntryRepository) AttachmentPaths(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockEntryRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
