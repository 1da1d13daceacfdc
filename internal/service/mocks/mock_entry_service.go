package mocks

import (
	"context"
	"io"
	"time"

	"entryapi/internal/model"
	"entryapi/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockEntryService struct {
	mock.Mock
}

var _ service.EntryService = (*MockEntryService)(nil)

func (m *MockEntryService) Create(ctx context.Context, props model.Entry) (model.Entry, error) {
	args := m.Called(ctx, props)
	return args.Get(0).(model.Entry), args.Error(1)
}

func (m *MockEntryService) GetWithChildren(ctx context.Context, id string) (model.Entry, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Entry), args.Error(1)
}

func (m *MockEntryService) Remove(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEntryService) List(ctx context.Context, limit, offset int) (*service.EntryListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EntryListResult), args.Error(1)
}

func (m *MockEntryService) Attach(ctx context.Context, id string, r io.Reader, filename, contentType string, size int64) (*model.Entry, error) {
	args := m.Called(ctx, id, r, filename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Entry), args.Error(1)
}

func (m *MockEntryService) AttachmentURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, id, expiry)
	return args.String(0), args.Error(1)
}
