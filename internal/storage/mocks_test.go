package storage

import (
	"context"

	"github.com/desertwitch/randacc/internal/schema"
	"github.com/stretchr/testify/mock"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Mount(ctx context.Context, opts schema.MountOptions) error {
	args := m.Called(ctx, opts)

	return args.Error(0)
}

func (m *mockBackend) Open(ctx context.Context, url string, opts schema.OpenOptions) (schema.Resource, error) { //nolint:ireturn
	args := m.Called(ctx, url, opts)

	res, _ := args.Get(0).(schema.Resource)

	return res, args.Error(1)
}

func (m *mockBackend) Remove(ctx context.Context, url string, opts schema.RemoveOptions) error {
	args := m.Called(ctx, url, opts)

	return args.Error(0)
}

func (m *mockBackend) String() string {
	return "mock"
}

type mockResource struct {
	mock.Mock
}

func (m *mockResource) ReadAt(ctx context.Context, position int64, size int) ([]byte, error) {
	args := m.Called(ctx, position, size)

	data, _ := args.Get(0).([]byte)

	return data, args.Error(1)
}

func (m *mockResource) WriteAt(ctx context.Context, data []byte, position int64) (int, error) {
	args := m.Called(ctx, data, position)

	return args.Int(0), args.Error(1)
}

func (m *mockResource) Stat(ctx context.Context) (schema.Stat, error) {
	args := m.Called(ctx)

	st, _ := args.Get(0).(schema.Stat)

	return st, args.Error(1)
}

func (m *mockResource) Sync(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *mockResource) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
