package filesystem

import (
	"github.com/stretchr/testify/mock"
)

type mockUnixProvider struct {
	mock.Mock
}

func (m *mockUnixProvider) Access(path string, mode uint32) error {
	args := m.Called(path, mode)

	return args.Error(0)
}

func (m *mockUnixProvider) Fsync(fd int) error {
	args := m.Called(fd)

	return args.Error(0)
}

func (m *mockUnixProvider) Pread(fd int, p []byte, offset int64) (int, error) {
	args := m.Called(fd, p, offset)

	return args.Int(0), args.Error(1)
}

func (m *mockUnixProvider) Pwrite(fd int, p []byte, offset int64) (int, error) {
	args := m.Called(fd, p, offset)

	return args.Int(0), args.Error(1)
}
