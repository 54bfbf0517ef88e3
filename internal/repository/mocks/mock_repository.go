package mocks

import (
	"context"
	"iter"

	"docrepo/internal/repository"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a testify mock of repository.Repository.
// Write and Update accept either a T or a func(T) T as their first return
// value. LoadAll expects a []T and an error; the returned sequence yields the
// slice and then the error, if any.
type MockRepository[T any, K comparable] struct {
	mock.Mock
}

var _ repository.Repository[struct{}, string] = (*MockRepository[struct{}, string])(nil)

func (m *MockRepository[T, K]) Write(ctx context.Context, record T) (T, error) {
	args := m.Called(ctx, record)
	if f, ok := args.Get(0).(func(T) T); ok {
		return f(record), args.Error(1)
	}
	return args.Get(0).(T), args.Error(1)
}

func (m *MockRepository[T, K]) Load(ctx context.Context, id K) (T, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		var zero T
		return zero, args.Error(1)
	}
	return args.Get(0).(T), args.Error(1)
}

func (m *MockRepository[T, K]) LoadAll(ctx context.Context) iter.Seq2[T, error] {
	args := m.Called(ctx)
	var items []T
	if v := args.Get(0); v != nil {
		items = v.([]T)
	}
	err := args.Error(1)
	return func(yield func(T, error) bool) {
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
		if err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

func (m *MockRepository[T, K]) Update(ctx context.Context, record T) (T, error) {
	args := m.Called(ctx, record)
	if f, ok := args.Get(0).(func(T) T); ok {
		return f(record), args.Error(1)
	}
	return args.Get(0).(T), args.Error(1)
}

func (m *MockRepository[T, K]) Delete(ctx context.Context, record T) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRepository[T, K]) DeleteByID(ctx context.Context, id K) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
