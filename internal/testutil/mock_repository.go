package testutil

import (
	"context"

	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
)

// MockGlosaRepository is a mock implementation of glosa.Repository for testing.
type MockGlosaRepository struct {
	SelectAllFunc  func(ctx context.Context, order glosa.OrderBy) ([]glosa.Glosa, error)
	InsertFunc     func(ctx context.Context, glosas []glosa.Glosa) error
	UpdateFunc     func(ctx context.Context, id string, patch glosa.Patch) error
	DeleteFunc     func(ctx context.Context, id string) error
	DeleteManyFunc func(ctx context.Context, ids []string) error
	UpsertFunc     func(ctx context.Context, glosas []glosa.Glosa) error
}

// SelectAll calls the mock function if set, otherwise returns an empty slice.
func (m *MockGlosaRepository) SelectAll(ctx context.Context, order glosa.OrderBy) ([]glosa.Glosa, error) {
	if m.SelectAllFunc != nil {
		return m.SelectAllFunc(ctx, order)
	}
	return []glosa.Glosa{}, nil
}

func (m *MockGlosaRepository) Insert(ctx context.Context, glosas []glosa.Glosa) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, glosas)
	}
	return nil
}

func (m *MockGlosaRepository) Update(ctx context.Context, id string, patch glosa.Patch) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return nil
}

func (m *MockGlosaRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockGlosaRepository) DeleteMany(ctx context.Context, ids []string) error {
	if m.DeleteManyFunc != nil {
		return m.DeleteManyFunc(ctx, ids)
	}
	return nil
}

func (m *MockGlosaRepository) Upsert(ctx context.Context, glosas []glosa.Glosa) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, glosas)
	}
	return nil
}

// MockIngresoRepository is a mock implementation of ingreso.Repository for testing.
type MockIngresoRepository struct {
	SelectAllFunc  func(ctx context.Context, order ingreso.OrderBy) ([]ingreso.Ingreso, error)
	InsertFunc     func(ctx context.Context, ingresos []ingreso.Ingreso) error
	UpdateFunc     func(ctx context.Context, id string, patch ingreso.Patch) error
	DeleteFunc     func(ctx context.Context, id string) error
	DeleteManyFunc func(ctx context.Context, ids []string) error
	UpsertFunc     func(ctx context.Context, ingresos []ingreso.Ingreso) error
}

// SelectAll calls the mock function if set, otherwise returns an empty slice.
func (m *MockIngresoRepository) SelectAll(ctx context.Context, order ingreso.OrderBy) ([]ingreso.Ingreso, error) {
	if m.SelectAllFunc != nil {
		return m.SelectAllFunc(ctx, order)
	}
	return []ingreso.Ingreso{}, nil
}

func (m *MockIngresoRepository) Insert(ctx context.Context, ingresos []ingreso.Ingreso) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, ingresos)
	}
	return nil
}

func (m *MockIngresoRepository) Update(ctx context.Context, id string, patch ingreso.Patch) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return nil
}

func (m *MockIngresoRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockIngresoRepository) DeleteMany(ctx context.Context, ids []string) error {
	if m.DeleteManyFunc != nil {
		return m.DeleteManyFunc(ctx, ids)
	}
	return nil
}

func (m *MockIngresoRepository) Upsert(ctx context.Context, ingresos []ingreso.Ingreso) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, ingresos)
	}
	return nil
}

// Ensure the mocks implement the repository interfaces.
var (
	_ glosa.Repository   = (*MockGlosaRepository)(nil)
	_ ingreso.Repository = (*MockIngresoRepository)(nil)
)
