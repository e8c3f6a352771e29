package glosa

import "context"

// OrderBy selects the sort applied by SelectAll.
type OrderBy struct {
	Field string
	Desc  bool
}

// ByFechaDesc is the ordering used by every dashboard read.
var ByFechaDesc = OrderBy{Field: "fecha", Desc: true}

// Repository defines the remote glosas collection. Every call is a network
// round-trip that may fail with a transient error.
type Repository interface {
	// SelectAll retrieves every glosa in the given order.
	SelectAll(ctx context.Context, order OrderBy) ([]Glosa, error)

	// Insert creates the given glosas.
	Insert(ctx context.Context, glosas []Glosa) error

	// Update applies patch to the glosa identified by id.
	Update(ctx context.Context, id string, patch Patch) error

	// Delete removes one glosa.
	Delete(ctx context.Context, id string) error

	// DeleteMany removes every glosa in ids in a single call.
	DeleteMany(ctx context.Context, ids []string) error

	// Upsert inserts or replaces glosas by id.
	Upsert(ctx context.Context, glosas []Glosa) error
}
