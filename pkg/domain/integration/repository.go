package integration

import "context"

// Filter represents filtering options for listing integrations.
type Filter struct {
	UserID *ID
	Type   *Type
}

// Repository defines the interface for integration persistence.
//
// All read paths are user-scoped: a lookup for a record owned by a different
// user behaves exactly like a missing record.
type Repository interface {
	Create(ctx context.Context, i *Integration) error
	GetByID(ctx context.Context, id, userID ID) (*Integration, error)
	List(ctx context.Context, filter Filter) ([]*Integration, error)
	Update(ctx context.Context, i *Integration) error
	Delete(ctx context.Context, id, userID ID) error

	// FindActive resolves the single active integration for
	// (userID, type, provider). Returns ErrIntegrationNotFound when none
	// matches; dispatch relies on this being a typed point query rather
	// than a scan-and-pick-first.
	FindActive(ctx context.Context, userID ID, t Type, provider string) (*Integration, error)
}
