package ports

import "context"

// StateStore persists ViewModel States under a string ID.
// Implementations must be safe for concurrent use.
type StateStore[S any] interface {
	// Save persists the state for a given ID, replacing any earlier value.
	Save(ctx context.Context, id string, state S) error

	// Load retrieves the state for a given ID.
	// Returns domain.ErrSnapshotNotFound if nothing was saved under it.
	Load(ctx context.Context, id string) (S, error)

	// Delete removes the state for a given ID. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns every stored ID.
	List(ctx context.Context) ([]string, error)
}
