package state

// Store is the narrow persistence interface the lifecycle and repair layers
// consume. Load returns (nil, nil) when no state exists yet; callers decide
// whether absence is an error for their operation.
type Store interface {
	Load() (*ProjectState, error)
	Save(*ProjectState) error
	Exists() bool
}

// Compile-time verification that JSONStore implements Store.
var _ Store = (*JSONStore)(nil)
