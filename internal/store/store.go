// Package store provides named key/value containers with pluggable
// backends, used by the capture engine and the scripted response
// service's `stores` DSL handle (spec.md §3, §4.2, §4.4).
package store

import "context"

// Store is a single named key/value container. Implementations must
// satisfy spec.md §3's invariants: string keys, last-writer-wins save,
// and count/loadAll/hasKey consistent with save/delete ordering
// according to the backend's own guarantees.
type Store interface {
	Save(ctx context.Context, key string, value any) error
	Load(ctx context.Context, key string) (any, bool, error)
	HasKey(ctx context.Context, key string) (bool, error)
	LoadAll(ctx context.Context) (map[string]any, error)
	Delete(ctx context.Context, key string) error
	Count(ctx context.Context) (int, error)
	TypeDescription() string
}

// Factory opens or creates named stores, handing out the same Store
// instance for repeated calls with the same name within a process
// (spec.md §3: "a store is addressed by a unique name within the
// process").
type Factory interface {
	OpenOrCreate(name string) (Store, error)
}
