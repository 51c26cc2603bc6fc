package recount

import "github.com/louisbranch/reactions/internal/storage"

// closableStore extends Store with a Close method for resource cleanup.
type closableStore interface {
	storage.Store
	Close() error
}
