package cache

// Cache is a read-through cache placed in front of the progression store.
type Cache interface {
	Get(key any) (any, bool)
	Add(key, value any)
	Keys() []any
	Delete(key any)
}
